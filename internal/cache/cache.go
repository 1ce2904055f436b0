// Package cache implements the bounded, expiring per-conversation message
// cache. Each conversation keeps only its most recent records and every
// write slides the TTL forward, so idle conversations age out without a
// background sweep.
package cache

import (
	"context"
	"time"
)

const keyPrefix = "conv:"

// Key identifies one conversation: the business account plus the
// counterparty. Both IDs are opaque platform-assigned strings.
type Key struct {
	BusinessID string
	ClientID   string
}

// String renders the namespaced store key, conv:{business}:{client}.
func (k Key) String() string {
	return keyPrefix + k.BusinessID + ":" + k.ClientID
}

// Role marks who authored a cached message.
type Role string

const (
	RoleUser     Role = "u"
	RoleBusiness Role = "b"
)

// Message is the compact projection of a remote message kept in cache:
// only what a responder needs to reconstruct context. Single-letter JSON
// tags keep the serialized Redis payload small.
type Message struct {
	Role      Role   `json:"r"`
	Text      string `json:"t"`
	Timestamp int64  `json:"ts"` // unix milliseconds
}

// UserMessage builds a client-authored record stamped with the current time.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text, Timestamp: time.Now().UnixMilli()}
}

// BusinessMessage builds a business-authored record stamped with the current time.
func BusinessMessage(text string) Message {
	return Message{Role: RoleBusiness, Text: text, Timestamp: time.Now().UnixMilli()}
}

// TTLMissing is returned by Store.TTL when no unexpired entry exists for the
// key. It matches the Redis TTL sentinel for a missing key.
const TTLMissing = time.Duration(-2)

// Store is the conversation cache contract. An expired entry behaves
// exactly like one that was never written.
type Store interface {
	// Has reports whether an unexpired entry exists for the key.
	Has(ctx context.Context, key Key) (bool, error)

	// Append adds a record at the tail, trims the entry to the most
	// recent bound, and resets the TTL. The append-trim-refresh step is
	// atomic with respect to concurrent appends on the same key.
	Append(ctx context.Context, key Key, msg Message) error

	// SetAll replaces the entire entry with msgs (tail-truncated to the
	// bound) and resets the TTL. An empty msgs clears the entry.
	SetAll(ctx context.Context, key Key, msgs []Message) error

	// GetAll returns all stored records oldest-first. A missing or
	// expired key yields an empty slice, not an error.
	GetAll(ctx context.Context, key Key) ([]Message, error)

	// Delete removes the entry immediately regardless of TTL.
	Delete(ctx context.Context, key Key) error

	// TTL reports the remaining lifetime of the entry, or TTLMissing.
	// Diagnostic only.
	TTL(ctx context.Context, key Key) (time.Duration, error)
}
