// Package services holds the webhook ingestion logic: classify each
// delivered message event, backfill conversation context from the Graph API
// on a cache miss, and append the new message to the bounded cache.
package services

import (
	"context"
	"fmt"
	"time"

	"igrelay/config"
	"igrelay/internal/adapters/instagram"
	"igrelay/internal/cache"

	"github.com/rs/zerolog/log"
)

// placeholderText stands in for messages that carry no text, so a backfilled
// context still reflects that something was sent.
const placeholderText = "[attachment]"

// Gateway is the subset of the Graph API client the ingestor needs.
type Gateway interface {
	GetConversations(ctx context.Context) ([]instagram.Conversation, error)
	GetMessages(ctx context.Context, conversationID, cursor, direction string, limit int) (*instagram.PaginatedMessages, error)
}

// Responder is the attachment point for an automated reply generator. It
// receives the full cached context after a client message is appended. No
// implementation ships yet; a nil responder disables the hook.
type Responder interface {
	Respond(ctx context.Context, businessID, clientID string, history []cache.Message) error
}

// Ingestor turns webhook event batches into cache mutations.
type Ingestor struct {
	gateway   Gateway
	store     cache.Store
	responder Responder
}

// NewIngestor creates an Ingestor over the given gateway and cache store.
func NewIngestor(gateway Gateway, store cache.Store) (*Ingestor, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway cannot be nil for Ingestor")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store cannot be nil for Ingestor")
	}
	return &Ingestor{gateway: gateway, store: store}, nil
}

// SetResponder attaches a reply generator. Call before serving traffic.
func (i *Ingestor) SetResponder(r Responder) {
	i.responder = r
}

// ProcessPayload walks one delivered event batch. Malformed or non-text
// events are logged and skipped; they never abort processing of sibling
// events. Errors are handled here, not returned: by the time this runs the
// delivery has already been acknowledged.
func (i *Ingestor) ProcessPayload(ctx context.Context, payload *EventPayload) {
	if payload == nil {
		return
	}
	if payload.Object != ObjectInstagram {
		log.Debug().Str("object", payload.Object).Msg("Ignoring webhook payload for another integration")
		return
	}

	for _, entry := range payload.Entry {
		businessID := entry.ID
		for _, ev := range entry.Messaging {
			if ev.Message == nil || ev.Message.Text == "" {
				isEcho := ev.Message != nil && ev.Message.IsEcho
				log.Info().Bool("isEcho", isEcho).Msg("Received non-text message event, skipping")
				continue
			}

			// The platform names sender/recipient from its own
			// perspective: an echo is our outbound message reflected
			// back, so the counterparty is the recipient.
			isEcho := ev.Message.IsEcho
			clientID := ev.Sender.ID
			if isEcho {
				clientID = ev.Recipient.ID
			}
			if businessID == "" || clientID == "" {
				log.Warn().Str("businessID", businessID).Str("clientID", clientID).Msg("Message event is missing an account identity, skipping")
				continue
			}

			log.Info().Str("businessID", businessID).Str("clientID", clientID).Bool("isEcho", isEcho).Msg("Processing message event")
			i.processMessage(ctx, businessID, clientID, ev.Message.Text, isEcho)
		}
	}
}

// processMessage runs the per-event sequence: ensure context exists
// (backfilling on a miss), append the new record, and read the combined
// context back for the responder.
func (i *Ingestor) processMessage(ctx context.Context, businessID, clientID, text string, isEcho bool) {
	key := cache.Key{BusinessID: businessID, ClientID: clientID}

	exists, err := i.store.Has(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key.String()).Msg("Cache existence check failed")
	}
	if !exists {
		log.Info().Str("key", key.String()).Msg("Cache miss, backfilling conversation from Graph API")
		if err := i.Backfill(ctx, businessID, clientID); err != nil {
			// The append below still goes into a fresh entry; the
			// next cache miss retries the backfill.
			log.Error().Err(err).Str("key", key.String()).Msg("Backfill failed, continuing with empty context")
		}
	}

	msg := cache.UserMessage(text)
	if isEcho {
		msg = cache.BusinessMessage(text)
	}
	if err := i.store.Append(ctx, key, msg); err != nil {
		log.Error().Err(err).Str("key", key.String()).Msg("Failed to append message to cache")
	}

	history, err := i.store.GetAll(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key.String()).Msg("Failed to read conversation context")
		return
	}
	log.Info().Str("key", key.String()).Int("contextSize", len(history)).Msg("Conversation context assembled")

	if i.responder != nil && !isEcho {
		if err := i.responder.Respond(ctx, businessID, clientID, history); err != nil {
			log.Error().Err(err).Str("key", key.String()).Msg("Responder failed")
		}
	}
}

// Backfill populates the cache for a first-contact conversation: find the
// thread whose participants include clientID, fetch its most recent
// messages, and store them oldest-first. Runs once per cold conversation,
// so the linear scan over open threads is acceptable.
func (i *Ingestor) Backfill(ctx context.Context, businessID, clientID string) error {
	conversations, err := i.gateway.GetConversations(ctx)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	var conversationID string
	for _, conv := range conversations {
		for _, p := range conv.Participants {
			if p.ID == clientID {
				conversationID = conv.ID
				break
			}
		}
		if conversationID != "" {
			break
		}
	}
	if conversationID == "" {
		return fmt.Errorf("no conversation found for client %s", clientID)
	}

	page, err := i.gateway.GetMessages(ctx, conversationID, "", instagram.DirectionAfter, config.MaxCachedMessages)
	if err != nil {
		return fmt.Errorf("fetching messages for %s: %w", conversationID, err)
	}

	// Remote order is newest first; the cache wants oldest first.
	records := make([]cache.Message, 0, len(page.Messages))
	for idx := len(page.Messages) - 1; idx >= 0; idx-- {
		remote := page.Messages[idx]

		role := cache.RoleBusiness
		if remote.From.ID == clientID {
			role = cache.RoleUser
		}
		text := remote.Text
		if text == "" {
			text = placeholderText
		}
		records = append(records, cache.Message{
			Role:      role,
			Text:      text,
			Timestamp: parseCreatedTime(remote.CreatedTime),
		})
	}

	key := cache.Key{BusinessID: businessID, ClientID: clientID}
	if err := i.store.SetAll(ctx, key, records); err != nil {
		return fmt.Errorf("storing backfilled context: %w", err)
	}

	log.Info().Str("key", key.String()).Int("messageCount", len(records)).Msg("Populated conversation cache from Graph API")
	return nil
}

// Graph API timestamps come as ISO 8601 with a colonless zone offset.
var createdTimeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

func parseCreatedTime(value string) int64 {
	for _, layout := range createdTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UnixMilli()
		}
	}
	log.Warn().Str("createdTime", value).Msg("Unparseable message timestamp")
	return 0
}
