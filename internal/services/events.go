package services

// ObjectInstagram is the top-level type tag Meta puts on Instagram webhook
// payloads. Batches with any other tag are ignored wholesale.
const ObjectInstagram = "instagram"

// EventPayload is one webhook delivery: a batch of entries, each scoped to
// a single business account.
type EventPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry carries the messaging events for one business account.
type Entry struct {
	ID        string           `json:"id"` // business account ID
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is one sender/recipient event within an entry. Message is
// nil for non-message events (reads, reactions, postbacks).
type MessagingEvent struct {
	Sender    AccountRef    `json:"sender"`
	Recipient AccountRef    `json:"recipient"`
	Timestamp int64         `json:"timestamp"`
	Message   *MessageEvent `json:"message,omitempty"`
}

// AccountRef is a bare account identity reference.
type AccountRef struct {
	ID string `json:"id"`
}

// MessageEvent is the message body of a messaging event. IsEcho marks a
// message the business itself sent, reflected back by the platform.
type MessageEvent struct {
	MID    string `json:"mid,omitempty"`
	Text   string `json:"text,omitempty"`
	IsEcho bool   `json:"is_echo,omitempty"`
}
