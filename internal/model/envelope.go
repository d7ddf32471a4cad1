package model

import "time"

type EventType string

const (
	EventMessageCreated   EventType = "message.created"
	EventMessageDelivered EventType = "message.delivered"
)

// Envelope is the payload written to the outbox and published to Kafka
// (via Debezium outbox SMT).
type Envelope struct {
	EventID    string       `json:"event_id"` // ULID
	EventType  EventType    `json:"event_type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Message    MessageEvent `json:"message"`
}

// MessageEvent is the message snapshot carried by an Envelope. Body is left out.
type MessageEvent struct {
	ID                string      `json:"id"`
	ConversationID    string      `json:"conversation_id"`
	Direction         Direction   `json:"direction"`
	From              string      `json:"from"`
	To                string      `json:"to"`
	Type              MessageType `json:"type"`
	Attachments       int         `json:"attachments"`
	ProviderMessageID string      `json:"provider_message_id,omitempty"`
	Timestamp         time.Time   `json:"timestamp"`
	CreatedAt         time.Time   `json:"created_at"`
}

// NewMessageEvent snapshots m for publishing.
func NewMessageEvent(m Message) MessageEvent {
	ev := MessageEvent{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Direction:      m.Direction,
		From:           m.From,
		To:             m.To,
		Type:           m.Type,
		Attachments:    len(m.Attachments),
		Timestamp:      m.Timestamp,
		CreatedAt:      m.CreatedAt,
	}
	if m.ProviderMessageID != nil {
		ev.ProviderMessageID = *m.ProviderMessageID
	}
	return ev
}
