package model

import "time"

// MessageRecord is a row of the ClickHouse reporting table (latest version per message).
type MessageRecord struct {
	MessageID         string    `db:"message_id" json:"message_id"`
	ConversationID    string    `db:"conversation_id" json:"conversation_id"`
	Direction         string    `db:"direction" json:"direction"`
	Type              string    `db:"type" json:"type"`
	From              string    `db:"from_address" json:"from"`
	To                string    `db:"to_address" json:"to"`
	ProviderMessageID string    `db:"provider_message_id" json:"provider_message_id"`
	Attachments       uint32    `db:"attachments" json:"attachments"`
	LastEvent         string    `db:"last_event" json:"last_event"`
	Timestamp         time.Time `db:"ts" json:"timestamp"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	Version           time.Time `db:"version" json:"-"`
}

// RecordFromEnvelope flattens an event into a reporting row.
func RecordFromEnvelope(env Envelope) MessageRecord {
	m := env.Message
	return MessageRecord{
		MessageID:         m.ID,
		ConversationID:    m.ConversationID,
		Direction:         m.Direction.String(),
		Type:              m.Type.String(),
		From:              m.From,
		To:                m.To,
		ProviderMessageID: m.ProviderMessageID,
		Attachments:       uint32(m.Attachments),
		LastEvent:         string(env.EventType),
		Timestamp:         m.Timestamp,
		CreatedAt:         m.CreatedAt,
		Version:           env.OccurredAt,
	}
}
