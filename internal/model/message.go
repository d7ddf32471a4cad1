package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

func (d Direction) String() string { return string(d) }

func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

type MessageType string

const (
	TypeSMS   MessageType = "sms"
	TypeMMS   MessageType = "mms"
	TypeEmail MessageType = "email"
)

func (t MessageType) String() string { return string(t) }

func (t MessageType) Valid() bool {
	return t == TypeSMS || t == TypeMMS || t == TypeEmail
}

// Channel maps a message type onto the delivery channel that carries it.
// sms and mms share the SMS channel.
func (t MessageType) Channel() Channel {
	switch t {
	case TypeSMS, TypeMMS:
		return ChannelSMS
	case TypeEmail:
		return ChannelEmail
	default:
		return ""
	}
}

// ParseMessageType normalizes input and reports whether it names a known type.
func ParseMessageType(s string) (MessageType, bool) {
	t := MessageType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) String() string { return string(c) }

// Attachments is an ordered list of attachment URLs stored as a JSON array.
type Attachments []string

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Attachments) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Attachments{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attachments: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*a = Attachments{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("attachments: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*a = out
	return nil
}

// Message is the DB entity persisted in messages table.
type Message struct {
	ID                string      `db:"id"`
	ConversationID    string      `db:"conversation_id"`
	Direction         Direction   `db:"direction"`
	From              string      `db:"from_address"`
	To                string      `db:"to_address"`
	Type              MessageType `db:"type"`
	Body              string      `db:"body"`
	Attachments       Attachments `db:"attachments"`
	ProviderMessageID *string     `db:"provider_message_id"` // nullable; set once after delivery
	Timestamp         time.Time   `db:"ts"`                  // caller-supplied message time
	CreatedAt         time.Time   `db:"created_at"`
}

// Delivered reports whether a provider id has been attached.
func (m Message) Delivered() bool {
	return m.ProviderMessageID != nil && *m.ProviderMessageID != ""
}
