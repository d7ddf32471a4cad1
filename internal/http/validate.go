package http

import (
	"errors"
	"strings"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmehdipour/messaging-gateway/internal/util"
)

// messageRequest is the body shared by the send and webhook routes. Pointer
// fields distinguish "missing" from "empty".
type messageRequest struct {
	From                *string  `json:"from"`
	To                  *string  `json:"to"`
	Type                *string  `json:"type"`
	Body                *string  `json:"body"`
	Attachments         []string `json:"attachments"`
	Timestamp           *string  `json:"timestamp"`
	MessagingProviderID *string  `json:"messaging_provider_id"`
	ProviderMessageID   *string  `json:"provider_message_id"`
}

type channelKind int

const (
	smsRoute channelKind = iota
	emailRoute
)

// validMessage is a request that passed validation, with addresses normalized.
type validMessage struct {
	From              string
	To                string
	Type              model.MessageType
	Body              string
	Attachments       []string
	Timestamp         time.Time
	ProviderMessageID string
}

// timestampLayouts accepts ISO-8601 with an offset or "Z"; offset-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid ISO 8601 format for 'timestamp'")
}

func (r messageRequest) providerID(kind channelKind) *string {
	if kind == emailRoute && r.ProviderMessageID != nil {
		return r.ProviderMessageID
	}
	return r.MessagingProviderID
}

func (r messageRequest) validate(kind channelKind, inbound bool) (validMessage, error) {
	var missing []string
	if r.From == nil {
		missing = append(missing, "from")
	}
	if r.To == nil {
		missing = append(missing, "to")
	}
	if kind == smsRoute && r.Type == nil {
		missing = append(missing, "type")
	}
	if r.Body == nil {
		missing = append(missing, "body")
	}
	if r.Timestamp == nil {
		missing = append(missing, "timestamp")
	}
	if inbound && r.providerID(kind) == nil {
		if kind == emailRoute {
			missing = append(missing, "provider_message_id")
		} else {
			missing = append(missing, "messaging_provider_id")
		}
	}
	if len(missing) > 0 {
		return validMessage{}, errors.New("missing required fields: " + strings.Join(missing, ", "))
	}

	out := validMessage{Body: *r.Body}

	switch kind {
	case smsRoute:
		from, ok := util.NormalizePhone(*r.From)
		if !ok {
			return validMessage{}, errors.New("'from' must be a valid phone number")
		}
		to, ok := util.NormalizePhone(*r.To)
		if !ok {
			return validMessage{}, errors.New("'to' must be a valid phone number")
		}
		t, ok := model.ParseMessageType(*r.Type)
		if !ok || t.Channel() != model.ChannelSMS {
			return validMessage{}, errors.New("'type' must be sms or mms")
		}
		out.From, out.To, out.Type = from, to, t
	case emailRoute:
		if !util.ValidEmail(*r.From) {
			return validMessage{}, errors.New("'from' must be a valid email address")
		}
		if !util.ValidEmail(*r.To) {
			return validMessage{}, errors.New("'to' must be a valid email address")
		}
		out.From = strings.ToLower(strings.TrimSpace(*r.From))
		out.To = strings.ToLower(strings.TrimSpace(*r.To))
		out.Type = model.TypeEmail
	}

	out.Attachments = make([]string, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		a = strings.TrimSpace(a)
		if a == "" {
			return validMessage{}, errors.New("attachments must be non-empty strings")
		}
		out.Attachments = append(out.Attachments, a)
	}

	ts, err := parseTimestamp(*r.Timestamp)
	if err != nil {
		return validMessage{}, err
	}
	out.Timestamp = ts

	if inbound {
		pid := strings.TrimSpace(*r.providerID(kind))
		if pid == "" {
			return validMessage{}, errors.New("provider message id must not be empty")
		}
		out.ProviderMessageID = pid
	}

	return out, nil
}
