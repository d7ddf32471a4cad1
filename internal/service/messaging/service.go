package messaging

import (
	"context"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/dispatcher"
	"github.com/jmehdipour/messaging-gateway/internal/metrics"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"go.uber.org/zap"
)

// MessageStore is the persistence side used by Service.
type MessageStore interface {
	Save(ctx context.Context, in SaveInput) (model.Message, error)
	AttachProviderID(ctx context.Context, m model.Message, providerMessageID string) (model.Message, error)
}

// Deliverer sends one payload through the provider configured for t.
type Deliverer interface {
	Deliver(ctx context.Context, t model.MessageType, p dispatcher.Payload) (string, bool, error)
}

// OutboundMessage is a validated send request.
type OutboundMessage struct {
	From        string
	To          string
	Type        model.MessageType
	Body        string
	Attachments []string
	Timestamp   time.Time
}

// InboundMessage is a validated provider webhook.
type InboundMessage struct {
	From              string
	To                string
	Type              model.MessageType
	Body              string
	Attachments       []string
	Timestamp         time.Time
	ProviderMessageID string
}

type Service struct {
	store    MessageStore
	dispatch Deliverer
	log      *zap.Logger
}

func NewService(store MessageStore, dispatch Deliverer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, dispatch: dispatch, log: log}
}

// SendMessage stores the outbound message first, then delivers it. Delivery
// failures leave provider_message_id empty and do not fail the call; only
// persistence and configuration errors are returned.
func (s *Service) SendMessage(ctx context.Context, in OutboundMessage) (model.Message, error) {
	m, err := s.store.Save(ctx, SaveInput{
		Direction:   model.DirectionOutbound,
		From:        in.From,
		To:          in.To,
		Type:        in.Type,
		Body:        in.Body,
		Attachments: in.Attachments,
		Timestamp:   in.Timestamp,
	})
	if err != nil {
		metrics.MessagesTotal.WithLabelValues(model.DirectionOutbound.String(), in.Type.String(), "failed").Inc()
		s.log.Error("save outbound message", zap.String("type", in.Type.String()), zap.Error(err))
		return model.Message{}, err
	}
	metrics.MessagesTotal.WithLabelValues(m.Direction.String(), m.Type.String(), "stored").Inc()

	// the row exists now; a client disconnect must not abort the send or the attach
	dctx := context.WithoutCancel(ctx)

	log := s.log.With(zap.String("message_id", m.ID), zap.String("type", m.Type.String()))

	id, ok, err := s.dispatch.Deliver(dctx, m.Type, dispatcher.NewPayload(m))
	if err != nil {
		log.Error("no provider for message type", zap.Error(err))
		return model.Message{}, err
	}
	if !ok {
		metrics.MessagesTotal.WithLabelValues(m.Direction.String(), m.Type.String(), "undelivered").Inc()
		log.Info("message stored without provider id")
		return m, nil
	}

	delivered, err := s.store.AttachProviderID(dctx, m, id)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues(m.Direction.String(), m.Type.String(), "undelivered").Inc()
		log.Error("attach provider id", zap.String("provider_message_id", id), zap.Error(err))
		return m, nil
	}

	metrics.MessagesTotal.WithLabelValues(m.Direction.String(), m.Type.String(), "delivered").Inc()
	return delivered, nil
}

// ReceiveMessage records a message a provider already delivered to us. No provider is called.
func (s *Service) ReceiveMessage(ctx context.Context, in InboundMessage) (model.Message, error) {
	m, err := s.store.Save(ctx, SaveInput{
		Direction:         model.DirectionInbound,
		From:              in.From,
		To:                in.To,
		Type:              in.Type,
		Body:              in.Body,
		Attachments:       in.Attachments,
		Timestamp:         in.Timestamp,
		ProviderMessageID: in.ProviderMessageID,
	})
	if err != nil {
		metrics.MessagesTotal.WithLabelValues(model.DirectionInbound.String(), in.Type.String(), "failed").Inc()
		s.log.Error("save inbound message", zap.String("type", in.Type.String()), zap.Error(err))
		return model.Message{}, err
	}

	metrics.MessagesTotal.WithLabelValues(m.Direction.String(), m.Type.String(), "stored").Inc()
	return m, nil
}
