package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/db"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmehdipour/messaging-gateway/internal/repository"
	"github.com/jmehdipour/messaging-gateway/internal/util"
	"github.com/jmoiron/sqlx"
)

const DefaultEventsTopic = "messaging.events"

// maxSaveAttempts bounds how often Save reruns a transaction the database
// aborted as a deadlock or serialization victim.
const maxSaveAttempts = 3

// SaveInput carries everything the caller decides about a new message.
type SaveInput struct {
	Direction         model.Direction
	From              string
	To                string
	Type              model.MessageType
	Body              string
	Attachments       []string
	Timestamp         time.Time
	ProviderMessageID string // inbound only; empty leaves the column NULL
}

// Store persists messages together with their conversation and outbox event.
type Store struct {
	db            *sqlx.DB
	conversations repository.ConversationsRepository
	msgs          repository.MessagesRepository
	outbox        repository.OutboxRepository
	topic         string
	now           func() time.Time
}

func NewStore(
	db *sqlx.DB,
	conversationsRepo repository.ConversationsRepository,
	messagesRepo repository.MessagesRepository,
	outboxRepo repository.OutboxRepository,
	topic string,
) *Store {
	if topic == "" {
		topic = DefaultEventsTopic
	}
	return &Store{
		db:            db,
		conversations: conversationsRepo,
		msgs:          messagesRepo,
		outbox:        outboxRepo,
		topic:         topic,
		now:           time.Now,
	}
}

// Save resolves the conversation for (From, To), bumps its updated_at, inserts
// the message and writes a message.created event, all in one transaction.
// A transaction aborted as a deadlock victim is rerun up to maxSaveAttempts
// times. On error nothing is committed and no message is returned.
func (s *Store) Save(ctx context.Context, in SaveInput) (model.Message, error) {
	now := s.now().UTC()
	m := model.Message{
		ID:          util.New(),
		Direction:   in.Direction,
		From:        in.From,
		To:          in.To,
		Type:        in.Type,
		Body:        in.Body,
		Attachments: model.Attachments(in.Attachments),
		Timestamp:   in.Timestamp.UTC(),
		CreatedAt:   now,
	}
	if m.Attachments == nil {
		m.Attachments = model.Attachments{}
	}
	if in.ProviderMessageID != "" {
		pid := in.ProviderMessageID
		m.ProviderMessageID = &pid
	}

	var err error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		var saved model.Message
		saved, err = s.save(ctx, in, m, now)
		if err == nil {
			return saved, nil
		}
		if !db.IsTxConflict(err) || ctx.Err() != nil {
			break
		}
	}
	return model.Message{}, err
}

// save runs one Save transaction. The conversation row is locked exclusively
// by Touch before the message insert takes its foreign-key lock, so writers
// to the same pair queue up instead of deadlocking on a lock upgrade.
func (s *Store) save(ctx context.Context, in SaveInput, m model.Message, now time.Time) (model.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: begin: %w", ErrMessagePersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	conv, err := s.conversations.ResolveOrCreate(ctx, tx, in.From, in.To)
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %w", ErrConversationPersistence, err)
	}
	m.ConversationID = conv.ID

	if err := s.conversations.Touch(ctx, tx, conv.ID, now); err != nil {
		return model.Message{}, fmt.Errorf("%w: touch: %w", ErrConversationPersistence, err)
	}

	if err := s.msgs.Insert(ctx, tx, m); err != nil {
		return model.Message{}, fmt.Errorf("%w: insert: %w", ErrMessagePersistence, err)
	}

	if err := s.writeEvent(ctx, tx, model.EventMessageCreated, m, now); err != nil {
		return model.Message{}, fmt.Errorf("%w: %w", ErrMessagePersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Message{}, fmt.Errorf("%w: commit: %w", ErrMessagePersistence, err)
	}
	return m, nil
}

// AttachProviderID records the provider id on m exactly once and emits message.delivered.
func (s *Store) AttachProviderID(ctx context.Context, m model.Message, providerMessageID string) (model.Message, error) {
	if m.Delivered() {
		return m, ErrProviderIDAlreadySet
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return m, fmt.Errorf("%w: begin: %w", ErrMessagePersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	err = s.msgs.SetProviderID(ctx, tx, m.ID, providerMessageID)
	switch {
	case errors.Is(err, repository.ErrAlreadySet):
		return m, ErrProviderIDAlreadySet
	case errors.Is(err, repository.ErrNotFound):
		return m, fmt.Errorf("%w: %s", ErrMessageNotFound, m.ID)
	case err != nil:
		return m, fmt.Errorf("%w: set provider id: %w", ErrMessagePersistence, err)
	}

	delivered := m
	delivered.ProviderMessageID = &providerMessageID

	if err := s.writeEvent(ctx, tx, model.EventMessageDelivered, delivered, s.now().UTC()); err != nil {
		return m, fmt.Errorf("%w: %w", ErrMessagePersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return m, fmt.Errorf("%w: commit: %w", ErrMessagePersistence, err)
	}
	return delivered, nil
}

func (s *Store) writeEvent(ctx context.Context, tx *sqlx.Tx, t model.EventType, m model.Message, at time.Time) error {
	env := model.Envelope{
		EventID:    util.New(),
		EventType:  t,
		OccurredAt: at,
		Message:    model.NewMessageEvent(m),
	}
	if err := s.outbox.Append(ctx, tx, s.topic, env); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
