package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// messageAggregate is the outbox aggregate name for message events.
const messageAggregate = "message"

// OutboxRepository writes message events next to the rows they describe.
// A CDC relay (Debezium outbox SMT) publishes each row to Kafka under its topic.
type OutboxRepository interface {
	Append(ctx context.Context, tx *sqlx.Tx, topic string, env model.Envelope) error
}

type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

// Append must run inside the caller's transaction; an event without its row is never written.
func (r *OutboxRepositoryImpl) Append(ctx context.Context, tx *sqlx.Tx, topic string, env model.Envelope) error {
	if tx == nil {
		return errors.New("outbox append needs a transaction")
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.EventType, err)
	}

	const q = `
		INSERT INTO outbox (aggregate, aggregate_id, topic, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, tx.Rebind(q), messageAggregate, env.Message.ID, topic, string(payload), time.Now().UTC())
	return err
}
