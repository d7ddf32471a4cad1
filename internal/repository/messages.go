package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// MessagesRepository defines persistence for the messages table.
type MessagesRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, m model.Message) error
	// SetProviderID fills provider_message_id once; ErrAlreadySet if it was present,
	// ErrNotFound if the message does not exist.
	SetProviderID(ctx context.Context, tx *sqlx.Tx, id, providerMessageID string) error
	ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
}

type MessagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMessagesRepository(db *sqlx.DB) *MessagesRepositoryImpl {
	return &MessagesRepositoryImpl{db: db}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

func (r *MessagesRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// Insert writes a new message row.
func (r *MessagesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, m model.Message) error {
	const q = `
		INSERT INTO messages
		    (id, conversation_id, direction, from_address, to_address, type, body, attachments, provider_message_id, ts, created_at)
		VALUES
		    (?,  ?,               ?,         ?,            ?,          ?,    ?,    ?,           ?,                   ?,  ?)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(q),
			m.ID, m.ConversationID, m.Direction.String(), m.From, m.To, m.Type.String(),
			m.Body, m.Attachments, m.ProviderMessageID, m.Timestamp, m.CreatedAt,
		)
		return err
	})
}

func (r *MessagesRepositoryImpl) SetProviderID(ctx context.Context, tx *sqlx.Tx, id, providerMessageID string) error {
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE messages SET provider_message_id = ? WHERE id = ? AND provider_message_id IS NULL`),
			providerMessageID, id,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}

		var existing sql.NullString
		err = tx.QueryRowxContext(ctx, tx.Rebind(`SELECT provider_message_id FROM messages WHERE id = ?`), id).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadySet
	})
}

// ListByConversation returns the conversation's messages ordered by their logical timestamp.
func (r *MessagesRepositoryImpl) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows := []model.Message{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, conversation_id, direction, from_address, to_address, type, body,
		       attachments, provider_message_id, ts, created_at
		  FROM messages
		 WHERE conversation_id = ?
		 ORDER BY ts ASC, created_at ASC, id ASC
	`), conversationID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
