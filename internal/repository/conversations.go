package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmehdipour/messaging-gateway/internal/db"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmehdipour/messaging-gateway/internal/util"
	"github.com/jmoiron/sqlx"
)

// maxResolveAttempts bounds the lookup/insert loop; a second pass normally suffices.
const maxResolveAttempts = 3

// ConversationsRepository resolves and lists conversations.
type ConversationsRepository interface {
	// ResolveOrCreate returns the conversation for the unordered pair {a, b}, inserting it
	// inside tx when absent. Concurrent callers for the same new pair end up on one row.
	ResolveOrCreate(ctx context.Context, tx *sqlx.Tx, a, b string) (model.Conversation, error)
	Touch(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error
	List(ctx context.Context) ([]model.Conversation, error)
}

type ConversationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewConversationsRepository(db *sqlx.DB) *ConversationsRepositoryImpl {
	return &ConversationsRepositoryImpl{db: db}
}

var _ ConversationsRepository = (*ConversationsRepositoryImpl)(nil)

func (r *ConversationsRepositoryImpl) ResolveOrCreate(ctx context.Context, tx *sqlx.Tx, a, b string) (model.Conversation, error) {
	low, high := model.PairKey(a, b)

	locking := false
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		existing, err := r.findByPair(ctx, tx, low, high, locking)
		if err != nil {
			return model.Conversation{}, err
		}
		if existing != nil {
			return *existing, nil
		}

		now := time.Now().UTC()
		c := model.Conversation{
			ID:           util.New(),
			Participant1: a,
			Participant2: b,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		inserted, err := r.insert(ctx, tx, c, low, high)
		if err != nil {
			return model.Conversation{}, err
		}
		if inserted {
			return c, nil
		}

		// Another writer committed the pair first. A locking read sees the latest
		// committed row even under a repeatable-read snapshot. It takes the row
		// exclusively because the caller's Touch would otherwise need a lock upgrade.
		locking = true
	}

	return model.Conversation{}, ErrPairConflict
}

func (r *ConversationsRepositoryImpl) findByPair(ctx context.Context, tx *sqlx.Tx, low, high string, locking bool) (*model.Conversation, error) {
	q := `
		SELECT id, participant_1, participant_2, created_at, updated_at
		  FROM conversations
		 WHERE participant_low = ? AND participant_high = ?
	`
	if locking {
		q += " FOR UPDATE"
	}

	var c model.Conversation
	err := tx.GetContext(ctx, &c, tx.Rebind(q), low, high)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// insert reports false when the pair already exists.
func (r *ConversationsRepositoryImpl) insert(ctx context.Context, tx *sqlx.Tx, c model.Conversation, low, high string) (bool, error) {
	q := `
		INSERT INTO conversations
		    (id, participant_1, participant_2, participant_low, participant_high, created_at, updated_at)
		VALUES
		    (?,  ?,             ?,             ?,               ?,                ?,          ?)
	`
	if !db.IsMySQL(tx) {
		// a failed statement aborts a Postgres transaction, so avoid raising the violation
		q += " ON CONFLICT (participant_low, participant_high) DO NOTHING"
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(q),
		c.ID, c.Participant1, c.Participant2, low, high, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Touch bumps updated_at so listings surface the most recently active conversations first.
func (r *ConversationsRepositoryImpl) Touch(ctx context.Context, tx *sqlx.Tx, id string, at time.Time) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE conversations SET updated_at = ? WHERE id = ?`), at, id)
	return err
}

// List returns every conversation, most recently updated first.
func (r *ConversationsRepositoryImpl) List(ctx context.Context) ([]model.Conversation, error) {
	rows := []model.Conversation{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, participant_1, participant_2, created_at, updated_at
		  FROM conversations
		 ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
