package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// ReportFilter narrows a reporting query. Zero values mean "any".
type ReportFilter struct {
	Direction string
	Type      string
	Address   string // matches either side
	Delivered *bool
	Limit     int
	Offset    int
}

// CHMessagesRepository reads and writes the ClickHouse reporting table.
type CHMessagesRepository interface {
	List(ctx context.Context, f ReportFilter) ([]model.MessageRecord, error)
	InsertBatch(ctx context.Context, rows []model.MessageRecord) error
}

type chMessagesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHMessagesRepository(ch *sqlx.DB) CHMessagesRepository {
	return &chMessagesRepository{ch: ch}
}

func (r *chMessagesRepository) List(ctx context.Context, f ReportFilter) ([]model.MessageRecord, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT message_id, conversation_id, direction, type, from_address, to_address,
		       provider_message_id, attachments, last_event, ts, created_at, version
		FROM messaging.messages FINAL
		WHERE 1 = 1
	`
	args := []any{}

	if f.Direction != "" {
		q += " AND direction = ?"
		args = append(args, f.Direction)
	}
	if f.Type != "" {
		q += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.Address != "" {
		q += " AND (from_address = ? OR to_address = ?)"
		args = append(args, f.Address, f.Address)
	}
	if f.Delivered != nil {
		if *f.Delivered {
			q += " AND provider_message_id != ''"
		} else {
			q += " AND provider_message_id = ''"
		}
	}

	q += " ORDER BY ts DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows := []model.MessageRecord{}
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertBatch writes rows in one ClickHouse batch (prepare + exec per row + commit).
func (r *chMessagesRepository) InsertBatch(ctx context.Context, rows []model.MessageRecord) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messaging.messages
		    (message_id, conversation_id, direction, type, from_address, to_address,
		     provider_message_id, attachments, last_event, ts, created_at, version)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, rw := range rows {
		if _, err := stmt.ExecContext(ctx,
			rw.MessageID, rw.ConversationID, rw.Direction, rw.Type, rw.From, rw.To,
			rw.ProviderMessageID, rw.Attachments, rw.LastEvent, rw.Timestamp, rw.CreatedAt, rw.Version,
		); err != nil {
			return fmt.Errorf("append %s: %w", rw.MessageID, err)
		}
	}

	return tx.Commit()
}
