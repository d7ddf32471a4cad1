package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageCols = []string{
	"id", "conversation_id", "direction", "from_address", "to_address", "type", "body",
	"attachments", "provider_message_id", "ts", "created_at",
}

func TestMessagesInsert(t *testing.T) {
	db, mock := newMock(t, "mysql")
	repo := NewMessagesRepository(db)
	tx := beginTx(t, db, mock)

	ts := time.Date(2024, 11, 1, 14, 0, 0, 0, time.UTC)
	m := model.Message{
		ID:             "m1",
		ConversationID: "c1",
		Direction:      model.DirectionOutbound,
		From:           "+15550000001",
		To:             "+15550000002",
		Type:           model.TypeMMS,
		Body:           "hi",
		Attachments:    model.Attachments{"https://example.com/a.png"},
		Timestamp:      ts,
		CreatedAt:      ts,
	}

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("m1", "c1", "outbound", "+15550000001", "+15550000002", "mms", "hi",
			`["https://example.com/a.png"]`, nil, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), tx, m))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMessagesSetProviderID(t *testing.T) {
	t.Run("sets once", func(t *testing.T) {
		db, mock := newMock(t, "mysql")
		tx := beginTx(t, db, mock)
		mock.ExpectExec(`UPDATE messages SET provider_message_id = \? WHERE id = \? AND provider_message_id IS NULL`).
			WithArgs("sms-abc", "m1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewMessagesRepository(db).SetProviderID(context.Background(), tx, "m1", "sms-abc"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already set", func(t *testing.T) {
		db, mock := newMock(t, "mysql")
		tx := beginTx(t, db, mock)
		mock.ExpectExec(`UPDATE messages`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT provider_message_id FROM messages`).
			WithArgs("m1").
			WillReturnRows(sqlmock.NewRows([]string{"provider_message_id"}).AddRow("sms-old"))

		err := NewMessagesRepository(db).SetProviderID(context.Background(), tx, "m1", "sms-abc")
		require.ErrorIs(t, err, ErrAlreadySet)
	})

	t.Run("missing message", func(t *testing.T) {
		db, mock := newMock(t, "pgx")
		tx := beginTx(t, db, mock)
		mock.ExpectExec(`UPDATE messages`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT provider_message_id FROM messages`).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"provider_message_id"}))

		err := NewMessagesRepository(db).SetProviderID(context.Background(), tx, "nope", "sms-abc")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessagesListByConversation(t *testing.T) {
	db, mock := newMock(t, "mysql")
	ts := time.Date(2024, 11, 1, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE conversation_id = \?\s+ORDER BY ts ASC`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow("m1", "c1", "inbound", "+15550000002", "+15550000001", "sms", "yo", "[]", nil, ts, ts).
			AddRow("m2", "c1", "outbound", "+15550000001", "+15550000002", "mms", "hi", `["https://x/a.png"]`, "sms-abc", ts.Add(time.Minute), ts))

	rows, err := NewMessagesRepository(db).ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, model.DirectionInbound, rows[0].Direction)
	assert.False(t, rows[0].Delivered())
	assert.Empty(t, rows[0].Attachments)

	assert.Equal(t, model.TypeMMS, rows[1].Type)
	assert.Equal(t, model.Attachments{"https://x/a.png"}, rows[1].Attachments)
	require.True(t, rows[1].Delivered())
	assert.Equal(t, "sms-abc", *rows[1].ProviderMessageID)
}
