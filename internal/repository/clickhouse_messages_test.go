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

var recordCols = []string{
	"message_id", "conversation_id", "direction", "type", "from_address", "to_address",
	"provider_message_id", "attachments", "last_event", "ts", "created_at", "version",
}

func TestCHListAppliesFilters(t *testing.T) {
	db, mock := newMock(t, "clickhouse")
	now := time.Now().UTC()
	delivered := true

	mock.ExpectQuery(`FROM messaging.messages FINAL\s+WHERE 1 = 1\s+AND direction = \? AND type = \? AND \(from_address = \? OR to_address = \?\) AND provider_message_id != '' ORDER BY ts DESC LIMIT \? OFFSET \?`).
		WithArgs("outbound", "sms", "+15550000001", "+15550000001", 50, 10).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow("m1", "c1", "outbound", "sms", "+15550000001", "+15550000002", "sms-abc", uint32(0), "message.delivered", now, now, now))

	rows, err := NewCHMessagesRepository(db).List(context.Background(), ReportFilter{
		Direction: "outbound",
		Type:      "sms",
		Address:   "+15550000001",
		Delivered: &delivered,
		Limit:     0,
		Offset:    10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "message.delivered", rows[0].LastEvent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHInsertBatch(t *testing.T) {
	db, mock := newMock(t, "clickhouse")
	now := time.Now().UTC()
	rows := []model.MessageRecord{
		{MessageID: "m1", ConversationID: "c1", Direction: "outbound", Type: "sms", LastEvent: "message.created", Timestamp: now, CreatedAt: now, Version: now},
		{MessageID: "m1", ConversationID: "c1", Direction: "outbound", Type: "sms", ProviderMessageID: "sms-abc", LastEvent: "message.delivered", Timestamp: now, CreatedAt: now, Version: now.Add(time.Second)},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO messaging.messages`)
	prep.ExpectExec().WithArgs("m1", "c1", "outbound", "sms", "", "", "", int64(0), "message.created", now, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("m1", "c1", "outbound", "sms", "", "", "sms-abc", int64(0), "message.delivered", now, now, now.Add(time.Second)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewCHMessagesRepository(db).InsertBatch(context.Background(), rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHInsertBatchEmptyIsNoop(t *testing.T) {
	db, mock := newMock(t, "clickhouse")
	require.NoError(t, NewCHMessagesRepository(db).InsertBatch(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
