package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxAppend(t *testing.T) {
	db, mock := newMock(t, "pgx")
	tx := beginTx(t, db, mock)

	env := model.Envelope{
		EventID:    "01J0000000000000000000000E",
		EventType:  model.EventMessageCreated,
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Message:    model.MessageEvent{ID: "01J0000000000000000000000M", Type: model.TypeSMS},
	}

	mock.ExpectExec(regexp.QuoteMeta(`VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs("message", "01J0000000000000000000000M", "messaging.events",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewOutboxRepository(db).Append(context.Background(), tx, "messaging.events", env))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxAppendNeedsTx(t *testing.T) {
	db, _ := newMock(t, "mysql")
	err := NewOutboxRepository(db).Append(context.Background(), nil, "messaging.events", model.Envelope{})
	assert.Error(t, err)
}
