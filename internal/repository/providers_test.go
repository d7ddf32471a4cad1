package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvidersUpsertDialects(t *testing.T) {
	p := model.Provider{Name: "sms-gateway", Type: model.ChannelSMS}

	db, mock := newMock(t, "mysql")
	mock.ExpectExec(regexp.QuoteMeta(`ON DUPLICATE KEY UPDATE type = VALUES(type)`)).
		WithArgs("sms-gateway", "sms").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, NewProvidersRepository(db).Upsert(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())

	pg, pgMock := newMock(t, "pgx")
	pgMock.ExpectExec(regexp.QuoteMeta(`VALUES ($1, $2) ON CONFLICT (name) DO UPDATE`)).
		WithArgs("sms-gateway", "sms").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, NewProvidersRepository(pg).Upsert(context.Background(), p))
	require.NoError(t, pgMock.ExpectationsWereMet())
}

func TestProvidersList(t *testing.T) {
	db, mock := newMock(t, "mysql")
	mock.ExpectQuery(`SELECT id, name, type FROM providers`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type"}).
			AddRow(2, "email-relay", "email").
			AddRow(1, "sms-gateway", "sms"))

	list, err := NewProvidersRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.ChannelEmail, list[0].Type)
	assert.Equal(t, int64(1), list[1].ID)
}
