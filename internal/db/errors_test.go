package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))

	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1213, Message: "Deadlock"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsTxConflict(t *testing.T) {
	assert.True(t, IsTxConflict(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.True(t, IsTxConflict(fmt.Errorf("touch: %w", &mysql.MySQLError{Number: 1205})))
	assert.True(t, IsTxConflict(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsTxConflict(&pgconn.PgError{Code: "40001"}))

	assert.False(t, IsTxConflict(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsTxConflict(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsTxConflict(errors.New("boom")))
	assert.False(t, IsTxConflict(nil))
}

func TestSQLDriverName(t *testing.T) {
	name, err := sqlDriverName("")
	assert.NoError(t, err)
	assert.Equal(t, "mysql", name)

	name, err = sqlDriverName("postgres")
	assert.NoError(t, err)
	assert.Equal(t, "pgx", name)

	_, err = sqlDriverName("sqlite")
	assert.Error(t, err)
}
