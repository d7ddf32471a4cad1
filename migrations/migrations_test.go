package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	got := Split(`
-- schema
CREATE TABLE a (
    id INT
);

CREATE TABLE b (id INT);
SELECT 1`)

	require.Len(t, got, 3)
	assert.True(t, strings.HasPrefix(got[0], "CREATE TABLE a ("))
	assert.False(t, strings.HasSuffix(got[0], ";"))
	assert.Equal(t, "CREATE TABLE b (id INT)", got[1])
	assert.Equal(t, "SELECT 1", got[2])
}

func TestStatementsPerDialect(t *testing.T) {
	stmts, err := Statements("mysql")
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], "uq_conversations_pair")
	assert.Contains(t, stmts[1], "messages")

	stmts, err = Statements("postgres")
	require.NoError(t, err)
	require.Len(t, stmts, 7)
	assert.Contains(t, stmts[0], "uq_conversations_pair UNIQUE")
	assert.Contains(t, stmts[4], "idx_messages_conversation_ts")

	stmts, err = Statements("clickhouse")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "ReplacingMergeTree(version)")

	_, err = Statements("sqlite")
	assert.Error(t, err)
}
