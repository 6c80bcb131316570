package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/fin-advisor/internal/chat"
	"github.com/suPer8Hu/fin-advisor/internal/finance"
)

func TestConnectAndMigrate_SQLite(t *testing.T) {
	gdb, err := Connect("sqlite", "file:TestConnectAndMigrate?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(gdb))
	for _, table := range []any{&chat.Session{}, &chat.Message{}, &chat.Job{}, &chat.ActionEvent{}, &finance.Transaction{}, &finance.Goal{}} {
		assert.True(t, gdb.Migrator().HasTable(table))
	}
	require.NoError(t, Migrate(gdb), "migrate is repeatable")
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect("postgres", "whatever")
	assert.Error(t, err)
}
