package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/config"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory database. The pool is pinned to one
// connection because every sqlite memory connection is its own database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}
