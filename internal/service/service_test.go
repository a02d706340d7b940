package service

import (
	"path/filepath"
	"testing"

	"github.com/aman-churiwal/quota-gate/internal/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *storage.Postgres {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	pg := &storage.Postgres{DB: db}
	require.NoError(t, pg.AutoMigrate())

	return pg
}
