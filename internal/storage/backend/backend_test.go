package backend_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combat-tracker/internal/config"
	"github.com/cory-johannsen/combat-tracker/internal/storage/backend"
	"github.com/cory-johannsen/combat-tracker/internal/storage/memory"
	"github.com/cory-johannsen/combat-tracker/internal/storage/sqlite"
	"github.com/cory-johannsen/combat-tracker/internal/storage/storagetest"
)

func TestOpen_Memory(t *testing.T) {
	s, err := backend.Open(context.Background(), config.StorageConfig{Driver: config.DriverMemory}, config.DatabaseConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &memory.Store{}, s)
}

func TestOpen_SQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracker.db")
	s, err := backend.Open(context.Background(), config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: path}, config.DatabaseConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &sqlite.Store{}, s)
	require.NoError(t, s.Save(context.Background(), storagetest.Fixture("e1", true)))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := backend.Open(context.Background(), config.StorageConfig{Driver: "etcd"}, config.DatabaseConfig{}, zap.NewNop())
	assert.Error(t, err)
}
