package database

import (
	"path/filepath"
	"testing"

	"spending-guard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector_UnsupportedDriver(t *testing.T) {
	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInitialize_SQLiteFile(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			SQLitePath:   filepath.Join(t.TempDir(), "guard.db"),
			MaxIdleConns: 1,
		},
	}

	db, err := Initialize(cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.HealthCheck())
	assert.True(t, db.Migrator().HasTable("transactions"))
	assert.True(t, db.Migrator().HasTable("preferences"))
}

func TestSetupTestDB_Migrates(t *testing.T) {
	db := SetupTestDB(t)

	assert.True(t, db.Migrator().HasTable("transactions"))
	assert.True(t, db.Migrator().HasTable("preferences"))
	CleanupTestDB(t, db)
}
