package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexrep/pkg/config"
)

// openTestDB connects to DATABASE_URL or skips
func openTestDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNew(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, db.Ping(ctx))
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Greater(t, status.Stats.MaxConns, int32(0))
	assert.Empty(t, status.Error)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables
		 WHERE table_schema = 'replication' AND table_name = 'run_weights')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNew_WithoutURL(t *testing.T) {
	_, err := New(&config.Config{})
	assert.Error(t, err)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), config.DatabaseConfig{
		URL:             "invalid://url",
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	})
	assert.Error(t, err)
}

func TestClose_Twice(t *testing.T) {
	db := openTestDB(t)

	assert.NotPanics(t, func() {
		db.Close()
		db.Close()
	})
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schemaSQL, "data.daily_prices")
	assert.Contains(t, schemaSQL, "replication.runs")
	assert.Contains(t, schemaSQL, "replication.run_weights")
}
