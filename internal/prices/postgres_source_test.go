package prices

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/config"
	"github.com/wonny/indexrep/pkg/database"
)

func TestBuildPriceQuery(t *testing.T) {
	query, args := buildPriceQuery(contracts.PriceQuery{})
	assert.Empty(t, args)
	assert.NotContains(t, query, "$1")
	assert.Contains(t, query, "ORDER BY trade_date ASC, symbol ASC")

	query, args = buildPriceQuery(contracts.PriceQuery{
		From:    day(1),
		To:      day(5),
		Symbols: []string{".DJI", "AAPL"},
	})
	require.Len(t, args, 3)
	assert.Contains(t, query, "trade_date >= $1")
	assert.Contains(t, query, "trade_date <= $2")
	assert.Contains(t, query, "symbol = ANY($3)")
	assert.Equal(t, []string{".DJI", "AAPL"}, args[2])

	query, args = buildPriceQuery(contracts.PriceQuery{Symbols: []string{"X"}})
	require.Len(t, args, 1)
	assert.Contains(t, query, "symbol = ANY($1)")
}

func TestChunkRows(t *testing.T) {
	rows := make([]contracts.PriceRow, 7)

	chunks := chunkRows(rows, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[2], 1)

	assert.Len(t, chunkRows(rows, 0), 1)
	assert.Empty(t, chunkRows(nil, 3))
}

func TestPostgresRoundTrip(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	db, err := database.New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	rows := []contracts.PriceRow{
		{Date: day(1), Symbol: "ZZTEST_IDX", Close: 100},
		{Date: day(1), Symbol: "ZZTEST_A", Close: 10},
		{Date: day(2), Symbol: "ZZTEST_IDX", Close: 101},
		{Date: day(2), Symbol: "ZZTEST_A", Close: 11},
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(ctx, `DELETE FROM data.daily_prices WHERE symbol LIKE 'ZZTEST_%'`)
	})

	n, err := NewImporter(db.Pool, nil).Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	m, err := NewPostgresSource(db.Pool, nil).Load(ctx, contracts.PriceQuery{
		Symbols: []string{"ZZTEST_IDX", "ZZTEST_A"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZTEST_A", "ZZTEST_IDX"}, m.Symbols())
	assert.Equal(t, 2, m.Rows())
}
