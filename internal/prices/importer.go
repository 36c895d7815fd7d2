package prices

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexrep/internal/contracts"
	"github.com/wonny/indexrep/pkg/logger"
)

const defaultImportBatch = 500

// Importer upserts long-format rows into data.daily_prices
type Importer struct {
	pool      *pgxpool.Pool
	logger    *logger.Logger
	batchSize int
}

// NewImporter creates a new importer
func NewImporter(pool *pgxpool.Pool, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{pool: pool, logger: log, batchSize: defaultImportBatch}
}

const upsertPriceQuery = `
	INSERT INTO data.daily_prices (symbol, trade_date, close_price)
	VALUES ($1, $2, $3)
	ON CONFLICT (symbol, trade_date) DO UPDATE SET
		close_price = EXCLUDED.close_price,
		updated_at = NOW()`

// Import writes rows in batches and returns how many were sent
func (i *Importer) Import(ctx context.Context, rows []contracts.PriceRow) (int, error) {
	written := 0
	for _, chunk := range chunkRows(rows, i.batchSize) {
		if err := i.sendBatch(ctx, chunk); err != nil {
			return written, fmt.Errorf("import batch at row %d: %w", written, err)
		}
		written += len(chunk)
		i.logger.Debugf("Imported %d/%d rows", written, len(rows))
	}

	i.logger.WithField("rows", written).Info("Price import completed")
	return written, nil
}

func (i *Importer) sendBatch(ctx context.Context, chunk []contracts.PriceRow) error {
	batch := &pgx.Batch{}
	for _, r := range chunk {
		batch.Queue(upsertPriceQuery, r.Symbol, r.Date, r.Close)
	}

	br := i.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunk {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func chunkRows(rows []contracts.PriceRow, size int) [][]contracts.PriceRow {
	if size < 1 {
		size = defaultImportBatch
	}
	var chunks [][]contracts.PriceRow
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
