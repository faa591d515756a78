package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// maxOpenConns bounds the pool; one archiver writes one row per frame
// so a handful of connections is plenty.
const maxOpenConns = 5

// Writer inserts frame records into a Postgres table with the layout
// (time timestamptz, device text, data jsonb).
type Writer struct {
	db     *sql.DB
	table  string
	device string
	logger *slog.Logger
}

// NewWriter opens a connection pool to Postgres. The connection is
// lazy; call Ping to verify it.
func NewWriter(connString, table, device string, logger *slog.Logger) (*Writer, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	return &Writer{
		db:     db,
		table:  table,
		device: device,
		logger: logger,
	}, nil
}

// Ping verifies the database is reachable.
func (w *Writer) Ping(ctx context.Context) error {
	if err := w.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the archive table and its time index if they
// do not exist.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	table := pq.QuoteIdentifier(w.table)

	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			time   TIMESTAMPTZ NOT NULL,
			device TEXT        NOT NULL,
			data   JSONB       NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (time)`,
			pq.QuoteIdentifier(w.table+"_time_idx"), table),
	}
	for _, stmt := range ddl {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	w.logger.Info("schema_ready", "table", w.table)
	return nil
}

// Write inserts one frame record stamped with the given time.
func (w *Writer) Write(ctx context.Context, at time.Time, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (time, device, data) VALUES ($1, $2, $3)`,
		pq.QuoteIdentifier(w.table))
	if _, err := w.db.ExecContext(ctx, stmt, at, w.device, data); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (w *Writer) Close() error {
	return w.db.Close()
}
