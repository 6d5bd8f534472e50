// Package storage is the durable cost store: one SQLite database per name,
// versioned through embedded migrations, with costs indexed by (year, month).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"costs/internal/core"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema shipped in migrations/.
const CurrentSchemaVersion uint = 1

// Store is a caller-owned handle to an opened cost database. It is safe for
// concurrent use; writes are serialized on a single connection.
type Store struct {
	db      *sql.DB
	queries *queries
	now     func() time.Time
	name    string
}

// Option customizes a Store at open time.
type Option func(*Store)

// WithClock replaces the wall clock used to date inserted costs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the database at name and upgrades its schema to version.
// Opening an existing database at the same version changes nothing.
func Open(ctx context.Context, name string, version uint, opts ...Option) (*Store, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty database name", core.ErrStoreOpen)
	}
	if version == 0 {
		return nil, fmt.Errorf("%w: schema version must be at least 1", core.ErrStoreOpen)
	}

	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %w", core.ErrStoreOpen, err)
	}

	dsn := name + "?_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %w", core.ErrStoreOpen, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", core.ErrStoreOpen, err)
	}

	if err := RunMigrations(dsn, version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", core.ErrStoreOpen, err)
	}

	s := &Store{
		db:      db,
		queries: newQueries(db),
		now:     time.Now,
		name:    name,
	}
	for _, opt := range opts {
		opt(s)
	}

	slog.InfoContext(ctx, "Cost store opened", "name", name, "schema_version", version)
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// AddCost stores c, dating it from the store clock. The inserted record is
// returned with its assigned id. Input is stored verbatim; validation is the
// caller's job.
func (s *Store) AddCost(ctx context.Context, c core.NewCost) (core.CostItem, error) {
	year, month, day := s.now().Date()
	item := core.CostItem{
		Sum:         c.Sum,
		Currency:    c.Currency,
		Category:    c.Category,
		Description: c.Description,
		Year:        year,
		Month:       int(month),
		Day:         day,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.CostItem{}, fmt.Errorf("%w: begin transaction: %w", core.ErrWrite, err)
	}
	defer tx.Rollback()

	id, err := s.queries.withTx(tx).insertCost(ctx, item)
	if err != nil {
		return core.CostItem{}, fmt.Errorf("%w: insert cost: %w", core.ErrWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return core.CostItem{}, fmt.Errorf("%w: commit: %w", core.ErrWrite, err)
	}
	item.ID = id

	slog.InfoContext(ctx, "Cost saved",
		"id", item.ID,
		"sum", item.Sum,
		"currency", item.Currency,
		"category", item.Category,
		"year", item.Year,
		"month", item.Month,
		"day", item.Day)

	return item, nil
}

// QueryByMonth returns the costs dated in (year, month) in insertion order.
// No match is an empty slice, not an error.
func (s *Store) QueryByMonth(ctx context.Context, year, month int) ([]core.CostItem, error) {
	items, err := s.queries.costsByMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("%w: costs for %04d-%02d: %w", core.ErrRead, year, month, err)
	}
	return items, nil
}

// SchemaVersion reports the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (uint, error) {
	version, dirty, err := s.queries.schemaVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: schema version: %w", core.ErrRead, err)
	}
	if dirty {
		return version, fmt.Errorf("%w: schema version %d is dirty", core.ErrRead, version)
	}
	return version, nil
}

// Name returns the database name the store was opened with.
func (s *Store) Name() string {
	return s.name
}
