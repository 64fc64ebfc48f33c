// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog looks up products and their manual metadata in the
// relational product store. SQLite and PostgreSQL are supported; every
// statement is parameterized and no identifier is ever formatted into
// query text.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/manual-preview/pkg/types"
)

// defaultSQLitePath is used when the sqlite3 driver is selected without a DSN.
const defaultSQLitePath = "catalog/catalog.db"

// sqlitePragmas are appended to file path DSNs.
const sqlitePragmas = "_journal_mode=WAL&_busy_timeout=5000"

// ErrStorage marks failures of the underlying connection, query, or scan.
var ErrStorage = errors.New("storage error")

// Store reads product records from the product table. The sponsored set is
// fixed at construction and shared read-only by all calls.
type Store struct {
	db        *sql.DB
	driver    types.DatabaseDriver
	sponsored []types.ProductID
	log       zerolog.Logger
}

// NewStore opens the configured database and creates the product table if
// it does not exist.
func NewStore(cfg types.CatalogConfig, sponsored []types.ProductID, log zerolog.Logger) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = types.DriverSQLite
	}

	dsn, err := dataSource(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s database: %w", ErrStorage, driver, err)
	}
	if driver == types.DriverSQLite && isMemoryDSN(dsn) {
		// Every connection to an in-memory database sees its own empty
		// database; pin the pool to a single connection that is never closed.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	s, err := OpenDB(db, driver, sponsored, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB wraps an existing handle. The caller keeps ownership of db only if
// it never calls Close on the returned Store.
func OpenDB(db *sql.DB, driver types.DatabaseDriver, sponsored []types.ProductID, log zerolog.Logger) (*Store, error) {
	switch driver {
	case types.DriverSQLite, types.DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q: use %s or %s",
			driver, types.DriverSQLite, types.DriverPostgres)
	}

	return &Store{
		db:        db,
		driver:    driver,
		sponsored: append([]types.ProductID(nil), sponsored...),
		log:       log.With().Str("component", "catalog").Logger(),
	}, nil
}

func dataSource(driver types.DatabaseDriver, dsn string) (string, error) {
	switch driver {
	case types.DriverSQLite:
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		if isMemoryDSN(dsn) || strings.HasPrefix(dsn, "file:") {
			return dsn, nil
		}
		path, _, hasQuery := strings.Cut(dsn, "?")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("creating catalog directory: %w", err)
		}
		sep := "?"
		if hasQuery {
			sep = "&"
		}
		return dsn + sep + sqlitePragmas, nil
	case types.DriverPostgres:
		if dsn == "" {
			return "", errors.New("postgres driver requires database.dsn")
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q: use %s or %s",
			driver, types.DriverSQLite, types.DriverPostgres)
	}
}

// isMemoryDSN reports whether dsn names an in-memory sqlite database.
func isMemoryDSN(dsn string) bool {
	if dsn == ":memory:" || strings.HasPrefix(dsn, ":memory:?") || strings.HasPrefix(dsn, "file::memory:") {
		return true
	}
	return strings.HasPrefix(dsn, "file:") && strings.Contains(dsn, "mode=memory")
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

// Driver reports which database backs the store.
func (s *Store) Driver() types.DatabaseDriver { return s.driver }

// Sponsored returns a copy of the sponsored identifiers.
func (s *Store) Sponsored() []types.ProductID {
	return append([]types.ProductID(nil), s.sponsored...)
}

func (s *Store) createSchema(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS product (
		product_id TEXT PRIMARY KEY,
		product_manual_data TEXT NOT NULL DEFAULT ''
	)`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%w: creating product table: %w", ErrStorage, err)
	}
	return nil
}

// rebind rewrites '?' placeholders into the driver's bind syntax.
func (s *Store) rebind(query string) string {
	if s.driver != types.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// idStrings converts ids for pq.Array, which needs a concrete []string.
func idStrings(ids []types.ProductID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
