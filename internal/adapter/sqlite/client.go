package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"

	"timetrack/internal/adapter/sqldb"
	"timetrack/internal/domain"
	"timetrack/internal/migrate"
)

// Dialect classifies SQLite unique violations. The partial index on open
// entries reports its column as time_entries.worker_id.
var Dialect = sqldb.Dialect{
	Name:     migrate.SQLite,
	Classify: classify,
}

func classify(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return nil
	}
	if se.ExtendedCode != sqlite3.ErrConstraintUnique && se.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return nil
	}
	if strings.Contains(se.Error(), "time_entries.worker_id") {
		return domain.ErrSessionOpen
	}
	return domain.ErrDuplicate
}

// NewClient opens the SQLite database at path (":memory:" for a private
// in-memory database) with foreign keys enforced.
func NewClient(ctx context.Context, path string, log *slog.Logger) (*sqldb.Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_foreign_keys=on&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("sqlite opened", slog.String("path", path))
	return sqldb.New(db, Dialect, log), nil
}
