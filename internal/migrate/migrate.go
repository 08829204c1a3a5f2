package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql
var migrationsFS embed.FS

// Dialects with an embedded migration set.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Run applies pending migrations found under internal/migrate/sql/<dialect>.
// Migrations must be named like 0001_description.sql and are executed in
// lexicographic order. Each file is executed as a single statement batch;
// MySQL DSNs need multiStatements=true.
func Run(ctx context.Context, db *sql.DB, dialect string, log *slog.Logger) error {
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		return err
	}

	if err := ensureMigrationsTable(ctx, db, dialect); err != nil {
		return err
	}

	files, err := fs.Glob(migrationsFS, path.Join("sql", dialect, "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}
	sort.Strings(files)

	applied, err := loadApplied(ctx, db)
	if err != nil {
		return err
	}

	for _, f := range files {
		base := path.Base(f)
		ver, err := parseVersion(base)
		if err != nil {
			return fmt.Errorf("invalid migration filename %q: %w", base, err)
		}
		if applied[ver] {
			log.Debug("migration already applied", slog.Int("version", ver), slog.String("file", base))
			continue
		}
		b, err := fs.ReadFile(migrationsFS, f)
		if err != nil {
			return err
		}
		log.Info("applying migration", slog.String("dialect", dialect), slog.Int("version", ver), slog.String("file", base))
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("applying %s: %w", base, err)
		}
		if err := recordApplied(ctx, db, dialect, ver); err != nil {
			return err
		}
	}
	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB, dialect string) error {
	var ddl string
	switch dialect {
	case MySQL:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version BIGINT PRIMARY KEY,
        applied_at DATETIME(6) NOT NULL
    ) ENGINE=InnoDB;`
	case Postgres:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version BIGINT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL
    );`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL
    );`
	}
	_, err := db.ExecContext(ctx, ddl)
	return err
}

func loadApplied(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		m[v] = true
	}
	return m, rows.Err()
}

func recordApplied(ctx context.Context, db *sql.DB, dialect string, version int) error {
	q := "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)"
	if dialect == Postgres {
		q = "INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)"
	}
	_, err := db.ExecContext(ctx, q, version, time.Now().UTC())
	return err
}

func parseVersion(name string) (int, error) {
	// Expect prefix like 0001_...
	i := strings.IndexByte(name, '_')
	if i <= 0 {
		return 0, fmt.Errorf("missing prefix number")
	}
	v, err := strconv.Atoi(name[:i])
	if err != nil {
		return 0, err
	}
	return v, nil
}
