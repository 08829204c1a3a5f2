package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"timetrack/internal/adapter/sqldb"
	"timetrack/internal/domain"
	"timetrack/internal/migrate"
)

const errDupEntry = 1062

// Dialect classifies MySQL duplicate-key errors. The open-session key is
// uq_time_entries_open.
var Dialect = sqldb.Dialect{
	Name:     migrate.MySQL,
	Classify: classify,
}

func classify(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDupEntry {
		return nil
	}
	if strings.Contains(me.Message, "uq_time_entries_open") {
		return domain.ErrSessionOpen
	}
	return domain.ErrDuplicate
}

// NewClient opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname
// parseTime, multiStatements and clientFoundRows are always switched on:
// the store scans DATETIME columns, migrations run as batches and
// compare-and-swap updates count matched rows.
func NewClient(ctx context.Context, dsn string, log *slog.Logger) (*sqldb.Store, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	// Conservative pool defaults.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("mysql connected", slog.String("addr", cfg.Addr), slog.String("db", cfg.DBName))
	return sqldb.New(db, Dialect, log), nil
}
