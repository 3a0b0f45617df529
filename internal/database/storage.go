package database

import (
	"context"
	"strings"

	"WooWithBizimHesap/pkg/logging"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Open connects to the configured store and makes sure the schema exists.
func Open(driver, dsn string) (*sqlx.DB, error) {
	logger := logging.GetLogger()
	logger.Debug("Start database.Open")
	defer logger.Debug("End database.Open")

	if driver == "sqlite3" && !strings.Contains(dsn, "_busy_timeout") {
		if strings.Contains(dsn, "?") {
			dsn += "&_busy_timeout=5000"
		} else {
			dsn += "?_busy_timeout=5000"
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed sqlx.Connect(%s)", driver)
	}
	if driver == "sqlite3" {
		// one writer; also keeps shared in-memory databases alive
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed in Migrate()")
	}
	logger.Infof("database %s ready", driver)
	return db, nil
}

// Migrate creates missing tables. Every statement is idempotent.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range schemaFor(db.DriverName()) {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "failed schema statement:\n%s", stmt)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction; fn's error (or a panic) rolls back.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed in BeginTxx()")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.GetLogger().Errorf("failed in Rollback(); %v", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed in Commit()")
	}
	return nil
}
