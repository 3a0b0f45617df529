// Package setting stores operator-editable key/value settings such as the
// ERP credentials.
package setting

import (
	"context"
	"database/sql"

	"WooWithBizimHesap/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	BizimHesapFirmID = "bizimhesap.firm_id"
	BizimHesapAPIKey = "bizimhesap.api_key"
)

type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

type Store struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewStore(db *sqlx.DB, logger *logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Get returns the stored value and whether the key exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind("SELECT value FROM settings WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed SELECT settings %s", key)
	}
	return value, true, nil
}

// GetOr returns the stored value, or fallback when the key is missing or empty.
func (s *Store) GetOr(ctx context.Context, key, fallback string) string {
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		s.logger.Warnf("setting %s: %v", key, err)
		return fallback
	}
	if !ok || v == "" {
		return fallback
	}
	return v
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return errors.Wrapf(err, "failed upsert settings %s", key)
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]Setting, error) {
	var out []Setting
	if err := s.db.SelectContext(ctx, &out, "SELECT key, value FROM settings ORDER BY key"); err != nil {
		return nil, errors.Wrap(err, "failed SELECT settings")
	}
	return out, nil
}
