package lock

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// SQLStore keeps locks in the locks table for single-database deployments
// without redis. Expiry is stored as unix milliseconds.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// SetNX inserts the lock or takes over an expired one in a single statement.
func (s *SQLStore) SetNX(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := s.now()
	query := s.db.Rebind(`INSERT INTO locks (key, owner, expires_at) VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
	WHERE locks.expires_at <= ?`)
	res, err := s.db.ExecContext(ctx, query, key, owner, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, errors.Wrapf(err, "failed upsert locks %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed RowsAffected")
	}
	return n == 1, nil
}

func (s *SQLStore) CompareAndDelete(ctx context.Context, key, owner string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM locks WHERE key = ? AND owner = ?"), key, owner)
	if err != nil {
		return false, errors.Wrapf(err, "failed DELETE locks %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed RowsAffected")
	}
	return n == 1, nil
}
