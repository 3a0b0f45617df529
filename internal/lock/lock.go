// Package lock provides mutual exclusion across processes for sync runs.
//
// A lock is a key in a shared store holding a random owner token and a TTL.
// Only the owner may release it, so a holder whose lock already expired and
// was taken by someone else cannot remove the new holder's lock.
package lock

import (
	"context"
	"time"

	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/pkg/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	KeyProducts     = "sync:products"
	KeyOrders       = "sync:orders"
	KeyCatalogFetch = "catalog:fetch"

	releaseTimeout = 5 * time.Second
)

// ErrNotAcquired means another holder owns the key. It is not a failure.
var ErrNotAcquired = errors.New("lock held by another owner")

// SKUKey is the short per-record lock taken while staging ERP updates.
func SKUKey(sku string) string {
	return "sync:sku:" + sku
}

// Store is the atomic shared state behind Guard.
type Store interface {
	// SetNX sets key to owner for ttl only if key is absent or expired.
	SetNX(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds owner.
	CompareAndDelete(ctx context.Context, key, owner string) (bool, error)
}

type Guard struct {
	store  Store
	logger *logging.Logger
}

func NewGuard(store Store, logger *logging.Logger) *Guard {
	return &Guard{store: store, logger: logger}
}

// Acquire returns a fresh owner token, or ErrNotAcquired when key is held.
func (g *Guard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := g.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		metrics.LockAcquireTotal.WithLabelValues("error").Inc()
		return "", errors.Wrapf(err, "failed acquire lock %s", key)
	}
	if !ok {
		metrics.LockAcquireTotal.WithLabelValues("refused").Inc()
		return "", ErrNotAcquired
	}
	metrics.LockAcquireTotal.WithLabelValues("acquired").Inc()
	g.logger.WithField("lock", key).Debugf("acquired for %s", ttl)
	return token, nil
}

// Release drops the lock if token still owns it. Releasing a lock that
// expired or changed hands is logged and ignored.
func (g *Guard) Release(ctx context.Context, key, token string) error {
	ok, err := g.store.CompareAndDelete(ctx, key, token)
	if err != nil {
		return errors.Wrapf(err, "failed release lock %s", key)
	}
	if !ok {
		g.logger.WithField("lock", key).Warn("lock expired before release; left to its current owner")
		return nil
	}
	g.logger.WithField("lock", key).Debug("released")
	return nil
}

// TryWithLock runs fn while holding key. When the key is held elsewhere fn is
// skipped and ran is false with a nil error. The lock is released after fn
// even if ctx was cancelled meanwhile.
func (g *Guard) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (ran bool, err error) {
	token, err := g.Acquire(ctx, key, ttl)
	if errors.Is(err, ErrNotAcquired) {
		g.logger.WithField("lock", key).Info("another run holds the lock, skipping")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if rerr := g.Release(rctx, key, token); rerr != nil {
			g.logger.Errorf("%v", rerr)
		}
	}()
	return true, fn(ctx)
}
