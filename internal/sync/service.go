// Package sync runs the periodic passes: product sync, order sync and the
// pruning of old job rows.
package sync

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/telegram"
	"WooWithBizimHesap/pkg/logging"
	"golang.org/x/sync/errgroup"
)

type ProductSyncer interface {
	SyncAll(ctx context.Context) (*syncjob.Job, error)
}

type OrderSyncer interface {
	SyncAll(ctx context.Context, maxPages int) (*syncjob.Job, error)
}

type JobPruner interface {
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Schedule holds the pass intervals; a zero interval disables that pass.
type Schedule struct {
	ProductInterval time.Duration
	OrderInterval   time.Duration
	OrderPages      int
	PruneInterval   time.Duration
	Retention       time.Duration
}

type Service struct {
	products ProductSyncer
	orders   OrderSyncer
	jobs     JobPruner
	notifier telegram.Notifier
	schedule Schedule
	logger   *logging.Logger
}

func NewService(products ProductSyncer, orders OrderSyncer, jobs JobPruner, notifier telegram.Notifier, schedule Schedule, logger *logging.Logger) *Service {
	if notifier == nil {
		notifier = telegram.Noop{}
	}
	if schedule.Retention <= 0 {
		schedule.Retention = 30 * 24 * time.Hour
	}
	return &Service{
		products: products,
		orders:   orders,
		jobs:     jobs,
		notifier: notifier,
		schedule: schedule,
		logger:   logger.WithField("component", "service"),
	}
}

// Run starts every enabled pass right away and then on its interval, until
// ctx is done. A failing or panicking pass is reported and the loop goes on.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("Start Service")
	defer s.logger.Info("End Service")

	g, ctx := errgroup.WithContext(ctx)
	if s.products != nil && s.schedule.ProductInterval > 0 {
		g.Go(func() error {
			s.every(ctx, syncjob.TypeProducts, s.schedule.ProductInterval, s.products.SyncAll)
			return nil
		})
	}
	if s.orders != nil && s.schedule.OrderInterval > 0 {
		g.Go(func() error {
			s.every(ctx, syncjob.TypeOrders, s.schedule.OrderInterval, func(ctx context.Context) (*syncjob.Job, error) {
				return s.orders.SyncAll(ctx, s.schedule.OrderPages)
			})
			return nil
		})
	}
	if s.jobs != nil && s.schedule.PruneInterval > 0 {
		g.Go(func() error {
			s.every(ctx, "prune", s.schedule.PruneInterval, s.prune)
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) every(ctx context.Context, name string, interval time.Duration, pass func(context.Context) (*syncjob.Job, error)) {
	s.logger.Infof("%s pass every %s", name, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.tick(ctx, name, pass)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) tick(ctx context.Context, name string, pass func(context.Context) (*syncjob.Job, error)) {
	log := s.logger.WithField("sync_type", name)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s pass panicked: %v\n%s", name, r, debug.Stack())
			s.notifier.Notify(ctx, fmt.Sprintf("%s sync crashed and will run again on the next tick: %v", name, r))
		}
	}()

	started := time.Now()
	job, err := pass(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Errorf("%s pass failed: %v", name, err)
		s.notifier.Notify(ctx, fmt.Sprintf("%s sync failed: %v", name, err))
		return
	}
	if job != nil {
		log.WithField("job_id", job.ID).Infof("%s pass took %s: %d ok, %d errors", name, time.Since(started), job.SuccessCount, job.ErrorCount)
	}
}

func (s *Service) prune(ctx context.Context) (*syncjob.Job, error) {
	_, err := s.jobs.PruneOlderThan(ctx, s.schedule.Retention)
	return nil, err
}
