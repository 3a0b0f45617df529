// Package catalog moves the ERP catalog into WooCommerce in two steps:
// import (JSON to staging table) and push (staging table to WooCommerce).
//
// Both steps are counted on a sync job. Push jobs are sealed with their item
// count up front, and whichever item brings the processed count to that total
// completes the job, so async workers may finish in any order.
package catalog

import (
	"time"

	"WooWithBizimHesap/internal/database/model/staging"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/worker"
	"WooWithBizimHesap/pkg/logging"
)

type Config struct {
	// PushDelay spaces async pushes: item i starts i*PushDelay after enqueue.
	PushDelay time.Duration
	// FetchTTL bounds the catalog fetch lock.
	FetchTTL time.Duration
	// PendingLimit caps PushPending batches.
	PendingLimit int
}

func (c Config) withDefaults() Config {
	if c.PushDelay < 0 {
		c.PushDelay = 0
	}
	if c.FetchTTL <= 0 {
		c.FetchTTL = 10 * time.Minute
	}
	if c.PendingLimit <= 0 {
		c.PendingLimit = 1000
	}
	return c
}

type Pipeline struct {
	staging  *staging.Store
	jobs     *syncjob.Store
	commerce gateway.Commerce
	erp      gateway.ERP
	guard    *lock.Guard
	pool     *worker.Pool
	terms    *terms
	cfg      Config
	logger   *logging.Logger
}

func NewPipeline(stagingStore *staging.Store, jobs *syncjob.Store, commerce gateway.Commerce, erp gateway.ERP,
	guard *lock.Guard, pool *worker.Pool, cfg Config, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		staging:  stagingStore,
		jobs:     jobs,
		commerce: commerce,
		erp:      erp,
		guard:    guard,
		pool:     pool,
		terms:    newTerms(commerce, logger),
		cfg:      cfg.withDefaults(),
		logger:   logger.WithField("component", "catalog"),
	}
}
