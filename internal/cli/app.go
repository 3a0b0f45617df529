package cli

import (
	"context"
	"time"

	"WooWithBizimHesap/internal/affiliate"
	"WooWithBizimHesap/internal/bizimhesap"
	"WooWithBizimHesap/internal/config"
	"WooWithBizimHesap/internal/database"
	orderDatabase "WooWithBizimHesap/internal/database/model/order"
	productDatabase "WooWithBizimHesap/internal/database/model/product"
	"WooWithBizimHesap/internal/database/model/setting"
	"WooWithBizimHesap/internal/database/model/staging"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/sync/catalog"
	"WooWithBizimHesap/internal/sync/order"
	"WooWithBizimHesap/internal/sync/product"
	"WooWithBizimHesap/internal/telegram"
	"WooWithBizimHesap/internal/wooapi"
	"WooWithBizimHesap/internal/worker"
	"WooWithBizimHesap/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// app holds every long-lived dependency of one process.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	db       *sqlx.DB
	redis    *redis.Client
	kafka    *affiliate.KafkaPublisher
	pool     *worker.Pool
	jobs     *syncjob.Store
	notifier telegram.Notifier

	products *product.Engine
	orders   *order.Engine
	catalog  *catalog.Pipeline
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	logger.Info("Start newApp")
	defer logger.Info("End newApp")

	db, err := database.Open(cfg.DATABASE.Driver, cfg.DATABASE.DSN)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db, notifier: telegram.Noop{}}

	var lockStore lock.Store
	switch cfg.LOCK.Backend {
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.REDIS.Addr,
			Password: cfg.REDIS.Password,
			DB:       cfg.REDIS.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, errors.Wrapf(err, "failed redis ping %s", cfg.REDIS.Addr)
		}
		lockStore = lock.NewRedisStore(a.redis, "bizimhesap:")
	default:
		lockStore = lock.NewSQLStore(db)
	}
	guard := lock.NewGuard(lockStore, logger)

	settings := setting.NewStore(db, logger)
	commerce := wooapi.NewAPI(wooapi.Config{
		URL:     cfg.WOOCOMMERCE.URL,
		Key:     cfg.WOOCOMMERCE.Key,
		Secret:  cfg.WOOCOMMERCE.Secret,
		RPS:     cfg.WOOCOMMERCE.RPS,
		Timeout: time.Duration(cfg.WOOCOMMERCE.Timeout) * time.Second,
	}, logger)
	erp := bizimhesap.NewAPI(bizimhesap.Config{
		URL:     cfg.BIZIMHESAP.URL,
		FirmID:  cfg.BIZIMHESAP.FirmID,
		Key:     cfg.BIZIMHESAP.Key,
		Timeout: time.Duration(cfg.BIZIMHESAP.Timeout) * time.Second,
	}, settings, logger)

	var trigger affiliate.Trigger = affiliate.Noop{}
	if len(cfg.KAFKA.Brokers) > 0 {
		a.kafka = affiliate.NewKafkaPublisher(cfg.KAFKA.Brokers, cfg.KAFKA.Topic, logger)
		trigger = a.kafka
	}
	if cfg.TELEGRAM.BotToken != "" {
		bot, err := telegram.NewBot(cfg.TELEGRAM.BotToken, cfg.TELEGRAM.ChatID, logger)
		if err != nil {
			logger.Warnf("telegram alerts disabled: %v", err)
		} else {
			a.notifier = bot
		}
	}

	a.jobs = syncjob.NewStore(db, logger)
	a.pool = worker.New(ctx, cfg.CATALOG.Workers, logger)

	a.products = product.NewEngine(commerce, erp, productDatabase.NewStore(db, logger), a.jobs, guard, product.Config{
		PageSize:   cfg.PRODUCTSYNC.PageSize,
		BatchSize:  cfg.PRODUCTSYNC.BatchSize,
		Timeout:    cfg.ProductSyncTimeout(),
		SkuLockTTL: cfg.SkuLockTTL(),
	}, logger)
	a.orders = order.NewEngine(commerce, erp, orderDatabase.NewStore(db, logger), a.jobs, guard, trigger, order.Config{
		PageSize: cfg.ORDERSYNC.PageSize,
		MaxPages: cfg.ORDERSYNC.MaxPages,
		Timeout:  cfg.OrderSyncTimeout(),
		Lookback: cfg.OrderLookback(),
	}, logger)
	a.catalog = catalog.NewPipeline(staging.NewStore(db, logger), a.jobs, commerce, erp, guard, a.pool, catalog.Config{
		PushDelay: cfg.PushDelay(),
		FetchTTL:  cfg.CatalogLockTTL(),
	}, logger)
	return a, nil
}

// Close waits for queued work and releases connections.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Wait()
		a.pool.Stop()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Warnf("failed kafka close: %v", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warnf("failed db close: %v", err)
	}
}
