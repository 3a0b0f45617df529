package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/gcfg.v1"
)

const DefaultPath = "./config/config.ini"

type (
	Config struct {
		SERVICE struct {
			PORT int `validate:"gte=0,lte=65535"`
		}
		LOG struct {
			Level string
			File  string
		}
		DATABASE struct {
			Driver string `validate:"oneof=sqlite3 postgres"`
			DSN    string `validate:"required"`
		}
		REDIS struct {
			Addr     string
			Password string
			DB       int
		}
		LOCK struct {
			// Backend is "redis" or "sql".
			Backend string `validate:"oneof=redis sql"`
		}
		WOOCOMMERCE struct {
			URL     string `validate:"required,url"`
			Key     string
			Secret  string
			RPS     int `validate:"gte=0"`
			Timeout int // seconds
		}
		BIZIMHESAP struct {
			URL     string `validate:"required,url"`
			FirmID  string
			Key     string
			Secret  string
			Timeout int // seconds
		}
		PRODUCTSYNC struct {
			Interval   int // minutes, 0 disables the periodic pass
			Timeout    int // minutes
			PageSize   int `validate:"gte=1,lte=100"`
			BatchSize  int `validate:"gte=1,lte=100"`
			SkuLockTTL int // seconds
		}
		ORDERSYNC struct {
			Interval int // minutes, 0 disables the periodic pass
			Timeout  int // minutes
			PageSize int `validate:"gte=1,lte=100"`
			MaxPages int `validate:"gte=1"`
			// LookbackDays limits the pass to orders created in the last
			// days; 0 walks the newest pages without a date filter.
			LookbackDays int `validate:"gte=0"`
		}
		CATALOG struct {
			File      string
			PushDelay int // milliseconds between queued pushes
			Workers   int `validate:"gte=1"`
			LockTTL   int // seconds
		}
		WEBHOOK struct {
			Secret string
		}
		KAFKA struct {
			Brokers []string
			Topic   string
		}
		TELEGRAM struct {
			BotToken string
			ChatID   int64
		}
		JOBS struct {
			RetentionDays int `validate:"gte=1"`
			PruneInterval int // hours
		}
	}
)

var cfg *Config
var once sync.Once

// GetConfig reads DefaultPath once. A broken config is fatal for the
// process, so the caller gets the panic.
func GetConfig() *Config {
	once.Do(func() {
		c, err := Load(DefaultPath)
		if err != nil {
			panic(errors.Wrap(err, "Config:>Failed to read application configuration"))
		}
		cfg = c
	})
	return cfg
}

// Load reads an INI file, applies .env / environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadFileInto(c, path); err != nil {
		return nil, errors.Wrapf(err, "failed to parse gcfg data from %s", path)
	}
	return finish(c)
}

// LoadString is Load for an in-memory INI document.
func LoadString(ini string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadStringInto(c, ini); err != nil {
		return nil, errors.Wrap(err, "failed to parse gcfg data")
	}
	return finish(c)
}

func finish(c *Config) (*Config, error) {
	_ = godotenv.Load()
	applyEnv(c)
	if err := validator.New().Struct(c); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return c, nil
}

func Default() *Config {
	c := new(Config)
	c.SERVICE.PORT = 8080
	c.LOG.Level = "info"
	c.DATABASE.Driver = "sqlite3"
	c.DATABASE.DSN = "db.db"
	c.LOCK.Backend = "sql"
	c.WOOCOMMERCE.RPS = 5
	c.WOOCOMMERCE.Timeout = 30
	c.BIZIMHESAP.URL = "https://bizimhesap.com/api/b2b"
	c.BIZIMHESAP.Timeout = 60
	c.PRODUCTSYNC.Interval = 60
	c.PRODUCTSYNC.Timeout = 30
	c.PRODUCTSYNC.PageSize = 100
	c.PRODUCTSYNC.BatchSize = 100
	c.PRODUCTSYNC.SkuLockTTL = 5
	c.ORDERSYNC.Interval = 10
	c.ORDERSYNC.Timeout = 10
	c.ORDERSYNC.PageSize = 50
	c.ORDERSYNC.MaxPages = 10
	c.CATALOG.PushDelay = 500
	c.CATALOG.Workers = 4
	c.CATALOG.LockTTL = 600
	c.KAFKA.Topic = "affiliate.order-synced"
	c.JOBS.RetentionDays = 30
	c.JOBS.PruneInterval = 24
	return c
}

func applyEnv(c *Config) {
	envString(&c.WOOCOMMERCE.Key, "WC_KEY")
	envString(&c.WOOCOMMERCE.Secret, "WC_SECRET")
	envString(&c.BIZIMHESAP.Key, "BIZIMHESAP_KEY")
	envString(&c.BIZIMHESAP.Secret, "BIZIMHESAP_SECRET")
	envString(&c.BIZIMHESAP.FirmID, "BIZIMHESAP_FIRM_ID")
	envString(&c.WEBHOOK.Secret, "WEBHOOK_SECRET")
	envString(&c.TELEGRAM.BotToken, "TELEGRAM_TOKEN")
	envString(&c.DATABASE.DSN, "DATABASE_DSN")
	envString(&c.REDIS.Password, "REDIS_PASSWORD")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.TELEGRAM.ChatID = id
		}
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) ProductSyncTimeout() time.Duration {
	return time.Duration(c.PRODUCTSYNC.Timeout) * time.Minute
}

func (c *Config) OrderSyncTimeout() time.Duration {
	return time.Duration(c.ORDERSYNC.Timeout) * time.Minute
}

func (c *Config) OrderLookback() time.Duration {
	return time.Duration(c.ORDERSYNC.LookbackDays) * 24 * time.Hour
}

func (c *Config) SkuLockTTL() time.Duration {
	return time.Duration(c.PRODUCTSYNC.SkuLockTTL) * time.Second
}

func (c *Config) CatalogLockTTL() time.Duration {
	return time.Duration(c.CATALOG.LockTTL) * time.Second
}

func (c *Config) PushDelay() time.Duration {
	return time.Duration(c.CATALOG.PushDelay) * time.Millisecond
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.JOBS.RetentionDays) * 24 * time.Hour
}
