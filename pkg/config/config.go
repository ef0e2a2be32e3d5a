package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Composer ComposerConfig
	StoreAPI StoreAPIConfig
	Redis    RedisConfig
	JWT      JWTConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Composer.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ComposerConfig holds the order-composition tunables.
type ComposerConfig struct {
	HomeCountryID  int64         `envconfig:"ORDERDESK_HOME_COUNTRY_ID" required:"true"`
	Currency       string        `envconfig:"ORDERDESK_CURRENCY" default:"INR"`
	SearchDebounce time.Duration `envconfig:"ORDERDESK_SEARCH_DEBOUNCE" default:"200ms"`
	DraftTTL       time.Duration `envconfig:"ORDERDESK_DRAFT_TTL" default:"6h"`
	SweepInterval  time.Duration `envconfig:"ORDERDESK_DRAFT_SWEEP_INTERVAL" default:"10m"`
}

func (c ComposerConfig) validate() error {
	if c.HomeCountryID <= 0 {
		return fmt.Errorf("home country id must be positive")
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("search debounce cannot be negative")
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("draft ttl must be positive")
	}
	return nil
}

// StoreAPIConfig points the composer at the commerce backend.
type StoreAPIConfig struct {
	BaseURL string        `envconfig:"ORDERDESK_STOREAPI_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"ORDERDESK_STOREAPI_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"ORDERDESK_STOREAPI_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERDESK_GCP_PROJECT_ID"`
}

// PubSubConfig names the topic for the best-effort order.submitted event.
// Eventing is disabled when the topic or project id is blank.
type PubSubConfig struct {
	OrdersTopic string `envconfig:"ORDERDESK_PUBSUB_ORDERS_TOPIC"`
}

// EventingEnabled reports whether the submitted-order event should publish.
func (c *Config) EventingEnabled() bool {
	return strings.TrimSpace(c.GCP.ProjectID) != "" && strings.TrimSpace(c.PubSub.OrdersTopic) != ""
}
