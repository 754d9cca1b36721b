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

	SnapshotDriverRedis = "redis"
	SnapshotDriverDB    = "db"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Cart       CartConfig
	Catalog    CatalogConfig
	Payment    PaymentConfig
	Settlement SettlementConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ENTRADAGO_APP_ENV" required:"true"`
	Port         string `envconfig:"ENTRADAGO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ENTRADAGO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ENTRADAGO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ENTRADAGO_DB_DSN"`
	Driver string `envconfig:"ENTRADAGO_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"ENTRADAGO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ENTRADAGO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ENTRADAGO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ENTRADAGO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ENTRADAGO_REDIS_URL"`
	Address      string        `envconfig:"ENTRADAGO_REDIS_ADDR"`
	Password     string        `envconfig:"ENTRADAGO_REDIS_PASSWORD"`
	DB           int           `envconfig:"ENTRADAGO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ENTRADAGO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ENTRADAGO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ENTRADAGO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ENTRADAGO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ENTRADAGO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ENTRADAGO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ENTRADAGO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ENTRADAGO_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// CartConfig tunes cart behavior shared by the store and its summaries.
type CartConfig struct {
	FallbackCurrency string `envconfig:"ENTRADAGO_CART_FALLBACK_CURRENCY" default:"BOB"`
	SnapshotDriver   string `envconfig:"ENTRADAGO_CART_SNAPSHOT_DRIVER" default:"redis"`
}

func (c CartConfig) validate() error {
	switch c.SnapshotDriver {
	case SnapshotDriverRedis, SnapshotDriverDB:
		return nil
	default:
		return fmt.Errorf("cart snapshot driver must be %q or %q", SnapshotDriverRedis, SnapshotDriverDB)
	}
}

// CatalogConfig points at the event/catalog API.
type CatalogConfig struct {
	BaseURL string        `envconfig:"ENTRADAGO_CATALOG_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"ENTRADAGO_CATALOG_TIMEOUT" default:"10s"`
}

// PaymentConfig carries the external QR/card gateway contract values.
type PaymentConfig struct {
	BaseURL     string        `envconfig:"ENTRADAGO_PAYMENT_BASE_URL" required:"true"`
	CompanyCode string        `envconfig:"ENTRADAGO_PAYMENT_COMPANY_CODE" required:"true"`
	SuccessURL  string        `envconfig:"ENTRADAGO_PAYMENT_SUCCESS_URL" default:"https://exito.com.bo"`
	FailureURL  string        `envconfig:"ENTRADAGO_PAYMENT_FAILURE_URL" default:"https://falla.com.bo"`
	Timeout     time.Duration `envconfig:"ENTRADAGO_PAYMENT_TIMEOUT" default:"15s"`
}

// SettlementConfig points at the backend ticket API used after a confirmed payment.
type SettlementConfig struct {
	BaseURL         string        `envconfig:"ENTRADAGO_SETTLEMENT_BASE_URL" required:"true"`
	PaymentMethodID string        `envconfig:"ENTRADAGO_SETTLEMENT_PAYMENT_METHOD_ID" required:"true"`
	CurrencyID      string        `envconfig:"ENTRADAGO_SETTLEMENT_CURRENCY_ID" required:"true"`
	Timeout         time.Duration `envconfig:"ENTRADAGO_SETTLEMENT_TIMEOUT" default:"15s"`
}
