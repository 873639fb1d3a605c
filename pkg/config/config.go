package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "cardstock"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CARDSTOCK_DB_DSN"
	EnvDBHost = "CARDSTOCK_DB_HOST"
	EnvDBUser = "CARDSTOCK_DB_USER"
	EnvDBName = "CARDSTOCK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Sync         SyncConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARDSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"CARDSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARDSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARDSTOCK_LOG_WARN_STACK" default:"false"`
	MetricsPort  string `envconfig:"CARDSTOCK_METRICS_PORT" default:"9091"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARDSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARDSTOCK_DB_DSN"`
	Driver string `envconfig:"CARDSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARDSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"CARDSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARDSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"CARDSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARDSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARDSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARDSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARDSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARDSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARDSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARDSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARDSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"CARDSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARDSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARDSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARDSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARDSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARDSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARDSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARDSTOCK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARDSTOCK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARDSTOCK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARDSTOCK_AUTO_MIGRATE" default:"false"`
}

// SyncConfig drives the POS sync worker against the cloud event feed.
type SyncConfig struct {
	CloudBaseURL   string        `envconfig:"CARDSTOCK_SYNC_CLOUD_BASE_URL"`
	CloudAPIKey    string        `envconfig:"CARDSTOCK_SYNC_CLOUD_API_KEY"`
	POSID          string        `envconfig:"CARDSTOCK_SYNC_POS_ID"`
	Interval       time.Duration `envconfig:"CARDSTOCK_SYNC_INTERVAL" default:"30s"`
	RequestTimeout time.Duration `envconfig:"CARDSTOCK_SYNC_REQUEST_TIMEOUT" default:"15s"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"CARDSTOCK_CRON_INTERVAL" default:"1h"`
	SyncStaleWindow time.Duration `envconfig:"CARDSTOCK_CRON_SYNC_STALE_WINDOW" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CARDSTOCK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CARDSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CARDSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"CARDSTOCK_PUBSUB_ORDERS_TOPIC" default:"cs-order-events"`
	InventoryTopic        string `envconfig:"CARDSTOCK_PUBSUB_INVENTORY_TOPIC" default:"cs-inventory-events"`
	InventorySubscription string `envconfig:"CARDSTOCK_PUBSUB_INVENTORY_SUBSCRIPTION" default:"cs-inventory-events-analytics"`
}

type BigQueryConfig struct {
	Dataset        string `envconfig:"CARDSTOCK_BIGQUERY_DATASET" default:"cardstock"`
	MovementsTable string `envconfig:"CARDSTOCK_BIGQUERY_MOVEMENTS_TABLE" default:"inventory_movements"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CARDSTOCK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"CARDSTOCK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"CARDSTOCK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"CARDSTOCK_OUTBOX_IDEMPOTENCY_TTL" default:"168h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
