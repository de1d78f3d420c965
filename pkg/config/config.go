package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Sendgrid     SendgridConfig
	Outbox       OutboxConfig
	Commission   CommissionConfig
	Payout       PayoutConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	// Report every invalid setting at once.
	err := multierr.Combine(
		cfg.DB.ensureDSN(),
		cfg.DB.validate(),
		cfg.Commission.validate(),
		cfg.Payout.validate(),
		cfg.Outbox.validate(),
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDORLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORLEDGER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"VENDORLEDGER_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"VENDORLEDGER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDORLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORLEDGER_DB_DSN"`
	Driver string `envconfig:"VENDORLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"VENDORLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"VENDORLEDGER_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDORLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDORLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDORLEDGER_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDORLEDGER_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"VENDORLEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDORLEDGER_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VENDORLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENDORLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"VENDORLEDGER_PUBSUB_NOTIFICATION_TOPIC" default:"vl-notification-events"`
	NotificationSubscription string `envconfig:"VENDORLEDGER_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	LedgerTopic              string `envconfig:"VENDORLEDGER_PUBSUB_LEDGER_TOPIC" default:"vl-ledger-events"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"VENDORLEDGER_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"VENDORLEDGER_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"VENDORLEDGER_SENDGRID_FROM_NAME" default:"Marketplace Payouts"`
	OpsEmail    string `envconfig:"VENDORLEDGER_SENDGRID_OPS_EMAIL"`
	MaxAttempts int    `envconfig:"VENDORLEDGER_SENDGRID_MAX_ATTEMPTS" default:"3"`
}

// Enabled reports whether outbound email is configured.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.DefaultFrom) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDORLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDORLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDORLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"VENDORLEDGER_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (o OutboxConfig) validate() error {
	var err error
	if o.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxBatchSize))
	}
	if o.MaxAttempts <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxMaxAttempts))
	}
	if o.RetentionDays <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxRetentionDays))
	}
	return err
}

// CommissionConfig holds the rate applied when a vendor's own configuration
// cannot be loaded at order time.
type CommissionConfig struct {
	DefaultType string          `envconfig:"VENDORLEDGER_COMMISSION_DEFAULT_TYPE" default:"percent"`
	DefaultRate decimal.Decimal `envconfig:"VENDORLEDGER_COMMISSION_DEFAULT_RATE" default:"10"`
}

func (c CommissionConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DefaultType)) {
	case "percent", "flat":
	default:
		return fmt.Errorf("%s must be percent or flat", EnvCommissionDefaultType)
	}
	if c.DefaultRate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvCommissionDefaultRate)
	}
	return nil
}

type PayoutConfig struct {
	MinWithdrawal  decimal.Decimal `envconfig:"VENDORLEDGER_PAYOUT_MIN_WITHDRAWAL" default:"50"`
	StaleAfter     time.Duration   `envconfig:"VENDORLEDGER_PAYOUT_STALE_AFTER" default:"48h"`
	StatsCacheTTL  time.Duration   `envconfig:"VENDORLEDGER_PAYOUT_STATS_CACHE_TTL" default:"30s"`
	StaleAlertCron string          `envconfig:"VENDORLEDGER_PAYOUT_STALE_ALERT_CRON" default:"@every 30m"`
}

func (p PayoutConfig) validate() error {
	if !p.MinWithdrawal.IsPositive() {
		return fmt.Errorf("%s must be positive", EnvPayoutMinWithdrawal)
	}
	if p.StaleAfter <= 0 {
		return fmt.Errorf("%s must be positive", EnvPayoutStaleAfter)
	}
	return nil
}

// CronConfig schedules the maintenance jobs. Schedules use robfig/cron
// syntax, including descriptors such as @daily.
type CronConfig struct {
	OutboxRetentionSchedule     string        `envconfig:"VENDORLEDGER_CRON_OUTBOX_RETENTION" default:"@daily"`
	NotificationCleanupSchedule string        `envconfig:"VENDORLEDGER_CRON_NOTIFICATION_CLEANUP" default:"@daily"`
	NotificationRetentionDays   int           `envconfig:"VENDORLEDGER_NOTIFICATION_RETENTION_DAYS" default:"90"`
	LockTTL                     time.Duration `envconfig:"VENDORLEDGER_CRON_LOCK_TTL" default:"30m"`
	RunOnStart                  bool          `envconfig:"VENDORLEDGER_CRON_RUN_ON_START" default:"true"`
}

type RateLimitConfig struct {
	PayoutRequestWindow time.Duration `envconfig:"VENDORLEDGER_RATE_LIMIT_PAYOUT_REQUEST_WINDOW" default:"1h"`
	PayoutRequestLimit  int           `envconfig:"VENDORLEDGER_RATE_LIMIT_PAYOUT_REQUEST_LIMIT" default:"10"`
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case "", "postgres", "sqlite":
		return nil
	}
	return fmt.Errorf("%s must be postgres or sqlite, got %q", EnvDBDriver, db.Driver)
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
