package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Finance      FinanceConfig
	Paystack     PaystackConfig
	Hubtel       HubtelConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	WebhookRL    WebhookRateLimitConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"EVENTRA_APP_ENV" required:"true"`
	Port         string `envconfig:"EVENTRA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EVENTRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EVENTRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"EVENTRA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"EVENTRA_DB_DSN"`
	Driver string `envconfig:"EVENTRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EVENTRA_DB_HOST"`
	LegacyPort     int    `envconfig:"EVENTRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EVENTRA_DB_USER"`
	LegacyPassword string `envconfig:"EVENTRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"EVENTRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"EVENTRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EVENTRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EVENTRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EVENTRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EVENTRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EVENTRA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EVENTRA_REDIS_ADDR"`
	Password     string        `envconfig:"EVENTRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"EVENTRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EVENTRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EVENTRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EVENTRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EVENTRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EVENTRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EVENTRA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EVENTRA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EVENTRA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// FinanceConfig carries platform defaults used when no PlatformSetting row
// overrides them. Percent values are expressed as 0-100.
type FinanceConfig struct {
	EventAdminSharePercent string        `envconfig:"EVENTRA_FINANCE_EVENT_ADMIN_SHARE" default:"10"`
	AwardAdminSharePercent string        `envconfig:"EVENTRA_FINANCE_AWARD_ADMIN_SHARE" default:"20"`
	PaymentFeePercent      string        `envconfig:"EVENTRA_FINANCE_PAYMENT_FEE" default:"1.95"`
	PayoutHoldDays         int           `envconfig:"EVENTRA_FINANCE_PAYOUT_HOLD_DAYS" default:"3"`
	MinPayoutAmount        string        `envconfig:"EVENTRA_FINANCE_MIN_PAYOUT" default:"50"`
	PendingPaymentMaxAge   time.Duration `envconfig:"EVENTRA_FINANCE_PENDING_MAX_AGE" default:"24h"`
}

// EventAdminShare parses the configured default event admin share.
func (f FinanceConfig) EventAdminShare() (decimal.Decimal, error) {
	return decimal.NewFromString(f.EventAdminSharePercent)
}

// AwardAdminShare parses the configured default award admin share.
func (f FinanceConfig) AwardAdminShare() (decimal.Decimal, error) {
	return decimal.NewFromString(f.AwardAdminSharePercent)
}

// PaymentFee parses the configured provider fee percentage.
func (f FinanceConfig) PaymentFee() (decimal.Decimal, error) {
	return decimal.NewFromString(f.PaymentFeePercent)
}

// MinPayout parses the configured minimum payout amount.
func (f FinanceConfig) MinPayout() (decimal.Decimal, error) {
	return decimal.NewFromString(f.MinPayoutAmount)
}

type PaystackConfig struct {
	BaseURL   string        `envconfig:"EVENTRA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	SecretKey string        `envconfig:"EVENTRA_PAYSTACK_SECRET_KEY"`
	Timeout   time.Duration `envconfig:"EVENTRA_PAYSTACK_TIMEOUT" default:"15s"`
}

type HubtelConfig struct {
	BaseURL      string        `envconfig:"EVENTRA_HUBTEL_BASE_URL" default:"https://api-txnstatus.hubtel.com"`
	ClientID     string        `envconfig:"EVENTRA_HUBTEL_CLIENT_ID"`
	ClientSecret string        `envconfig:"EVENTRA_HUBTEL_CLIENT_SECRET"`
	MerchantID   string        `envconfig:"EVENTRA_HUBTEL_MERCHANT_ID"`
	Timeout      time.Duration `envconfig:"EVENTRA_HUBTEL_TIMEOUT" default:"15s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"EVENTRA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"EVENTRA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"EVENTRA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	FinanceTopic        string `envconfig:"EVENTRA_PUBSUB_FINANCE_TOPIC" default:"eventra-finance-events"`
	FinanceSubscription string `envconfig:"EVENTRA_PUBSUB_FINANCE_SUBSCRIPTION"`
}

type CronConfig struct {
	Schedule        string        `envconfig:"EVENTRA_CRON_SCHEDULE" default:"0 2 * * *"`
	PollingSchedule string        `envconfig:"EVENTRA_CRON_POLL_SCHEDULE" default:"*/10 * * * *"`
	LockTTL         time.Duration `envconfig:"EVENTRA_CRON_LOCK_TTL" default:"1h"`
}

// WebhookRateLimitConfig caps webhook delivery bursts per source IP and per
// payment reference.
type WebhookRateLimitConfig struct {
	Window         time.Duration `envconfig:"EVENTRA_WEBHOOK_RL_WINDOW" default:"1m"`
	IPLimit        int           `envconfig:"EVENTRA_WEBHOOK_RL_IP_LIMIT" default:"120"`
	ReferenceLimit int           `envconfig:"EVENTRA_WEBHOOK_RL_REF_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EVENTRA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EVENTRA_AUTO_MIGRATE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"EVENTRA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"EVENTRA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"EVENTRA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
