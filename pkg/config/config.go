package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "COACHREWARDS_DB_DSN"
	EnvDBHost = "COACHREWARDS_DB_HOST"
	EnvDBUser = "COACHREWARDS_DB_USER"
	EnvDBName = "COACHREWARDS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Commission   CommissionConfig
	Eligibility  EligibilityConfig
	Partnership  PartnershipConfig
	Audit        AuditConfig
	Orders       OrdersConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COACHREWARDS_AUTO_MIGRATE" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COACHREWARDS_APP_ENV" required:"true"`
	Port         string `envconfig:"COACHREWARDS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COACHREWARDS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COACHREWARDS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COACHREWARDS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COACHREWARDS_DB_DSN"`
	Driver string `envconfig:"COACHREWARDS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COACHREWARDS_DB_HOST"`
	LegacyPort     int    `envconfig:"COACHREWARDS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COACHREWARDS_DB_USER"`
	LegacyPassword string `envconfig:"COACHREWARDS_DB_PASSWORD"`
	LegacyName     string `envconfig:"COACHREWARDS_DB_NAME"`
	LegacySSLMode  string `envconfig:"COACHREWARDS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COACHREWARDS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COACHREWARDS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COACHREWARDS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COACHREWARDS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COACHREWARDS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COACHREWARDS_REDIS_ADDR"`
	Password     string        `envconfig:"COACHREWARDS_REDIS_PASSWORD"`
	DB           int           `envconfig:"COACHREWARDS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COACHREWARDS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COACHREWARDS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COACHREWARDS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COACHREWARDS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COACHREWARDS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COACHREWARDS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COACHREWARDS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COACHREWARDS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CommissionConfig carries the rate tables used by the bonus calculator.
// Rates are fractions of the net order total, indexed by purchase ordinal
// (first, second, third and later).
type CommissionConfig struct {
	BaseRates    []float64 `envconfig:"COACHREWARDS_COMMISSION_BASE_RATES" default:"0.10,0.08,0.05"`
	LoyaltyRates []float64 `envconfig:"COACHREWARDS_COMMISSION_LOYALTY_RATES" default:"0.00,0.02,0.03"`

	RetentionTwoSeasons   float64 `envconfig:"COACHREWARDS_COMMISSION_RETENTION_TWO_SEASONS" default:"10"`
	RetentionThreeSeasons float64 `envconfig:"COACHREWARDS_COMMISSION_RETENTION_THREE_SEASONS" default:"5"`
	NetworkBonus          float64 `envconfig:"COACHREWARDS_COMMISSION_NETWORK_BONUS" default:"5"`

	TierSilverThreshold   int `envconfig:"COACHREWARDS_TIER_SILVER_THRESHOLD" default:"5"`
	TierGoldThreshold     int `envconfig:"COACHREWARDS_TIER_GOLD_THRESHOLD" default:"10"`
	TierPlatinumThreshold int `envconfig:"COACHREWARDS_TIER_PLATINUM_THRESHOLD" default:"20"`
}

func (c CommissionConfig) validate() error {
	if len(c.BaseRates) == 0 {
		return fmt.Errorf("%s: at least one base rate is required", "COACHREWARDS_COMMISSION_BASE_RATES")
	}
	if len(c.LoyaltyRates) == 0 {
		return fmt.Errorf("%s: at least one loyalty rate is required", "COACHREWARDS_COMMISSION_LOYALTY_RATES")
	}
	if c.TierSilverThreshold >= c.TierGoldThreshold || c.TierGoldThreshold >= c.TierPlatinumThreshold {
		return fmt.Errorf("tier thresholds must be strictly ascending")
	}
	return nil
}

type EligibilityConfig struct {
	LookbackMonths    int  `envconfig:"COACHREWARDS_ELIGIBILITY_LOOKBACK_MONTHS" default:"18"`
	WindowRuleEnabled bool `envconfig:"COACHREWARDS_ELIGIBILITY_WINDOW_RULE_ENABLED" default:"true"`
}

type PartnershipConfig struct {
	Rate     float64       `envconfig:"COACHREWARDS_PARTNERSHIP_RATE" default:"0.05"`
	Cooldown time.Duration `envconfig:"COACHREWARDS_PARTNERSHIP_COOLDOWN" default:"720h"`
}

type AuditConfig struct {
	RetentionMonths  int     `envconfig:"COACHREWARDS_AUDIT_RETENTION_MONTHS" default:"6"`
	PurgeProbability float64 `envconfig:"COACHREWARDS_AUDIT_PURGE_PROBABILITY" default:"0.01"`
	PurgeBatchSize   int     `envconfig:"COACHREWARDS_AUDIT_PURGE_BATCH_SIZE" default:"500"`
}

// RateLimitConfig throttles the admin override surface. Zero windows or
// limits disable the corresponding counter.
type RateLimitConfig struct {
	OverrideWindow    time.Duration `envconfig:"COACHREWARDS_RATE_LIMIT_OVERRIDE_WINDOW" default:"1m"`
	OverrideIPLimit   int           `envconfig:"COACHREWARDS_RATE_LIMIT_OVERRIDE_IP_LIMIT" default:"30"`
	OverrideUserLimit int           `envconfig:"COACHREWARDS_RATE_LIMIT_OVERRIDE_USER_LIMIT" default:"10"`
}

type OrdersConfig struct {
	BaseURL        string        `envconfig:"COACHREWARDS_ORDERS_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"COACHREWARDS_ORDERS_REQUEST_TIMEOUT" default:"5s"`
	MaxAttempts    int           `envconfig:"COACHREWARDS_ORDERS_MAX_ATTEMPTS" default:"4"`
	InitialBackoff time.Duration `envconfig:"COACHREWARDS_ORDERS_INITIAL_BACKOFF" default:"200ms"`
	MaximumBackoff time.Duration `envconfig:"COACHREWARDS_ORDERS_MAXIMUM_BACKOFF" default:"5s"`
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
