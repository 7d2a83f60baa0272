// Package config reads process settings from WISHLIST_* environment
// variables. Every binary loads the same Config and uses the sections it
// needs.
package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

// Load processes the environment and then checks the constraints that span
// several variables, reporting all of them at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) check() error {
	var errs error
	if _, ok := environments[strings.ToLower(c.App.Env)]; !ok {
		errs = multierr.Append(errs, fmt.Errorf("%s: unknown environment %q", EnvAppEnv, c.App.Env))
	}
	dsn, err := c.DB.connString()
	errs = multierr.Append(errs, err)
	c.DB.DSN = dsn
	if c.JWT.AccessTTL <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvJWTAccessTTL))
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		errs = multierr.Append(errs, fmt.Errorf("%s must exceed %s", EnvJWTRefreshTTL, EnvJWTAccessTTL))
	}
	if c.Outbox.MaxAttempts < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be at least 1", EnvOutboxMaxAttempts))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"WISHLIST_APP_ENV" required:"true"`
	Port         string `envconfig:"WISHLIST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WISHLIST_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"WISHLIST_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"WISHLIST_LOG_WARN_STACK" default:"false"`
}

// Local reports whether the process runs on a developer machine or a dev
// stack, where startup conveniences such as auto-migration are allowed.
func (a AppConfig) Local() bool {
	return !environments[strings.ToLower(a.Env)]
}

// environments maps each accepted WISHLIST_APP_ENV to whether it is deployed.
var environments = map[string]bool{
	AppEnvLocal: false,
	AppEnvDev:   false,
	AppEnvProd:  true,
}

// DBConfig takes either a full DSN or its parts.
type DBConfig struct {
	DSN      string `envconfig:"WISHLIST_DB_DSN"`
	Host     string `envconfig:"WISHLIST_DB_HOST"`
	Port     int    `envconfig:"WISHLIST_DB_PORT" default:"5432"`
	User     string `envconfig:"WISHLIST_DB_USER"`
	Password string `envconfig:"WISHLIST_DB_PASSWORD"`
	Name     string `envconfig:"WISHLIST_DB_NAME"`
	SSLMode  string `envconfig:"WISHLIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WISHLIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WISHLIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WISHLIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WISHLIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"WISHLIST_DB_SLOW_QUERY" default:"200ms"`
}

func (d DBConfig) connString() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}
	var missing []string
	for env, value := range map[string]string{EnvDBHost: d.Host, EnvDBUser: d.User, EnvDBName: d.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("set %s or all of %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(d.User),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String(), nil
}

type RedisConfig struct {
	URL          string        `envconfig:"WISHLIST_REDIS_URL"`
	Address      string        `envconfig:"WISHLIST_REDIS_ADDR"`
	Password     string        `envconfig:"WISHLIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"WISHLIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WISHLIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WISHLIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WISHLIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WISHLIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WISHLIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig signs access tokens; RefreshTTL bounds the server-side session.
type JWTConfig struct {
	Secret     string        `envconfig:"WISHLIST_JWT_SECRET" required:"true"`
	Issuer     string        `envconfig:"WISHLIST_JWT_ISSUER" required:"true"`
	AccessTTL  time.Duration `envconfig:"WISHLIST_JWT_ACCESS_TTL" default:"30m"`
	RefreshTTL time.Duration `envconfig:"WISHLIST_JWT_REFRESH_TTL" default:"720h"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"WISHLIST_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"WISHLIST_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"WISHLIST_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"WISHLIST_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"WISHLIST_ARGON_KEY_LEN" default:"32"`
}

// AuthRateLimitConfig sets the login and register throttles. A zero limit
// turns that counter off.
type AuthRateLimitConfig struct {
	LoginWindow          time.Duration `envconfig:"WISHLIST_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginAccountLimit    int           `envconfig:"WISHLIST_AUTH_RATE_LIMIT_LOGIN_ACCOUNT_LIMIT" default:"5"`
	LoginIPLimit         int           `envconfig:"WISHLIST_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow       time.Duration `envconfig:"WISHLIST_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterAccountLimit int           `envconfig:"WISHLIST_AUTH_RATE_LIMIT_REGISTER_ACCOUNT_LIMIT" default:"3"`
	RegisterIPLimit      int           `envconfig:"WISHLIST_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WISHLIST_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"WISHLIST_CORS_ALLOWED_ORIGINS" default:"*"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WISHLIST_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"WISHLIST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WISHLIST_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"WISHLIST_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"WISHLIST_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"WISHLIST_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes is the per-image cap; a non-positive setting means 10 MiB.
func (m MediaConfig) MaxUploadBytes() int64 {
	mb := m.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"WISHLIST_PUBSUB_NOTIFICATION_TOPIC" default:"wishlist-notification-events"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"WISHLIST_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"WISHLIST_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"WISHLIST_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"WISHLIST_CRON_INTERVAL" default:"24h"`
	OutboxRetentionDays int           `envconfig:"WISHLIST_OUTBOX_RETENTION_DAYS" default:"30"`
}
