package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "tawseel"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Links        LinksConfig
	Dispatch     DispatchConfig
	Media        MediaConfig
	Cleanup      CleanupConfig
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
	Env          string `envconfig:"TAWSEEL_APP_ENV" required:"true"`
	Port         string `envconfig:"TAWSEEL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TAWSEEL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TAWSEEL_LOG_WARN_STACK" default:"false"`
	Timezone     string `envconfig:"TAWSEEL_APP_TIMEZONE" default:"Asia/Riyadh"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TAWSEEL_DB_DSN"`
	Driver string `envconfig:"TAWSEEL_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TAWSEEL_DB_HOST"`
	Port     int    `envconfig:"TAWSEEL_DB_PORT" default:"5432"`
	User     string `envconfig:"TAWSEEL_DB_USER"`
	Password string `envconfig:"TAWSEEL_DB_PASSWORD"`
	Name     string `envconfig:"TAWSEEL_DB_NAME"`
	SSLMode  string `envconfig:"TAWSEEL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAWSEEL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAWSEEL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAWSEEL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAWSEEL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TAWSEEL_REDIS_URL"`
	Address      string        `envconfig:"TAWSEEL_REDIS_ADDR"`
	Password     string        `envconfig:"TAWSEEL_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAWSEEL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAWSEEL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAWSEEL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAWSEEL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAWSEEL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAWSEEL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TAWSEEL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TAWSEEL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TAWSEEL_JWT_EXPIRATION_MINUTES" default:"480"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type StorageConfig struct {
	Endpoint      string `envconfig:"TAWSEEL_STORAGE_ENDPOINT" required:"true"`
	AccessKey     string `envconfig:"TAWSEEL_STORAGE_ACCESS_KEY"`
	SecretKey     string `envconfig:"TAWSEEL_STORAGE_SECRET_KEY"`
	UseSSL        bool   `envconfig:"TAWSEEL_STORAGE_USE_SSL" default:"true"`
	Region        string `envconfig:"TAWSEEL_STORAGE_REGION" default:"me-south-1"`
	Bucket        string `envconfig:"TAWSEEL_STORAGE_BUCKET" required:"true"`
	PublicBaseURL string `envconfig:"TAWSEEL_STORAGE_PUBLIC_BASE_URL" required:"true"`
}

type LinksConfig struct {
	BaseURL string        `envconfig:"TAWSEEL_LINKS_BASE_URL" required:"true"`
	Secret  string        `envconfig:"TAWSEEL_LINKS_SECRET"`
	TTL     time.Duration `envconfig:"TAWSEEL_LINKS_TTL" default:"168h"`
}

type DispatchConfig struct {
	CountryPrefix   string `envconfig:"TAWSEEL_DISPATCH_COUNTRY_PREFIX" default:"966"`
	WhatsAppBaseURL string `envconfig:"TAWSEEL_DISPATCH_WHATSAPP_BASE_URL" default:"https://wa.me"`
}

type MediaConfig struct {
	SignedProofMaxMB  int `envconfig:"TAWSEEL_MEDIA_SIGNED_PROOF_MAX_MB" default:"5"`
	PhotoMaxMB        int `envconfig:"TAWSEEL_MEDIA_PHOTO_MAX_MB" default:"10"`
	ImageMaxDimension int `envconfig:"TAWSEEL_MEDIA_IMAGE_MAX_DIMENSION" default:"1920"`
	ImageTargetKB     int `envconfig:"TAWSEEL_MEDIA_IMAGE_TARGET_KB" default:"1024"`
	ImageQuality      int `envconfig:"TAWSEEL_MEDIA_IMAGE_QUALITY" default:"85"`
}

// SignedProofMaxBytes converts the configured megabyte cap to bytes.
func (m MediaConfig) SignedProofMaxBytes() int64 {
	return int64(m.SignedProofMaxMB) * 1024 * 1024
}

// PhotoMaxBytes converts the configured megabyte cap to bytes.
func (m MediaConfig) PhotoMaxBytes() int64 {
	return int64(m.PhotoMaxMB) * 1024 * 1024
}

// ImageTargetBytes converts the configured kilobyte target to bytes.
func (m MediaConfig) ImageTargetBytes() int {
	return m.ImageTargetKB * 1024
}

type CleanupConfig struct {
	Concurrency int           `envconfig:"TAWSEEL_CLEANUP_CONCURRENCY" default:"8"`
	Retention   time.Duration `envconfig:"TAWSEEL_CLEANUP_RETENTION" default:"720h"`
	Interval    time.Duration `envconfig:"TAWSEEL_CLEANUP_INTERVAL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TAWSEEL_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		return fmt.Errorf("TAWSEEL_DB_DSN is required for the sqlite driver")
	}

	missing := []string{}
	for env, value := range map[string]string{
		"TAWSEEL_DB_HOST": db.Host,
		"TAWSEEL_DB_USER": db.User,
		"TAWSEEL_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either TAWSEEL_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
