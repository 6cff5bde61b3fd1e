package config

import (
	"errors"
	"fmt"
	"net/url"
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
	Storage       StorageConfig
	GCP           GCPConfig
	GCS           GCSConfig
	AI            AIConfig
	Seed          SeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	switch c.Storage.Driver {
	case StorageDriverLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required for local storage", EnvStorageDir))
		}
	case StorageDriverGCS:
		if c.GCS.BucketName == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required for gcs storage", EnvGCSBucket))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unsupported storage driver %q", c.Storage.Driver))
	}
	if c.Storage.MaxImageMB <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvMaxImageMB))
	}
	if c.JWT.RefreshTokenTTL() <= time.Duration(c.JWT.ExpirationMinutes)*time.Minute {
		err = multierr.Append(err, errors.New("refresh token ttl must exceed access token ttl"))
	}
	return err
}

type AppConfig struct {
	Env            string        `envconfig:"ROOTSREACH_APP_ENV" required:"true"`
	Port           string        `envconfig:"ROOTSREACH_APP_PORT" default:"8080"`
	LogLevel       string        `envconfig:"ROOTSREACH_LOG_LEVEL" default:"info"`
	LogWarnStack   bool          `envconfig:"ROOTSREACH_LOG_WARN_STACK" default:"false"`
	LogFormat      string        `envconfig:"ROOTSREACH_LOG_FORMAT" default:"json"`
	RequestTimeout time.Duration `envconfig:"ROOTSREACH_REQUEST_TIMEOUT" default:"30s"`
	CORSOrigins    []string      `envconfig:"ROOTSREACH_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"ROOTSREACH_DB_DSN"`

	LegacyHost     string `envconfig:"ROOTSREACH_DB_HOST"`
	LegacyPort     int    `envconfig:"ROOTSREACH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ROOTSREACH_DB_USER"`
	LegacyPassword string `envconfig:"ROOTSREACH_DB_PASSWORD"`
	LegacyName     string `envconfig:"ROOTSREACH_DB_NAME"`
	LegacySSLMode  string `envconfig:"ROOTSREACH_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ROOTSREACH_SQLITE_PATH" default:"rootsreach.db"`

	MaxOpenConns    int           `envconfig:"ROOTSREACH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROOTSREACH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROOTSREACH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROOTSREACH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ROOTSREACH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ROOTSREACH_REDIS_ADDR"`
	Password     string        `envconfig:"ROOTSREACH_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROOTSREACH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROOTSREACH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROOTSREACH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROOTSREACH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROOTSREACH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROOTSREACH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ROOTSREACH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ROOTSREACH_JWT_ISSUER" default:"rootsreach"`
	ExpirationMinutes      int    `envconfig:"ROOTSREACH_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"ROOTSREACH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the lifetime of minted access tokens.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ROOTSREACH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ROOTSREACH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ROOTSREACH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ROOTSREACH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ROOTSREACH_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ROOTSREACH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ROOTSREACH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ROOTSREACH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ROOTSREACH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ROOTSREACH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ROOTSREACH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ROOTSREACH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ROOTSREACH_AUTO_MIGRATE" default:"false"`
}

type StorageConfig struct {
	Driver        string `envconfig:"ROOTSREACH_STORAGE_DRIVER" default:"local"`
	LocalDir      string `envconfig:"ROOTSREACH_STORAGE_LOCAL_DIR" default:"uploads"`
	PublicBaseURL string `envconfig:"ROOTSREACH_STORAGE_PUBLIC_BASE_URL" default:"/uploads"`
	MaxImageMB    int    `envconfig:"ROOTSREACH_MAX_IMAGE_MB" default:"5"`
}

// MaxImageBytes converts the configured megabyte limit into bytes.
func (s StorageConfig) MaxImageBytes() int64 {
	return int64(s.MaxImageMB) << 20
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ROOTSREACH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ROOTSREACH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ROOTSREACH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"ROOTSREACH_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"ROOTSREACH_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type AIConfig struct {
	VoiceBaseURL             string `envconfig:"ROOTSREACH_AI_VOICE_BASE_URL" default:"https://api.example.com"`
	DefaultTranslateLanguage string `envconfig:"ROOTSREACH_AI_TRANSLATE_LANGUAGE" default:"hi"`
	DefaultVoiceLanguage     string `envconfig:"ROOTSREACH_AI_VOICE_LANGUAGE" default:"en"`
}

type SeedConfig struct {
	AdminEmail    string `envconfig:"ROOTSREACH_SEED_ADMIN_EMAIL" default:"admin@rootsreach.com"`
	AdminPassword string `envconfig:"ROOTSREACH_SEED_ADMIN_PASSWORD" default:"admin123"`
	UserPassword  string `envconfig:"ROOTSREACH_SEED_USER_PASSWORD" default:"password123"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = db.SQLitePath
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
