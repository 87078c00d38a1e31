package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is used when AUTH_JWT_SECRET is unset. Development only.
const DefaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Crypto   CryptoConfig
	Sentry   SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr           string
	CORSOrigins        []string
	LoginRatePerMinute int
	ShutdownTimeout    time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	TTLReference  int // seconds, kategori/categories/users
	TTLLetters    int // seconds, surat/suratMasuk
	SweepInterval time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "console" or "json"
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
	BcryptCost     int
}

// CryptoConfig holds the secret used to seal confidential letter fields.
// An empty secret stores them in plaintext.
type CryptoConfig struct {
	FieldSecret string
}

// SentryConfig holds error reporting configuration. An empty DSN disables reporting.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// Load reads an optional .env file, then parses flags and environment
// variables to build configuration. Environment wins over flags.
func Load() *Config {
	return LoadFrom(flag.CommandLine, os.Args[1:])
}

// LoadFrom is Load with an explicit flag set, used by the CLI and tests
func LoadFrom(fs *flag.FlagSet, args []string) *Config {
	// a missing .env is normal outside development
	_ = godotenv.Load(getEnvOrDefault("ENV_FILE", ".env"))

	cfg := &Config{}

	httpAddr := fs.String("http", ":8080", "HTTP server address")
	corsOrigins := fs.String("cors-origins", "*", "Comma separated list of allowed CORS origins")
	loginRate := fs.Int("login-rate", 5, "Login attempts allowed per minute per client")
	cacheBackend := fs.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := fs.String("redis-addr", "localhost:6379", "Redis server address")
	ttlReference := fs.Int("cache-ttl-reference", 300, "Cache TTL in seconds for kategori, categories and users")
	ttlLetters := fs.Int("cache-ttl-letters", 60, "Cache TTL in seconds for surat and surat masuk")
	sweepInterval := fs.Duration("cache-sweep-interval", 5*time.Minute, "Interval between expired cache entry sweeps")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "console", "Log format (console, json)")
	dbHost := fs.String("db-host", "localhost", "PostgreSQL host")
	dbPort := fs.Int("db-port", 5432, "PostgreSQL port")
	dbUser := fs.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := fs.String("db-password", "postgres", "PostgreSQL password")
	dbName := fs.String("db-name", "sipas", "PostgreSQL database name")
	dbSSLMode := fs.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	_ = fs.Parse(args)

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		*corsOrigins = v
	}
	overrideInt("LOGIN_RATE_PER_MINUTE", loginRate)
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	overrideInt("CACHE_TTL_REFERENCE", ttlReference)
	overrideInt("CACHE_TTL_LETTERS", ttlLetters)
	overrideDuration("CACHE_SWEEP_INTERVAL", sweepInterval)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		*logFormat = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	overrideInt("DB_PORT", dbPort)
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}

	cfg.Server = ServerConfig{
		HTTPAddr:           *httpAddr,
		CORSOrigins:        splitList(*corsOrigins),
		LoginRatePerMinute: *loginRate,
		ShutdownTimeout:    10 * time.Second,
	}

	redisDB := 0
	overrideInt("REDIS_DB", &redisDB)
	cfg.Cache = CacheConfig{
		Backend:       strings.ToLower(*cacheBackend),
		RedisAddr:     *redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", "sipas:"),
		TTLReference:  *ttlReference,
		TTLLetters:    *ttlLetters,
		SweepInterval: *sweepInterval,
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level:  *logLevel,
		Format: strings.ToLower(*logFormat),
	}

	cfg.Auth = loadAuthConfig()

	cfg.Crypto = CryptoConfig{
		FieldSecret: os.Getenv("FIELD_ENCRYPTION_SECRET"),
	}

	cfg.Sentry = SentryConfig{
		DSN:         os.Getenv("SENTRY_DSN"),
		Environment: getEnvOrDefault("SENTRY_ENVIRONMENT", "development"),
		Release:     os.Getenv("SENTRY_RELEASE"),
	}

	return cfg
}

func loadAuthConfig() AuthConfig {
	accessTTL := 8 * time.Hour
	overrideDuration("AUTH_ACCESS_TOKEN_TTL", &accessTTL)

	cost := 10
	overrideInt("AUTH_BCRYPT_COST", &cost)

	return AuthConfig{
		JWTSecret:      getEnvOrDefault("AUTH_JWT_SECRET", DefaultJWTSecret),
		JWTIssuer:      getEnvOrDefault("AUTH_JWT_ISSUER", "sipas"),
		JWTAudience:    getEnvOrDefault("AUTH_JWT_AUDIENCE", "sipas-users"),
		AccessTokenTTL: accessTTL,
		BcryptCost:     cost,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func overrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
