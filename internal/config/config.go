package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	str2duration "github.com/xhit/go-str2duration/v2"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// ErrMissingJWTSecret is returned when JWT_SECRET is not set.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	DBDSN       string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	TokenTTL    time.Duration
	BcryptCost  int
	LogLevel    string
	LogFormat   string
	SwaggerHost string
}

// Load builds Config from the environment, reading a .env file first when
// one is present. It fails when the signing secret is missing or the token
// expiry cannot be parsed.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ttl, err := str2duration.ParseDuration(getEnv("TOKEN_EXPIRY", "1h"))
	if err != nil {
		return nil, fmt.Errorf("parse TOKEN_EXPIRY: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_EXPIRY must be positive, got %s", ttl)
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", getEnv("PORT", "4000")),
		DBDriver:    getEnv("DB_DRIVER", DriverMySQL),
		DBDSN:       getEnv("DB_DSN", getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/noelphones?charset=utf8mb4&parseTime=True&loc=Local")),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenTTL:    ttl,
		BcryptCost:  getEnvInt("BCRYPT_COST", 10),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that Load cannot express through defaults.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.DBDriver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
