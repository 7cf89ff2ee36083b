// Package env loads configuration from the environment and an optional .env file.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	envparse "github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/dense-analysis/boardfolio/internal/archive"
	"github.com/dense-analysis/boardfolio/internal/database"
)

type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"pgx"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Name     string `env:"DB_NAME" envDefault:"boardfolio"`
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`
	Path     string `env:"DB_PATH" envDefault:"boardfolio.db"`
}

// Database converts the environment settings for the database package.
func (cfg DatabaseConfig) Database() database.Config {
	return database.Config{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Name:     cfg.Name,
		Username: cfg.Username,
		Password: cfg.Password,
		Path:     cfg.Path,
	}
}

type QuoteConfig struct {
	Provider string        `env:"QUOTE_PROVIDER" envDefault:"alphavantage"`
	APIURL   string        `env:"QUOTE_API_URL" envDefault:"https://www.alphavantage.co/query"`
	APIKey   string        `env:"QUOTE_API_KEY"`
	CacheTTL time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"1m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type ClickHouseConfig struct {
	Host     string `env:"CLICKHOUSE_HOST"`
	Port     string `env:"CLICKHOUSE_PORT" envDefault:"9000"`
	Database string `env:"CLICKHOUSE_DATABASE" envDefault:"default"`
	Username string `env:"CLICKHOUSE_USERNAME" envDefault:"default"`
	Password string `env:"CLICKHOUSE_PASSWORD"`
}

// Archive converts the environment settings for the quote archive.
func (cfg ClickHouseConfig) Archive() archive.Config {
	return archive.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     string `env:"SMTP_PORT" envDefault:"465"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"noreply@boardfolio.local"`
}

type Config struct {
	Address       string          `env:"ADDRESS" envDefault:":8000"`
	SecretKey     string          `env:"SECRET_KEY,required"`
	Debug         bool            `env:"DEBUG" envDefault:"false"`
	LogLevel      string          `env:"LOG_LEVEL" envDefault:"info"`
	BaseURL       string          `env:"BASE_URL" envDefault:"http://localhost:8000"`
	SeedBalance   decimal.Decimal `env:"SEED_BALANCE" envDefault:"10000.00"`
	ResetTokenTTL time.Duration   `env:"RESET_TOKEN_TTL" envDefault:"30m"`
	StaticDir     string          `env:"STATIC_DIR" envDefault:"static"`
	AvatarDir     string          `env:"AVATAR_DIR" envDefault:"static/profile-imgs"`

	Database   DatabaseConfig
	Quote      QuoteConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	SMTP       SMTPConfig
}

// LoadEnvironmentVariables loads the .env file if there is one.
func LoadEnvironmentVariables() error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env error: %w", err)
	}

	return nil
}

// Load reads the .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := LoadEnvironmentVariables(); err != nil {
		return nil, err
	}

	return Parse()
}

// Parse parses the process environment into a Config.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := envparse.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if len(cfg.SecretKey) < 16 {
		return nil, errors.New("SECRET_KEY must be at least 16 characters")
	}

	if cfg.SeedBalance.IsNegative() {
		return nil, errors.New("SEED_BALANCE must not be negative")
	}

	return cfg, nil
}
