package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. Only development accepts it.
const DevJWTSecret = "wingy-shop-secret"

type Config struct {
	AppEnv   string
	LogLevel string
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Wingy    WingyConfig
	RabbitMQ RabbitMQConfig
	Market   MarketConfig
	SeedDemo bool
}

type ServerConfig struct {
	Port string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type DatabaseConfig struct {
	Driver string // memory, sqlite or postgres
	DSN    string
}

type WingyConfig struct {
	BaseURL string // Empty selects the in-process development ledger
	Timeout time.Duration
}

type RabbitMQConfig struct {
	URL string // Empty disables event publishing
}

type MarketConfig struct {
	MaxProductStock int
}

// SetDefaults registers every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("DB_DRIVER", "memory")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("WINGY_API_URL", "https://api.wingycoin.com")
	v.SetDefault("WINGY_API_TIMEOUT", 10*time.Second)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("MAX_PRODUCT_STOCK", 1000)
	v.SetDefault("SEED_DEMO", false)
}

// Load reads an optional .env file and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		SeedDemo: v.GetBool("SEED_DEMO"),
	}
	cfg.Server.Port = v.GetString("APP_PORT")
	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.TokenTTL = v.GetDuration("TOKEN_TTL")
	cfg.Database.Driver = strings.ToLower(v.GetString("DB_DRIVER"))
	cfg.Database.DSN = v.GetString("DATABASE_DSN")
	cfg.Wingy.BaseURL = strings.TrimRight(v.GetString("WINGY_API_URL"), "/")
	cfg.Wingy.Timeout = v.GetDuration("WINGY_API_TIMEOUT")
	cfg.RabbitMQ.URL = v.GetString("RABBITMQ_URL")
	cfg.Market.MaxProductStock = v.GetInt("MAX_PRODUCT_STOCK")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.Auth.JWTSecret == DevJWTSecret && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Market.MaxProductStock < 1 {
		return fmt.Errorf("MAX_PRODUCT_STOCK must be at least 1")
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}
