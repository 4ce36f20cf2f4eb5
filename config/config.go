package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config mirrors config/config.yaml. Secrets are overridden from the
// environment so they stay out of version control.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	Cashout  CashoutConfig  `mapstructure:"cashout"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug/release/test
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type WeatherConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"`     // seconds
	RetryCount int    `mapstructure:"retry_count"` // transient fetch retries
}

type CashoutConfig struct {
	PollSeconds int `mapstructure:"poll_seconds"` // orchestrator tick interval
}

type NotifyConfig struct {
	WebhookID    string `mapstructure:"webhook_id"`
	WebhookToken string `mapstructure:"webhook_token"`
}

// LoadConfig reads config/config.yaml, then applies .env / environment
// overrides for sensitive values (env wins over yaml).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("cashout.poll_seconds", 30)
	viper.SetDefault("weather.timeout", 10)
	viper.SetDefault("weather.retry_count", 2)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_ID"); v != "" {
		cfg.Notify.WebhookID = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_TOKEN"); v != "" {
		cfg.Notify.WebhookToken = v
	}
}
