// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported ledger backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	Environment         string        `mapstructure:"GO_ENV"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	LedgerBackend       string        `mapstructure:"LEDGER_BACKEND"`
	LedgerSeed          string        `mapstructure:"LEDGER_SEED"`
	LedgerLatency       time.Duration `mapstructure:"LEDGER_LATENCY"`
	SessionIdleTimeout  time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	SessionReapSchedule string        `mapstructure:"SESSION_REAP_SCHEDULE"`
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	AMQPURL             string        `mapstructure:"AMQP_URL"`
	NotifyExchange      string        `mapstructure:"NOTIFY_EXCHANGE"`
	NotifyFeedSize      int           `mapstructure:"NOTIFY_FEED_SIZE"`
}

// Load reads configuration from file or environment variables.
//
// An optional .env file next to app.env is loaded into the process
// environment first, so local secrets can override the checked-in defaults.
func Load(path string) (Config, error) {
	var c Config

	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("GO_ENV", "production")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("LEDGER_BACKEND", BackendMemory)
	v.SetDefault("LEDGER_SEED", "empty")
	v.SetDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	v.SetDefault("SESSION_REAP_SCHEDULE", "@every 1m")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("NOTIFY_EXCHANGE", "ledger_notifications")
	v.SetDefault("NOTIFY_FEED_SIZE", 50)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
