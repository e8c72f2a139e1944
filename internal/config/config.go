package config

import (
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Port              string
	DBPath            string
	ExchangeBaseURL   string
	ExchangeAPIKey    string
	ExchangeAPISecret string
	ExchangeTimeout   time.Duration
	LogLevel          logrus.Level
	LogFormat         string
}

var defaults = map[string]any{
	"port":              "8080",
	"db_path":           "reconciler.db",
	"exchange_base_url": "https://api.binance.com",
	"exchange_timeout":  "30s",
	"log_level":         "info",
	"log_format":        "text",
}

// Load reads configuration from the environment. The given dotenv files, or
// .env when none are named, are loaded first without overriding variables
// that are already set. A missing dotenv file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load dotenv")
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, errors.Wrap(err, "LOG_LEVEL")
	}

	timeout, err := time.ParseDuration(v.GetString("exchange_timeout"))
	if err != nil || timeout <= 0 {
		return nil, errors.Errorf("EXCHANGE_TIMEOUT: invalid duration %q", v.GetString("exchange_timeout"))
	}

	format := strings.ToLower(v.GetString("log_format"))
	if format != "text" && format != "json" {
		return nil, errors.Errorf("LOG_FORMAT: expected text or json, got %q", format)
	}

	return &Config{
		Port:              v.GetString("port"),
		DBPath:            v.GetString("db_path"),
		ExchangeBaseURL:   v.GetString("exchange_base_url"),
		ExchangeAPIKey:    v.GetString("exchange_api_key"),
		ExchangeAPISecret: v.GetString("exchange_api_secret"),
		ExchangeTimeout:   timeout,
		LogLevel:          level,
		LogFormat:         format,
	}, nil
}

// NewLogger builds the process logger described by c.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}
	return log
}
