package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	// Environment variables
	_ "github.com/joho/godotenv/autoload"
)

// DefaultSpaceXAPIURL is the launch query endpoint of the SpaceX v4 API.
const DefaultSpaceXAPIURL = "https://api.spacexdata.com/v4/launches/query"

// ErrMissingDatabaseURL is returned when no store connection string is set.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

// Config holds everything the API process reads from its environment.
type Config struct {
	Port            int
	DatabaseURL     string
	SpaceXAPIURL    string
	SpaceXTimeout   time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first by the godotenv autoload import.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("PORT", 8000)
	v.SetDefault("SPACEX_API_URL", DefaultSpaceXAPIURL)
	v.SetDefault("SPACEX_TIMEOUT", 30*time.Second)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("SHUTDOWN_TIMEOUT", 5*time.Second)

	// MONGO_URL is accepted for deployments that predate DATABASE_URL.
	if err := v.BindEnv("DATABASE_URL", "DATABASE_URL", "MONGO_URL"); err != nil {
		return nil, fmt.Errorf("binding DATABASE_URL : %w", err)
	}

	cfg := &Config{
		Port:            v.GetInt("PORT"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		SpaceXAPIURL:    v.GetString("SPACEX_API_URL"),
		SpaceXTimeout:   v.GetDuration("SPACEX_TIMEOUT"),
		RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	return cfg, nil
}

// NewLogger builds the process logger from the LOG_LEVEL and LOG_FORMAT
// settings.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing LOG_LEVEL : %w", err)
	}
	logger.SetLevel(level)

	switch c.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return logger, nil
}
