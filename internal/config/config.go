// Package config содержит логику чтения конфигурации портала Orbit.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации портала.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`
	LogLevel    string `env:"LOG_LEVEL"`
	ChangeFeed  *bool  `env:"CHANGE_FEED"`
}

// ChangeFeedEnabled сообщает, нужно ли слушать канал изменений Postgres.
func (c *Config) ChangeFeedEnabled() bool {
	return c.ChangeFeed == nil || *c.ChangeFeed
}

// Validate проверяет обязательные параметры запуска.
func (c *Config) Validate() error {
	if c.DatabaseURI == "" {
		return errors.New("database URI is required")
	}
	if c.AuthSecret == "" {
		return errors.New("auth secret is required")
	}
	return nil
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envLogLevel := cfg.LogLevel
	envChangeFeed := cfg.ChangeFeed

	var changeFeed bool
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "identity provider token secret")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")
	flag.BoolVar(&changeFeed, "f", true, "listen to the database change feed")

	flag.Parse()

	cfg.ChangeFeed = &changeFeed

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envLogLevel != "" {
		cfg.LogLevel = envLogLevel
	}
	if envChangeFeed != nil {
		cfg.ChangeFeed = envChangeFeed
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
