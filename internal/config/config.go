// Package config holds the campaign service configuration, loaded from
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/dipta-sdd/campaignbay-sub001/internal/pricing"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/config"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/database"
)

// Config is the campaign service configuration.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	// Timezone is the IANA site timezone naive campaign schedule times
	// are interpreted in.
	Timezone string `env:"SITE_TIMEZONE" envDefault:"UTC"`
	// PriorityPolicy picks among overlapping discounts:
	// apply_highest, apply_lowest or apply_first.
	PriorityPolicy string `env:"PRIORITY_POLICY" envDefault:"apply_highest"`
	// CacheTTL bounds how stale the active-campaign cache may go.
	CacheTTL time.Duration `env:"ACTIVE_CACHE_TTL" envDefault:"1m"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"campaignbay"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// SchedulerQueue is the asynq queue lifecycle jobs run on.
	SchedulerQueue string `env:"SCHEDULER_QUEUE" envDefault:"campaigns"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid SITE_TIMEZONE %q: %w", c.Timezone, err)
	}
	if !pricing.IsValidPolicy(c.PriorityPolicy) {
		return fmt.Errorf("invalid PRIORITY_POLICY %q", c.PriorityPolicy)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("ACTIVE_CACHE_TTL must be positive")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	return nil
}

// Location returns the parsed site timezone. Call validate first;
// an unparseable zone falls back to UTC here.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Postgres returns the pgx pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPassword,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSLMode,
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Redis returns the redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
