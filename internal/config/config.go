package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/vrquest/internal/database"
)

// Storage locates the catalog and the progress store. The CLI needs only
// this part.
type Storage struct {
	DBDriver string `env:"DB_DRIVER" envDefault:"libsql"`
	DBPath   string `env:"DB_PATH" envDefault:"data/vrquest.db"`
	// ProgressDSN moves progress records to PostgreSQL when set.
	ProgressDSN string `env:"PROGRESS_DSN"`
	// CatalogFile serves tours from a YAML file instead of the database.
	CatalogFile string `env:"CATALOG_FILE"`
}

type Config struct {
	Storage

	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
	// DailyContent limits sessions to the POIs scheduled for the current day.
	DailyContent bool `env:"DAILY_CONTENT" envDefault:"false"`
	// SessionIdle expires browsing sessions nobody has touched for this long.
	SessionIdle time.Duration `env:"SESSION_IDLE" envDefault:"30m"`

	RedisURL       string        `env:"REDIS_URL"`
	LeaderboardTTL time.Duration `env:"LEADERBOARD_TTL" envDefault:"30s"`

	JWTSecret string `env:"JWT_SECRET,required"`
	JWTIssuer string `env:"JWT_ISSUER"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"vrquest.progress"`

	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadStorage() (*Storage, error) {
	st, err := env.ParseAs[Storage]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := st.validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s Storage) validate() error {
	switch s.DBDriver {
	case database.DriverLibSQL, database.DriverSQLite:
		return nil
	default:
		return fmt.Errorf("DB_DRIVER: unknown driver %q", s.DBDriver)
	}
}

func (c Config) validate() error {
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET: must be at least 16 bytes")
	}
	if c.LeaderboardTTL < 0 {
		return fmt.Errorf("LEADERBOARD_TTL: must not be negative")
	}
	if c.SessionIdle < 0 {
		return fmt.Errorf("SESSION_IDLE: must not be negative")
	}
	return nil
}
