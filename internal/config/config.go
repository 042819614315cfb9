package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/mlms/internal/database"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"MLMS"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
		SeedDemo bool   `envconfig:"SEED_DEMO_DATA" default:"false"`
	}

	DB struct {
		Driver   string `envconfig:"DB_DRIVER" default:"pgx"`
		DSN      string `envconfig:"DB_DSN"`
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"mlms"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	Advisory struct {
		APIKey  string        `envconfig:"GEMINI_API_KEY"`
		Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
		BaseURL string        `envconfig:"GEMINI_BASE_URL"`
		Timeout time.Duration `envconfig:"ADVISORY_TIMEOUT" default:"15s"`
	}

	Auth struct {
		Secret         string        `envconfig:"AUTH_SECRET" default:"change-me"`
		SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"30m"`
	}

	Sweep struct {
		Schedule string `envconfig:"SWEEP_SCHEDULE" default:"@daily"`
	}
}

// ConnectionString returns DB_DSN when set, otherwise a PostgreSQL URL built
// from the individual DB_* settings.
func (c *Config) ConnectionString() string {
	if c.DB.DSN != "" || c.DB.Driver == database.DriverSQLite {
		return c.DB.DSN
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.DB.Driver == database.DriverSQLite && cfg.DB.DSN == "" {
		cfg.DB.DSN = "mlms.db"
	}

	return &cfg, nil
}
