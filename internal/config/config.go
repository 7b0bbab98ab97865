// Package config loads service configuration from environment variables and
// an optional ~/.vitalform/config.json file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the backend service.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// PublicURL is the externally reachable base URL, used to build the
	// bot-handshake callback link.
	PublicURL string `mapstructure:"public_url"`
}

// DatabaseConfig holds credential-store settings. Driver is either
// "postgres" (Supabase or any Postgres) or "sqlite" for local development.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
	SQLitePath      string `mapstructure:"sqlite_path"`
}

// RedisConfig holds Redis settings for rate limiting.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelegramConfig holds bot credentials. BotSecret is the shared secret the
// bot must present when requesting handshake tokens; it is distinct from the
// Bot API token.
type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	BotSecret  string `mapstructure:"bot_secret"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// AuthConfig holds secrets owned by the auth core and its collaborators.
// EncryptionKey protects questionnaire payloads at rest (base64, 32 bytes
// decoded, or an arbitrary passphrase that gets stretched).
type AuthConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

// SentryConfig holds error-telemetry settings. Empty DSN disables Sentry.
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Environment string  `mapstructure:"environment"`
}

// Load reads configuration with the precedence: environment variables, then
// ~/.vitalform/config.json, then built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Aliases for flat env names that don't follow the section_key shape.
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("database.sqlite_path", "SQLITE_PATH")
	_ = v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.bot_secret", "TELEGRAM_BOT_SECRET")
	_ = v.BindEnv("telegram.webhook_url", "TELEGRAM_WEBHOOK_URL")
	_ = v.BindEnv("auth.encryption_key", "AUTH_ENCRYPTION_KEY")
	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
	_ = v.BindEnv("environment", "ENVIRONMENT")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	if homeDir, err := os.UserHomeDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(homeDir + "/.vitalform")
		// Missing file is fine; a malformed one is not.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				if _, statErr := os.Stat(homeDir + "/.vitalform/config.json"); statErr == nil {
					return nil, fmt.Errorf("failed to read config file: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.public_url", "http://localhost:8080")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "vitalform")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")
	v.SetDefault("database.sqlite_path", "vitalform.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.bot_secret", "")
	v.SetDefault("telegram.webhook_url", "")

	v.SetDefault("auth.encryption_key", "")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.sample_rate", 1.0)
}

func validate(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be one of [postgres sqlite], got %q", cfg.Database.Driver)
	}
	cfg.Database.Driver = driver

	if driver == "sqlite" && strings.TrimSpace(cfg.Database.SQLitePath) == "" {
		return fmt.Errorf("database.sqlite_path is required when database.driver is sqlite")
	}

	return nil
}
