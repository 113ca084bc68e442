// Package config loads englishbuddy settings from an optional YAML file, .env and the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
)

// Config is the root configuration.
// Source priority: explicit path, then CONFIG_PATH, then environment only.
// Environment variables always overlay values read from the file.
type Config struct {
	Env      string      `yaml:"env" env:"ENV" env-default:"production"`
	LogLevel string      `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTPConfig  `yaml:"http"`
	Store    StoreConfig `yaml:"store"`
	LLM      LLMConfig   `yaml:"llm"`
	Email    EmailConfig `yaml:"email"`
	Tutor    TutorConfig `yaml:"tutor"`
	Feed     FeedConfig  `yaml:"feed"`
}

type HTTPConfig struct {
	Host           string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"HTTP_PORT" env-default:"5001"`
	CORSOrigins    []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"*"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"0s"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

type StoreConfig struct {
	Driver           string `yaml:"driver" env:"STORE_DRIVER" env-default:"sqlite"`
	SQLitePath       string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"englishbuddy.db"`
	PostgresURL      string `yaml:"postgres_url" env:"DATABASE_URL"`
	MongoURL         string `yaml:"mongo_url" env:"MONGO_URL"`
	FirestoreProject string `yaml:"firestore_project" env:"FIRESTORE_PROJECT_ID"`
	CredentialsFile  string `yaml:"credentials_file" env:"FIREBASE_CREDENTIALS_FILE" env-default:"firebase_service_account.json"`
}

type LLMConfig struct {
	APIKey  string        `yaml:"api_key" env:"DEEPSEEK_API_KEY"`
	URL     string        `yaml:"url" env:"LLM_API_URL" env-default:"https://api.deepseek.com/chat/completions"`
	Model   string        `yaml:"model" env:"LLM_MODEL" env-default:"deepseek-chat"`
	// Timeout 0 disables the client deadline. Default is set in Load.
	Timeout time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
}

type EmailConfig struct {
	Host     string `yaml:"host" env:"EMAIL_HOST"`
	Port     int    `yaml:"port" env:"EMAIL_PORT" env-default:"587"`
	Username string `yaml:"username" env:"EMAIL_USERNAME"`
	Password string `yaml:"password" env:"EMAIL_PASSWORD"`
}

// Complete reports whether every setting needed to reach the relay is present.
func (e EmailConfig) Complete() bool {
	return e.Host != "" && e.Username != "" && e.Password != ""
}

type TutorConfig struct {
	TranslationTarget string `yaml:"translation_target" env:"TRANSLATION_TARGET" env-default:"Polish"`
	TopicsFile        string `yaml:"topics_file" env:"TOPICS_FILE"`
}

type FeedConfig struct {
	// Default is set in Load.
	Enabled bool `yaml:"enabled" env:"FEED_ENABLED"`
}

// Defaults whose zero value is meaningful. cleanenv applies env-default to any
// zero field, which would override an explicit false or 0s from the file, so
// these are preset before the file and environment are read.
const (
	defaultLLMTimeout  = 60 * time.Second
	defaultFeedEnabled = true
)

// Load reads the configuration. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg := Config{
		LLM:  LLMConfig{Timeout: defaultLLMTimeout},
		Feed: FeedConfig{Enabled: defaultFeedEnabled},
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMongo:
		if c.Store.MongoURL == "" {
			return fmt.Errorf("MONGO_URL is required for the mongo driver")
		}
	case DriverFirestore:
		if c.Store.FirestoreProject == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}

	if c.LLM.URL == "" {
		return fmt.Errorf("llm.url is required")
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must be >= 0")
	}

	if c.Email.Port <= 0 || c.Email.Port > 65535 {
		return fmt.Errorf("email.port must be in 1..65535")
	}

	return nil
}

// Redacted returns a copy with secrets masked, for printing.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.Email.Password = mask(c.Email.Password)
	c.Store.PostgresURL = mask(c.Store.PostgresURL)
	c.Store.MongoURL = mask(c.Store.MongoURL)
	return c
}
