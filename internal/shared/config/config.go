package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	CORSAllowOrigin []string      `mapstructure:"cors_allow_origins"`
	DatabaseURL     string        `mapstructure:"database_url"`
	StoreDriver     string        `mapstructure:"store_driver"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	JobTimeout      time.Duration `mapstructure:"enhance_job_timeout"`
	Language        string        `mapstructure:"enhance_language"`
	LLM             LLMConfig     `mapstructure:",squash"`
}

// LLMConfig configures the upstream generative service.
type LLMConfig struct {
	APIKey         string        `mapstructure:"llm_api_key"`
	BaseURL        string        `mapstructure:"llm_base_url"`
	Model          string        `mapstructure:"llm_model"`
	Temperature    float64       `mapstructure:"llm_temperature"`
	MaxTokens      int           `mapstructure:"llm_max_tokens"`
	ConnectTimeout time.Duration `mapstructure:"llm_connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"llm_request_timeout"`
	HTTPReferer    string        `mapstructure:"llm_http_referer"`
	AppTitle       string        `mapstructure:"llm_app_title"`
}

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

var defaults = map[string]any{
	"port":                "8080",
	"env":                 "dev",
	"cors_allow_origins":  "http://localhost:5173",
	"sqlite_path":         "./data/enhancements.db",
	"log_level":           "info",
	"log_format":          "json",
	"enhance_job_timeout": 300 * time.Second,
	"enhance_language":    "English",
	"llm_base_url":        "https://api.openai.com/v1/chat/completions",
	"llm_model":           "gpt-4o-mini",
	"llm_temperature":     0.7,
	"llm_max_tokens":      4000,
	"llm_connect_timeout": 30 * time.Second,
	"llm_request_timeout": 120 * time.Second,
}

// envAliases lists extra environment variables accepted for a key, in priority order.
var envAliases = map[string][]string{
	"llm_api_key": {"LLM_API_KEY", "OPENAI_API_KEY"},
}

var keys = []string{
	"port", "env", "cors_allow_origins", "database_url", "store_driver", "sqlite_path",
	"log_level", "log_format", "enhance_job_timeout", "enhance_language",
	"llm_api_key", "llm_base_url", "llm_model", "llm_temperature", "llm_max_tokens",
	"llm_connect_timeout", "llm_request_timeout", "llm_http_referer", "llm_app_title",
}

// Load reads configuration from defaults, an optional .env file in the working
// directory, and the process environment (which wins).
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit env-file path. A missing file is ignored.
func LoadFrom(envFile string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range keys {
		names := envAliases[k]
		if len(names) == 0 {
			names = []string{strings.ToUpper(k)}
		}
		if err := v.BindEnv(append([]string{k}, names...)...); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", k, err)
		}
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.StoreDriver = normalizeStoreDriver(cfg.StoreDriver, cfg.DatabaseURL)
	cfg.CORSAllowOrigin = splitAndTrim(strings.Join(cfg.CORSAllowOrigin, ","))
	return cfg, nil
}

// Validate reports configuration that prevents the API from starting.
func (c Config) Validate() error {
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" && c.StoreDriver == StorePostgres {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if c.StoreDriver == StorePostgres && strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
	}
	if c.Env == "production" && c.StoreDriver == StoreMemory {
		return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreDriver(raw, databaseURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg", "postgresql":
		return StorePostgres
	case "sqlite", "sqlite3":
		return StoreSQLite
	case "memory", "mem":
		return StoreMemory
	}
	if strings.TrimSpace(databaseURL) != "" {
		return StorePostgres
	}
	return StoreMemory
}
