// Package config loads blogzin settings from YAML, a .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	AI         AIConfig         `yaml:"ai"`
	Facts      FactsConfig      `yaml:"facts"`
	Generation GenerationConfig `yaml:"generation"`
	Similarity SimilarityConfig `yaml:"similarity"`
}

type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "postgres"
	Path     string `yaml:"path"`   // sqlite file
	URL      string `yaml:"url"`    // postgres DSN
	MaxConns int    `yaml:"max_conns"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "", "text" or "json"; empty picks by terminal
}

type AIConfig struct {
	Provider       string  `yaml:"provider"` // "gemini" or "openai"
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	// Model is empty by default so each provider picks its own.
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	Locale         string  `yaml:"locale"`
}

type FactsConfig struct {
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	Sources        []FactSource `yaml:"sources"`
}

// FactSource configures one external fact endpoint. The first configured
// source is the default.
type FactSource struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"` // "text", "number" or "summary"
}

type GenerationConfig struct {
	// IntervalMinutes enables the background generator when > 0.
	IntervalMinutes int    `yaml:"interval_minutes"`
	SourceID        string `yaml:"source_id"`
}

type SimilarityConfig struct {
	Threshold    float64 `yaml:"threshold"`
	NGramSize    int     `yaml:"ngram_size"`
	RelatedLimit int     `yaml:"related_limit"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     "./blogzin.db",
			MaxConns: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		AI: AIConfig{
			Provider:       "gemini",
			TimeoutSeconds: 60,
			Temperature:    0.9,
			MaxTokens:      1024,
			Locale:         "pt-BR",
		},
		Facts: FactsConfig{
			TimeoutSeconds: 15,
			Sources:        DefaultFactSources(),
		},
		Similarity: SimilarityConfig{
			Threshold:    0.15,
			NGramSize:    3,
			RelatedLimit: 3,
		},
	}
}

// DefaultFactSources returns the built-in fact endpoints.
func DefaultFactSources() []FactSource {
	return []FactSource{
		{ID: "uselessfacts", Name: "uselessfacts.jsph.pl", URL: "https://uselessfacts.jsph.pl/random.json?language=en", Kind: "text"},
		{ID: "numbers", Name: "numbersapi.com", URL: "http://numbersapi.com/random/trivia?json", Kind: "number"},
		{ID: "wikipedia", Name: "en.wikipedia.org", URL: "https://en.wikipedia.org/api/rest_v1/page/random/summary", Kind: "summary"},
	}
}

// Load reads a YAML config file and merges it over defaults, then applies
// environment overrides. If the file does not exist, defaults are used.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
		slog.Info("No config file found, using defaults", "path", path)
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. Variables already set are not overwritten and a missing file
// is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		if isPostgresURL(v) {
			cfg.Database.Driver = "postgres"
			cfg.Database.URL = v
		} else {
			cfg.Database.Driver = "sqlite"
			cfg.Database.Path = strings.TrimPrefix(v, "file:")
		}
	}
	if v := getenv("BLOGZIN_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := getenv("BLOGZIN_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = strings.ToLower(v)
	}
	switch cfg.AI.Provider {
	case "gemini":
		if v := firstEnv(getenv, "GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	case "openai":
		if v := getenv("OPENAI_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	}
	if v := getenv("BLOGZIN_AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := getenv("BLOGZIN_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}

	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := getenv("BLOGZIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func firstEnv(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func isPostgresURL(v string) bool {
	return strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://")
}

// Validate checks the settings that would otherwise fail deep inside a request.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}

	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("config: unknown ai provider %q", c.AI.Provider)
	}

	if len(c.Facts.Sources) == 0 {
		return errors.New("config: at least one fact source is required")
	}
	seen := make(map[string]bool, len(c.Facts.Sources))
	for _, src := range c.Facts.Sources {
		if src.ID == "" || src.URL == "" {
			return fmt.Errorf("config: fact source %q needs an id and a url", src.Name)
		}
		if seen[src.ID] {
			return fmt.Errorf("config: duplicate fact source id %q", src.ID)
		}
		seen[src.ID] = true
		switch src.Kind {
		case "text", "number", "summary":
		default:
			return fmt.Errorf("config: fact source %q has unknown kind %q", src.ID, src.Kind)
		}
	}

	if id := c.Generation.SourceID; id != "" && !seen[id] {
		return fmt.Errorf("config: generation.source_id %q is not a configured fact source", id)
	}
	return nil
}
