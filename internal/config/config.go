// Package config loads controller configuration from YAML with COSCI_*
// environment overrides.
package config

// #region imports
import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/llm"
	"github.com/danielpatrickdp/coscientist/go-controller/internal/session"
)

// #endregion imports

// #region types

// LLMConfig configures the model backend.
type LLMConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialDelay   time.Duration `yaml:"initial_delay"`
}

// Config is the full controller configuration.
type Config struct {
	LLM         LLMConfig        `yaml:"llm"`
	ArchivePath string           `yaml:"archive_path"`
	Session     session.Settings `yaml:"session"`
	Seed        int64            `yaml:"seed"`
}

// Default returns the baseline configuration.
func Default() Config {
	client := llm.DefaultClientConfig("")
	return Config{
		LLM: LLMConfig{
			BaseURL:        client.BaseURL,
			Model:          client.Model,
			EmbeddingModel: client.EmbeddingModel,
			MaxRetries:     client.MaxRetries,
			InitialDelay:   client.InitialDelay,
		},
		ArchivePath: "coscientist.db",
		Session:     session.DefaultSettings(),
	}
}

// ClientConfig converts the LLM section into client settings.
func (c Config) ClientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		BaseURL:        c.LLM.BaseURL,
		APIKey:         c.LLM.APIKey,
		Model:          c.LLM.Model,
		EmbeddingModel: c.LLM.EmbeddingModel,
		MaxRetries:     c.LLM.MaxRetries,
		InitialDelay:   c.LLM.InitialDelay,
	}
}

// #endregion types

// #region load

// Load reads path (if it exists), layers COSCI_* environment overrides on
// top, and validates the result. An empty path loads defaults plus
// environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Missing file means defaults.
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Session.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv layers COSCI_* variables over the loaded config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("COSCI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("COSCI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("COSCI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("COSCI_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("COSCI_ARCHIVE_PATH"); v != "" {
		cfg.ArchivePath = v
	}
	if v := os.Getenv("COSCI_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if v := os.Getenv("COSCI_NUM_HYPOTHESES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.NumHypotheses = n
		}
	}
}

// #endregion load
