// Package config loads engine configuration from defaults, an optional YAML
// file, and NUDGE_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Display DisplayConfig `yaml:"display"`
	Content ContentConfig `yaml:"content"`
	Logging LoggingConfig `yaml:"logging"`
}

type StoreConfig struct {
	// Driver selects the task store backend: "memory" or "sqlite".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type DisplayConfig struct {
	// DefaultCap limits how many open tasks a category shows; CategoryCaps
	// overrides it per category.
	DefaultCap   int            `yaml:"default_cap"`
	CategoryCaps map[string]int `yaml:"category_caps"`
}

type ContentConfig struct {
	// StaleAfterDays is how long a post may go unmodified before the
	// review provider surfaces it.
	StaleAfterDays int `yaml:"stale_after_days"`
	MaxReviewTasks int `yaml:"max_review_tasks"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "memory",
			Path:   "nudge.db",
		},
		Display: DisplayConfig{
			DefaultCap:   5,
			CategoryCaps: map[string]int{},
		},
		Content: ContentConfig{
			StaleAfterDays: 180,
			MaxReviewTasks: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load builds the configuration. A missing file is not an error; a malformed
// one is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("NUDGE_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("NUDGE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("NUDGE_DISPLAY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Display.DefaultCap = n
		}
	}
	if v := os.Getenv("NUDGE_STALE_AFTER_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Content.StaleAfterDays = n
		}
	}
	if v := os.Getenv("NUDGE_MAX_REVIEW_TASKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Content.MaxReviewTasks = n
		}
	}
	if v := os.Getenv("NUDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NUDGE_LOG_JSON"); v != "" {
		cfg.Logging.JSON = v == "true" || v == "1"
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("sqlite store requires a path")
	}
	if c.Display.DefaultCap < 1 {
		return fmt.Errorf("display cap must be positive, got %d", c.Display.DefaultCap)
	}
	if c.Content.StaleAfterDays < 1 {
		return fmt.Errorf("stale threshold must be positive, got %d", c.Content.StaleAfterDays)
	}
	if c.Content.MaxReviewTasks < 1 {
		return fmt.Errorf("review task cap must be positive, got %d", c.Content.MaxReviewTasks)
	}
	return nil
}
