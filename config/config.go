// Package config loads docflow configuration with the usual layering:
// defaults, then a YAML file, then DOCFLOW_* environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the full docflow configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" env:"LLM"`
	Engine     EngineConfig     `yaml:"engine" env:"ENGINE"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" env:"CHECKPOINT"`
	Store      StoreConfig      `yaml:"store" env:"STORE"`
	Log        LogConfig        `yaml:"log" env:"LOG"`
}

// LLMConfig configures the generation capability.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Model       string        `yaml:"model" env:"MODEL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries  int           `yaml:"max_retries" env:"MAX_RETRIES"`
	// RateLimit is requests per second across all workers. Zero
	// disables throttling.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
}

// EngineConfig configures run execution.
type EngineConfig struct {
	// LoopBudget is how many retry-branch traversals a run may take.
	LoopBudget int `yaml:"loop_budget" env:"LOOP_BUDGET"`
	// WorkerPool caps concurrent generation workers in the fan-out.
	WorkerPool int `yaml:"worker_pool" env:"WORKER_POOL"`
	// RunTimeout bounds a whole run's wall-clock time. Zero disables.
	RunTimeout time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT"`
}

// CheckpointConfig selects and configures the checkpoint backend.
type CheckpointConfig struct {
	// Backend is one of "memory", "redis", or "sqlite".
	Backend   string        `yaml:"backend" env:"BACKEND"`
	RedisAddr string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB   int           `yaml:"redis_db" env:"REDIS_DB"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// StoreConfig configures the project store.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"FORMAT"` // json or console
}

// DefaultConfig returns the configuration used when nothing overrides
// it. The defaults match a local single-user deployment.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			Timeout:     120 * time.Second,
			MaxRetries:  2,
			RateLimit:   0,
		},
		Engine: EngineConfig{
			LoopBudget: 1,
			WorkerPool: 3,
			RunTimeout: 15 * time.Minute,
		},
		Checkpoint: CheckpointConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			KeyPrefix: "docflow",
			TTL:       24 * time.Hour,
		},
		Store: StoreConfig{
			Path: "docflow.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative")
	}
	if c.Engine.LoopBudget < 0 {
		return fmt.Errorf("engine.loop_budget must not be negative")
	}
	if c.Engine.WorkerPool <= 0 {
		return fmt.Errorf("engine.worker_pool must be positive")
	}
	switch c.Checkpoint.Backend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("checkpoint.backend %q is not one of memory, redis, sqlite", c.Checkpoint.Backend)
	}
	if c.Checkpoint.Backend == "sqlite" && c.Checkpoint.SQLitePath == "" {
		return fmt.Errorf("checkpoint.sqlite_path is required for the sqlite backend")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
