// Package config loads the runtime's configuration from the process
// environment (optionally backed by a .env file), matching spec.md §6's
// configuration table. Grounded on netbuddy-agents-admin's
// internal/config/config.go (.env via godotenv, getEnv-with-default
// helpers, a single flat Config struct) simplified from that repo's
// YAML+env layering down to env-only, since spec.md's table has no
// equivalent of per-environment YAML profiles.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	AgentMode string // default strategy tag, one of strategy.Names()

	MaxIterations        int
	MaxIterationsPerTask int
	CodeTimeoutSeconds   int

	UploadDir        string
	MaxFileSizeBytes int64

	EventBufferSize         int
	SessionRetentionSeconds int
}

// CodeTimeout and SessionRetention convert the configured seconds into
// time.Duration for direct use by sandbox.Sandbox and manager.Deps.
func (c Config) CodeTimeout() time.Duration {
	return time.Duration(c.CodeTimeoutSeconds) * time.Second
}

func (c Config) SessionRetention() time.Duration {
	return time.Duration(c.SessionRetentionSeconds) * time.Second
}

var envPaths = []string{".env", "../.env", "../../.env"}

// Load reads .env (if present, searching envPaths) then the process
// environment, applies spec.md §6's documented defaults, and validates
// every numeric field. A missing .env file is not an error; godotenv.Load
// is best-effort the same way the teacher's config.Load treats it.
func Load() (*Config, error) {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	cfg := &Config{
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o"),
		AgentMode:  getEnv("AGENT_MODE", "tool_driven"),
		UploadDir:  getEnv("UPLOAD_DIR", "/tmp/dataagent_uploads"),
	}

	var err error
	if cfg.MaxIterations, err = getEnvInt("MAX_ITERATIONS", 25); err != nil {
		return nil, err
	}
	if cfg.MaxIterationsPerTask, err = getEnvInt("MAX_ITERATIONS_PER_TASK", 5); err != nil {
		return nil, err
	}
	if cfg.CodeTimeoutSeconds, err = getEnvInt("CODE_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}
	if cfg.EventBufferSize, err = getEnvInt("EVENT_BUFFER_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.SessionRetentionSeconds, err = getEnvInt("SESSION_RETENTION_SECONDS", 3600); err != nil {
		return nil, err
	}

	maxFileSize, err := getEnvInt64("MAX_FILE_SIZE_BYTES", 50*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxFileSizeBytes = maxFileSize

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects the non-positive values that would silently disable a
// safety bound (a zero max_iterations, for instance, would make every
// session terminate on its first LLM call).
func (c *Config) validate() error {
	switch {
	case c.MaxIterations <= 0:
		return fmt.Errorf("config: max_iterations must be positive, got %d", c.MaxIterations)
	case c.MaxIterationsPerTask <= 0:
		return fmt.Errorf("config: max_iterations_per_task must be positive, got %d", c.MaxIterationsPerTask)
	case c.CodeTimeoutSeconds <= 0:
		return fmt.Errorf("config: code_timeout_seconds must be positive, got %d", c.CodeTimeoutSeconds)
	case c.EventBufferSize <= 0:
		return fmt.Errorf("config: event_buffer_size must be positive, got %d", c.EventBufferSize)
	case c.SessionRetentionSeconds <= 0:
		return fmt.Errorf("config: session_retention_seconds must be positive, got %d", c.SessionRetentionSeconds)
	case c.MaxFileSizeBytes <= 0:
		return fmt.Errorf("config: max_file_size_bytes must be positive, got %d", c.MaxFileSizeBytes)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid integer: %w", key, v, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a valid integer: %w", key, v, err)
	}
	return n, nil
}
