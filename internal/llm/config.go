package llm

import (
	"os"
	"strconv"
)

// TaskType identifies the kind of LLM task being performed.
type TaskType string

const (
	TaskChat          TaskType = "chat"
	TaskSummarize     TaskType = "summarize"
	TaskCommitMessage TaskType = "commit_message"
	TaskMemoryExtract TaskType = "memory_extract"
)

// TaskConfig holds per-task LLM parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides global if > 0
}

// Config holds all configuration for the LLM subsystem.
type Config struct {
	Provider   string // "ollama" or "gemini"
	Endpoint   string
	Model      string
	APIKey     string
	TimeoutMs  int
	MaxRetries int
	LogCalls   bool
	Tasks      map[TaskType]TaskConfig
}

// DefaultConfig returns a Config with sensible defaults, pointed at a
// local Ollama instance.
func DefaultConfig() Config {
	return Config{
		Provider:   "ollama",
		Endpoint:   "http://localhost:11434",
		Model:      "qwen2.5-coder:3b",
		TimeoutMs:  60000,
		MaxRetries: 2,
		LogCalls:   false,
		Tasks: map[TaskType]TaskConfig{
			TaskChat:          {Temperature: 0.7, MaxTokens: 4096, TimeoutMs: 60000},
			TaskSummarize:     {Temperature: 0.3, MaxTokens: 1024, TimeoutMs: 30000},
			TaskCommitMessage: {Temperature: 0.2, MaxTokens: 256, TimeoutMs: 15000},
			TaskMemoryExtract: {Temperature: 0.1, MaxTokens: 512, TimeoutMs: 15000},
		},
	}
}

// LoadConfig reads LLM configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("KLIX_LLM_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("KLIX_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("KLIX_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("KLIX_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("KLIX_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("KLIX_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}

	applyTaskTimeoutEnv(&cfg, TaskChat, "KLIX_LLM_CHAT_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskSummarize, "KLIX_LLM_SUMMARIZE_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskCommitMessage, "KLIX_LLM_COMMIT_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskMemoryExtract, "KLIX_LLM_MEMORY_TIMEOUT_MS")

	return cfg
}

// TaskTimeout returns the effective timeout for a given task type.
// Uses the task-specific timeout if set, otherwise the global timeout.
func (c Config) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

func applyTaskTimeoutEnv(cfg *Config, task TaskType, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = n
	cfg.Tasks[task] = tc
}
