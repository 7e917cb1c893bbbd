// Package config holds application configuration for klix.
//
// Values are resolved in layers, later layers winning: built-in defaults,
// then ~/.klix/config.yaml, then a .env file in the project root, then
// KLIX_* process environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/klix-code/klix/internal/kerrors"
)

// Provider identifies which LLM backend serves generation requests.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
)

// Known model names.
const (
	ModelGemini25Flash = "gemini-2.5-flash"
	ModelGemini20Flash = "gemini-2.0-flash-exp"
	ModelGemini15Pro   = "gemini-1.5-pro"
	ModelGemini15Flash = "gemini-1.5-flash"

	ModelQwenCoder   = "qwen2.5-coder:3b"
	ModelDeepseekOCR = "deepseek-ocr:3b"
	ModelLlama32     = "llama3.2"
)

// Theme holds the UI color palette.
type Theme struct {
	Accent     string `yaml:"accent"`
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
	Success    string `yaml:"success"`
	Warning    string `yaml:"warning"`
	Error      string `yaml:"error"`
	Info       string `yaml:"info"`
}

// DefaultTheme returns the stock palette.
func DefaultTheme() Theme {
	return Theme{
		Accent:     "#FF8800",
		Background: "#0D1117",
		Text:       "#E6EDF3",
		Success:    "#3FB950",
		Warning:    "#D29922",
		Error:      "#F85149",
		Info:       "#58A6FF",
	}
}

// Config is the resolved application configuration.
type Config struct {
	Provider     Provider
	GeminiModel  string
	OllamaModel  string
	GeminiAPIKey string

	ProjectRoot string
	TasksFile   string
	TracesDir   string

	EnableTraces       bool
	ConfirmDestructive bool
	HistoryBudget      int // max conversation messages kept
	MaxParallelTools   int

	Theme Theme
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) Config {
	home, _ := os.UserHomeDir()
	return Config{
		Provider:           ProviderOllama,
		GeminiModel:        ModelGemini25Flash,
		OllamaModel:        ModelQwenCoder,
		ProjectRoot:        dir,
		TasksFile:          filepath.Join(dir, "tasks.md"),
		TracesDir:          filepath.Join(home, ".klix", "traces"),
		EnableTraces:       true,
		ConfirmDestructive: true,
		HistoryBudget:      40,
		MaxParallelTools:   4,
		Theme:              DefaultTheme(),
	}
}

// Load resolves configuration for a project root.
func Load(projectRoot string) (Config, error) {
	if projectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("determining working directory: %w", err)
		}
		projectRoot = wd
	}
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return Config{}, fmt.Errorf("resolving project root: %w", err)
	}
	cfg := Default(abs)

	if home, err := os.UserHomeDir(); err == nil {
		applyFile(&cfg, filepath.Join(home, ".klix", "config.yaml"))
	}

	// .env values become process env for the layer below; missing file is fine.
	_ = godotenv.Load(filepath.Join(abs, ".env"))

	applyEnv(&cfg)
	return cfg, nil
}

// fileConfig is the yaml overlay; pointer fields distinguish unset from zero.
type fileConfig struct {
	Provider         *string `yaml:"provider"`
	GeminiModel      *string `yaml:"gemini_model"`
	OllamaModel      *string `yaml:"ollama_model"`
	TracesDir        *string `yaml:"traces_dir"`
	EnableTraces     *bool   `yaml:"enable_traces"`
	ConfirmWrites    *bool   `yaml:"confirm_destructive"`
	HistoryBudget    *int    `yaml:"history_budget"`
	MaxParallelTools *int    `yaml:"max_parallel_tools"`
	Theme            *Theme  `yaml:"theme"`
}

func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return
	}
	if fc.Provider != nil {
		cfg.Provider = Provider(*fc.Provider)
	}
	if fc.GeminiModel != nil {
		cfg.GeminiModel = *fc.GeminiModel
	}
	if fc.OllamaModel != nil {
		cfg.OllamaModel = *fc.OllamaModel
	}
	if fc.TracesDir != nil {
		cfg.TracesDir = *fc.TracesDir
	}
	if fc.EnableTraces != nil {
		cfg.EnableTraces = *fc.EnableTraces
	}
	if fc.ConfirmWrites != nil {
		cfg.ConfirmDestructive = *fc.ConfirmWrites
	}
	if fc.HistoryBudget != nil && *fc.HistoryBudget > 0 {
		cfg.HistoryBudget = *fc.HistoryBudget
	}
	if fc.MaxParallelTools != nil && *fc.MaxParallelTools > 0 {
		cfg.MaxParallelTools = *fc.MaxParallelTools
	}
	if fc.Theme != nil {
		cfg.Theme = *fc.Theme
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KLIX_PROVIDER"); v != "" {
		cfg.Provider = Provider(v)
	}
	if v := os.Getenv("KLIX_GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("KLIX_OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("KLIX_TASKS_FILE"); v != "" {
		cfg.TasksFile = v
	}
	if v := os.Getenv("KLIX_TRACES_DIR"); v != "" {
		cfg.TracesDir = v
	}
	if v := os.Getenv("KLIX_ENABLE_TRACES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableTraces = b
		}
	}
	if v := os.Getenv("KLIX_CONFIRM_DESTRUCTIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ConfirmDestructive = b
		}
	}
	if v := os.Getenv("KLIX_HISTORY_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryBudget = n
		}
	}
	if v := os.Getenv("KLIX_PARALLEL_TOOLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxParallelTools = n
		}
	}
}

// CurrentModel returns the model name for the active provider.
func (c Config) CurrentModel() string {
	if c.Provider == ProviderGemini {
		return c.GeminiModel
	}
	return c.OllamaModel
}

// Validate checks the configuration for fatal problems.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOllama:
	default:
		return kerrors.NewConfigValidation("provider", fmt.Sprintf("unknown provider %q", c.Provider))
	}
	if c.Provider == ProviderGemini && c.GeminiAPIKey == "" {
		return kerrors.NewMissingConfig("GEMINI_API_KEY")
	}
	if stat, err := os.Stat(c.ProjectRoot); err != nil || !stat.IsDir() {
		return kerrors.NewConfigValidation("project_root", fmt.Sprintf("not a directory: %s", c.ProjectRoot))
	}
	return nil
}
