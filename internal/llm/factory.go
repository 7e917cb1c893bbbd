package llm

import "github.com/klix-code/klix/internal/kerrors"

// New builds a Client for the configured provider.
func New(cfg Config, observer Observer) (Client, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaClient(cfg, observer), nil
	case "gemini":
		return NewGeminiClient(cfg, observer), nil
	default:
		return nil, kerrors.NewConfigValidation("provider",
			"must be one of: ollama, gemini")
	}
}
