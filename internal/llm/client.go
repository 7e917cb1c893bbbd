package llm

import "context"

// Message roles mirror the chat API conventions of both providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// GenerateRequest holds the parameters for an LLM generation call.
type GenerateRequest struct {
	Task         TaskType
	SystemPrompt string
	History      []Message // prior turns, oldest first
	UserPrompt   string
	Temperature  *float64 // nil uses task default
	MaxTokens    *int     // nil uses task default
}

// GenerateResponse holds the result of an LLM generation call.
type GenerateResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// Client provides access to a language model for text generation.
type Client interface {
	// Generate sends a prompt and returns the raw text response.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Available checks whether the provider is reachable.
	Available(ctx context.Context) bool

	// Model returns the configured model name.
	Model() string
}

// messages flattens a request into a single ordered message list.
func (r GenerateRequest) messages() []Message {
	var msgs []Message
	if r.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: r.SystemPrompt})
	}
	msgs = append(msgs, r.History...)
	if r.UserPrompt != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: r.UserPrompt})
	}
	return msgs
}

// effectiveParams resolves temperature and max tokens against task defaults.
func (r GenerateRequest) effectiveParams(cfg Config) (float64, int) {
	taskCfg := cfg.Tasks[r.Task]
	temp := taskCfg.Temperature
	if r.Temperature != nil {
		temp = *r.Temperature
	}
	maxTok := taskCfg.MaxTokens
	if r.MaxTokens != nil {
		maxTok = *r.MaxTokens
	}
	return temp, maxTok
}
