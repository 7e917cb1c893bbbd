package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/klix-code/klix/internal/kerrors"
	"github.com/klix-code/klix/internal/retry"
)

// defaultGeminiEndpoint is the Google Generative Language API base URL.
const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"

// geminiClient implements Client using the Gemini generateContent API.
type geminiClient struct {
	cfg      Config
	endpoint string
	http     *http.Client
	observer Observer

	// retryDelay is the backoff base, shortened in tests.
	retryDelay time.Duration
}

// NewGeminiClient creates a Client backed by the Gemini API. The endpoint
// is taken from cfg.Endpoint when set, which tests use to point at a stub
// server.
func NewGeminiClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" || endpoint == DefaultConfig().Endpoint {
		endpoint = defaultGeminiEndpoint
	}
	return &geminiClient{
		cfg:        cfg,
		endpoint:   endpoint,
		http:       &http.Client{},
		observer:   observer,
		retryDelay: time.Second,
	}
}

func (c *geminiClient) Model() string { return c.cfg.Model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// geminiRole maps internal roles onto the Gemini wire roles.
func geminiRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}

func (c *geminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	if c.cfg.APIKey == "" {
		return nil, kerrors.NewMissingConfig("GEMINI_API_KEY")
	}

	temp, maxTok := req.effectiveParams(c.cfg)
	timeoutMs := c.cfg.TaskTimeout(req.Task)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	body := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temp,
			MaxOutputTokens: maxTok,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.History {
		body.Contents = append(body.Contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	if req.UserPrompt != "" {
		body.Contents = append(body.Contents, geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: req.UserPrompt}},
		})
	}

	text, err := retry.DoValue(ctx, retry.APIPolicy(), func(ctx context.Context) (string, error) {
		return c.doRequest(ctx, body)
	}, retry.MaxAttempts(1+c.cfg.MaxRetries), retry.BaseDelay(c.retryDelay), retry.RetryIf(geminiRetryable))

	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.observer.OnCallComplete(CallEvent{
			Task: req.Task, Provider: "gemini", Model: c.cfg.Model,
			LatencyMs: latency, Success: false, ErrorCode: errorCode(err),
		})
		if ctx.Err() != nil && !errors.Is(err, kerrors.ErrLLM) {
			return nil, kerrors.NewLLMConnection("gemini", c.cfg.Model, ctx.Err())
		}
		return nil, err
	}

	c.observer.OnCallComplete(CallEvent{
		Task: req.Task, Provider: "gemini", Model: c.cfg.Model,
		LatencyMs: latency, Success: true,
	})
	return &GenerateResponse{
		Text:      text,
		Model:     c.cfg.Model,
		LatencyMs: latency,
	}, nil
}

// geminiRetryable retries transient network failures and rate limits.
func geminiRetryable(err error) bool {
	return retry.IsNetworkError(err) || errors.Is(err, kerrors.ErrLLMRateLimit)
}

func (c *geminiClient) doRequest(ctx context.Context, body geminiRequest) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", kerrors.NewLLMConnection("gemini", c.cfg.Model, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 30 * time.Second
		if v := httpResp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return "", kerrors.NewLLMRateLimit("gemini", retryAfter)
	}
	if httpResp.StatusCode != http.StatusOK {
		return "", kerrors.NewLLMResponse("gemini",
			fmt.Sprintf("status %d: %s", httpResp.StatusCode, string(respBody)))
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", kerrors.NewLLMResponse("gemini", "malformed JSON body")
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", kerrors.NewLLMResponse("gemini", "empty candidate list")
	}

	var text string
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}

func (c *geminiClient) Available(ctx context.Context) bool {
	return c.cfg.APIKey != ""
}
