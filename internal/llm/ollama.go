package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/klix-code/klix/internal/kerrors"
	"github.com/klix-code/klix/internal/retry"
)

// ollamaClient implements Client using the Ollama chat API.
type ollamaClient struct {
	cfg      Config
	http     *http.Client
	observer Observer

	// retryDelay is the backoff base, shortened in tests.
	retryDelay time.Duration
}

// NewOllamaClient creates a Client that talks to a local Ollama instance.
func NewOllamaClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &ollamaClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer:   observer,
		retryDelay: time.Second,
	}
}

func (c *ollamaClient) Model() string { return c.cfg.Model }

// ollamaRetryable retries network failures and server-side errors, but not
// malformed requests or bad responses.
func ollamaRetryable(err error) bool {
	return retry.IsNetworkError(err) || errors.Is(err, kerrors.ErrLLMConnection)
}

// ollamaMessage is one chat turn in the wire format.
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaRequest is the JSON body sent to POST /api/chat.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaResponse is the JSON body returned by POST /api/chat (non-streaming).
type ollamaResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
}

func (c *ollamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	temp, maxTok := req.effectiveParams(c.cfg)
	timeoutMs := c.cfg.TaskTimeout(req.Task)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	var msgs []ollamaMessage
	for _, m := range req.messages() {
		msgs = append(msgs, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	body := ollamaRequest{
		Model:    c.cfg.Model,
		Messages: msgs,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: temp,
			NumPredict:  maxTok,
		},
	}

	resp, err := retry.DoValue(ctx, retry.APIPolicy(), func(ctx context.Context) (*ollamaResponse, error) {
		return c.doRequest(ctx, body)
	}, retry.MaxAttempts(1+c.cfg.MaxRetries), retry.BaseDelay(c.retryDelay), retry.RetryIf(ollamaRetryable))

	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.observer.OnCallComplete(CallEvent{
			Task: req.Task, Provider: "ollama", Model: c.cfg.Model,
			LatencyMs: latency, Success: false, ErrorCode: errorCode(err),
		})
		if ctx.Err() != nil {
			return nil, kerrors.NewLLMConnection("ollama", c.cfg.Model, ctx.Err())
		}
		if retry.IsNetworkError(err) {
			return nil, kerrors.NewLLMConnection("ollama", c.cfg.Model, err)
		}
		return nil, err
	}

	c.observer.OnCallComplete(CallEvent{
		Task: req.Task, Provider: "ollama", Model: c.cfg.Model,
		LatencyMs: latency, Success: true,
	})
	return &GenerateResponse{
		Text:      resp.Message.Content,
		Model:     resp.Model,
		LatencyMs: latency,
	}, nil
}

func (c *ollamaClient) doRequest(ctx context.Context, body ollamaRequest) (*ollamaResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.cfg.Endpoint + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, kerrors.NewLLMConnection("ollama", c.cfg.Model,
			fmt.Errorf("server returned status %d", httpResp.StatusCode))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, kerrors.NewLLMResponse("ollama",
			fmt.Sprintf("status %d: %s", httpResp.StatusCode, string(respBody)))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, kerrors.NewLLMResponse("ollama", "malformed JSON body")
	}

	return &resp, nil
}

func (c *ollamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	url := c.cfg.Endpoint + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
