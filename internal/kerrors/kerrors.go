// Package kerrors defines the shared error taxonomy for klix.
//
// Each error category has a sentinel that callers can test with errors.Is.
// Categories form a small hierarchy: matching a specific sentinel such as
// ErrToolNotFound also matches its parent ErrTool.
package kerrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category sentinels. These are the targets for errors.Is checks.
var (
	ErrTool          = errors.New("tool error")
	ErrToolNotFound  = errors.New("tool not found")
	ErrToolExecution = errors.New("tool execution failed")

	ErrLLM           = errors.New("llm error")
	ErrLLMConnection = errors.New("llm connection failed")
	ErrLLMRateLimit  = errors.New("llm rate limit exceeded")
	ErrLLMResponse   = errors.New("invalid llm response")

	ErrMemory        = errors.New("memory service error")
	ErrMemorySearch  = errors.New("memory search failed")
	ErrMemoryStorage = errors.New("memory storage failed")

	ErrConfig           = errors.New("config error")
	ErrConfigValidation = errors.New("config validation failed")
	ErrMissingConfig    = errors.New("required configuration missing")

	ErrFile           = errors.New("file operation failed")
	ErrFileNotFound   = errors.New("file not found")
	ErrFilePermission = errors.New("file permission denied")
)

// parents maps each specific sentinel to its broader category.
var parents = map[error]error{
	ErrToolNotFound:     ErrTool,
	ErrToolExecution:    ErrTool,
	ErrLLMConnection:    ErrLLM,
	ErrLLMRateLimit:     ErrLLM,
	ErrLLMResponse:      ErrLLM,
	ErrMemorySearch:     ErrMemory,
	ErrMemoryStorage:    ErrMemory,
	ErrConfigValidation: ErrConfig,
	ErrMissingConfig:    ErrConfig,
	ErrFileNotFound:     ErrFile,
	ErrFilePermission:   ErrFile,
}

// Error is a categorized error with structured details and an optional cause.
type Error struct {
	kind    error
	Message string
	Details map[string]any
	cause   error
}

// New creates an Error in the given category.
func New(kind error, message string) *Error {
	return &Error{kind: kind, Message: message, Details: map[string]any{}}
}

// Wrap creates an Error in the given category with an underlying cause.
func Wrap(kind error, message string, cause error) *Error {
	e := New(kind, message)
	e.cause = cause
	return e
}

// WithDetail attaches a key/value pair and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.Details[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(pairs, ", "))
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is this error's category sentinel or any of
// its ancestors, making errors.Is work across the hierarchy.
func (e *Error) Is(target error) bool {
	for kind := e.kind; kind != nil; kind = parents[kind] {
		if kind == target {
			return true
		}
	}
	return false
}

// NewToolNotFound reports that no tool with the given name is registered.
func NewToolNotFound(name string) *Error {
	return New(ErrToolNotFound, fmt.Sprintf("tool %q not found", name)).
		WithDetail("tool_name", name)
}

// NewToolExecution reports that a tool ran and failed.
func NewToolExecution(name string, cause error) *Error {
	return Wrap(ErrToolExecution, fmt.Sprintf("tool %q failed: %v", name, cause), cause).
		WithDetail("tool_name", name)
}

// NewLLMConnection reports a transport-level failure talking to a provider.
func NewLLMConnection(provider, model string, cause error) *Error {
	return Wrap(ErrLLMConnection, fmt.Sprintf("connecting to %s: %v", provider, cause), cause).
		WithDetail("provider", provider).
		WithDetail("model", model)
}

// NewLLMRateLimit reports a rate-limit rejection. retryAfter may be zero
// when the provider gave no hint.
func NewLLMRateLimit(provider string, retryAfter time.Duration) *Error {
	e := New(ErrLLMRateLimit, "rate limit exceeded").WithDetail("provider", provider)
	if retryAfter > 0 {
		e.WithDetail("retry_after", retryAfter.String())
	}
	return e
}

// NewLLMResponse reports a malformed or unexpected provider response.
func NewLLMResponse(provider, reason string) *Error {
	return New(ErrLLMResponse, fmt.Sprintf("invalid response: %s", reason)).
		WithDetail("provider", provider)
}

// NewMemorySearch reports a failed memory recall.
func NewMemorySearch(cause error) *Error {
	return Wrap(ErrMemorySearch, fmt.Sprintf("memory search failed: %v", cause), cause).
		WithDetail("operation", "search")
}

// NewMemoryStorage reports a failed memory write.
func NewMemoryStorage(cause error) *Error {
	return Wrap(ErrMemoryStorage, fmt.Sprintf("memory storage failed: %v", cause), cause).
		WithDetail("operation", "store")
}

// NewConfigValidation reports an invalid configuration value.
func NewConfigValidation(key, reason string) *Error {
	return New(ErrConfigValidation, fmt.Sprintf("invalid config %s: %s", key, reason)).
		WithDetail("config_key", key)
}

// NewMissingConfig reports a required configuration key that was not set.
func NewMissingConfig(key string) *Error {
	return New(ErrMissingConfig, fmt.Sprintf("required configuration missing: %s", key)).
		WithDetail("config_key", key)
}

// NewFileNotFound reports a missing file.
func NewFileNotFound(path string) *Error {
	return New(ErrFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithDetail("filepath", path)
}

// NewFilePermission reports a denied file operation.
func NewFilePermission(path, operation string) *Error {
	return New(ErrFilePermission, fmt.Sprintf("permission denied to %s %q", operation, path)).
		WithDetail("filepath", path).
		WithDetail("operation", operation)
}

// RetryAfter extracts the retry-after hint from a rate-limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var e *Error
	if !errors.As(err, &e) || !errors.Is(err, ErrLLMRateLimit) {
		return 0, false
	}
	raw, ok := e.Details["retry_after"].(string)
	if !ok {
		return 0, false
	}
	d, parseErr := time.ParseDuration(raw)
	if parseErr != nil {
		return 0, false
	}
	return d, true
}
