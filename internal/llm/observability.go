package llm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klix-code/klix/internal/kerrors"
	"github.com/klix-code/klix/internal/logging"
)

// CallEvent records metadata about a single LLM invocation.
type CallEvent struct {
	Task      TaskType
	Provider  string
	Model     string
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about LLM calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// SlogObserver writes LLM call events to the structured log.
type SlogObserver struct {
	log *slog.Logger
}

// NewSlogObserver creates an Observer that logs under the "llm" component.
func NewSlogObserver() *SlogObserver {
	return &SlogObserver{log: logging.Named("llm")}
}

func (o *SlogObserver) OnCallComplete(event CallEvent) {
	if event.Success {
		o.log.Info("llm_call",
			"task", string(event.Task),
			"provider", event.Provider,
			"model", event.Model,
			"latency_ms", event.LatencyMs)
		return
	}
	o.log.Warn("llm_call",
		"task", string(event.Task),
		"provider", event.Provider,
		"model", event.Model,
		"latency_ms", event.LatencyMs,
		"error", event.ErrorCode)
}

// LogObserver writes one line per LLM call to an io.Writer. Used when
// KLIX_LLM_LOG_CALLS routes call logging to stderr instead of the
// structured log.
type LogObserver struct {
	w io.Writer
}

// NewLogObserver creates an Observer that logs events to w.
func NewLogObserver(w io.Writer) *LogObserver {
	return &LogObserver{w: w}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	ts := time.Now().UTC().Format(time.RFC3339)
	status := "ok"
	if !event.Success {
		status = "err:" + event.ErrorCode
	}
	fmt.Fprintf(o.w, "[%s] llm_call task=%s provider=%s model=%s latency_ms=%d status=%s\n",
		ts, event.Task, event.Provider, event.Model, event.LatencyMs, status)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, kerrors.ErrLLMRateLimit):
		return "RATE_LIMIT"
	case errors.Is(err, kerrors.ErrLLMConnection):
		return "UNAVAILABLE"
	case errors.Is(err, kerrors.ErrLLMResponse):
		return "INVALID_OUTPUT"
	default:
		return "UNKNOWN"
	}
}
