package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klix-code/klix/internal/kerrors"
	"github.com/klix-code/klix/internal/logging"
)

var (
	errToolNameEmpty  = errors.New("tool name must not be empty")
	errToolExecuteNil = errors.New("tool execute function must not be nil")
)

// Registry holds all available tools. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool

	// cache serves repeat read-only tool calls; nil disables caching.
	cache *lru.Cache[string, string]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// WithCache enables an LRU result cache of the given size for cacheable
// tools. Any destructive execution purges it.
func (r *Registry) WithCache(size int) *Registry {
	cache, err := lru.New[string, string](size)
	if err == nil {
		r.cache = cache
	}
	return r
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool already registered: %s", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// MustRegister registers a tool and panics on error. Use for static
// registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, tool := range all {
		names[i] = tool.Name
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ByCategory returns the tools of one category, sorted by name.
func (r *Registry) ByCategory(c Category) []*Tool {
	var result []*Tool
	for _, tool := range r.All() {
		if tool.Category == c {
			result = append(result, tool)
		}
	}
	return result
}

// Catalog renders the JSON tool catalog handed to the LLM.
func (r *Registry) Catalog() (string, error) {
	descriptors := make([]Descriptor, 0, r.Count())
	for _, tool := range r.All() {
		descriptors = append(descriptors, tool.Describe())
	}
	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding tool catalog: %w", err)
	}
	return string(data), nil
}

// Execute runs a tool by name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *Result {
	start := time.Now()
	log := logging.Named("tools")

	tool := r.Get(name)
	if tool == nil {
		err := kerrors.NewToolNotFound(name)
		return &Result{ToolName: name, Err: err, DurationMs: time.Since(start).Milliseconds()}
	}

	if err := validateArgs(tool, args); err != nil {
		return &Result{ToolName: name, Err: err, DurationMs: time.Since(start).Milliseconds()}
	}

	cacheKey := ""
	if tool.Cacheable && r.cache != nil {
		cacheKey = resultCacheKey(name, args)
		if out, ok := r.cache.Get(cacheKey); ok {
			log.Debug("tool cache hit", "tool", name)
			return &Result{ToolName: name, Output: out, DurationMs: time.Since(start).Milliseconds()}
		}
	}

	out, err := tool.Execute(ctx, args)
	duration := time.Since(start)
	logging.LogOperation(log, "tool_exec", err == nil,
		"tool", name, "duration_ms", duration.Milliseconds())

	if err != nil {
		return &Result{
			ToolName:   name,
			Err:        kerrors.NewToolExecution(name, err),
			DurationMs: duration.Milliseconds(),
		}
	}

	if r.cache != nil {
		if tool.Destructive {
			r.cache.Purge()
		} else if cacheKey != "" {
			r.cache.Add(cacheKey, out)
		}
	}

	return &Result{ToolName: name, Output: out, DurationMs: duration.Milliseconds()}
}

// validateArgs checks required arguments and rejects unknown ones.
func validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return kerrors.NewToolExecution(tool.Name,
				fmt.Errorf("missing required argument %q", required))
		}
	}
	for key := range args {
		if _, ok := tool.Schema.Properties[key]; !ok {
			return kerrors.NewToolExecution(tool.Name,
				fmt.Errorf("unknown argument %q", key))
		}
	}
	return nil
}

// resultCacheKey builds a stable key from the tool name and arguments.
func resultCacheKey(name string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := name
	for _, k := range keys {
		key += fmt.Sprintf("|%s=%v", k, args[k])
	}
	return key
}
