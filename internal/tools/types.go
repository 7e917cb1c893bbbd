// Package tools defines the assistant's executable tool surface: a
// registry of named tools with JSON-schema argument descriptions that the
// LLM can call, plus the filesystem, shell, project and network tools
// themselves.
package tools

import "context"

// Category classifies tools for listing and selection.
type Category string

const (
	CategoryFilesystem Category = "filesystem"
	CategorySystem     Category = "system"
	CategoryProject    Category = "project"
	CategoryNetwork    Category = "network"
)

// Property describes a single parameter for the JSON schema exported to
// the LLM.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Schema defines the expected arguments of a tool.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one named capability the assistant can invoke.
type Tool struct {
	Name        string
	Description string
	Category    Category

	// Destructive tools mutate state outside the conversation and may
	// require user confirmation before running.
	Destructive bool

	// Cacheable tools are pure reads whose results may be served from
	// the result cache until a destructive tool runs.
	Cacheable bool

	Execute ExecuteFunc
	Schema  Schema
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return errToolNameEmpty
	}
	if t.Execute == nil {
		return errToolExecuteNil
	}
	return nil
}

// Result wraps the outcome of one tool execution.
type Result struct {
	ToolName   string
	Output     string
	Err        error
	DurationMs int64
}

// IsSuccess reports whether the tool executed without error.
func (r *Result) IsSuccess() bool {
	return r.Err == nil
}

// Descriptor is the wire form of a tool handed to the LLM.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
	Schema      Schema `json:"parameters"`
}

// Describe returns the tool's LLM-facing descriptor.
func (t *Tool) Describe() Descriptor {
	return Descriptor{
		Name:        t.Name,
		Description: t.Description,
		Destructive: t.Destructive,
		Schema:      t.Schema,
	}
}
