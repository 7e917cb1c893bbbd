package tools

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Call is one requested tool invocation.
type Call struct {
	Name string
	Args map[string]any
}

// ParallelExecutor runs batches of tool calls concurrently with a
// bounded worker count. Failures are isolated per call: one failing tool
// never cancels its siblings.
type ParallelExecutor struct {
	registry *Registry
	limit    int
}

// NewParallelExecutor creates an executor over the given registry.
// limit <= 0 means unbounded.
func NewParallelExecutor(registry *Registry, limit int) *ParallelExecutor {
	return &ParallelExecutor{registry: registry, limit: limit}
}

// Run executes all calls and returns results in call order. Destructive
// tools are run sequentially after the concurrent batch so their side
// effects never interleave.
func (e *ParallelExecutor) Run(ctx context.Context, calls []Call) []*Result {
	results := make([]*Result, len(calls))

	var sequential []int
	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i, call := range calls {
		if tool := e.registry.Get(call.Name); tool != nil && tool.Destructive {
			sequential = append(sequential, i)
			continue
		}
		g.Go(func() error {
			results[i] = e.registry.Execute(gctx, call.Name, call.Args)
			return nil
		})
	}
	// Worker funcs always return nil; Wait only synchronizes.
	_ = g.Wait()

	for _, i := range sequential {
		results[i] = e.registry.Execute(ctx, calls[i].Name, calls[i].Args)
	}
	return results
}
