// Package registry holds the fixed tool table served over tools/list
// and tools/call: descriptor plus handler per tool, listed in
// registration order.
package registry

import (
	"context"
	"fmt"

	"github.com/misfitdev/quotascope/mcp"
)

// Handler executes one tool call with decoded arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Entry pairs a tool descriptor with its handler.
type Entry struct {
	Tool    mcp.Tool
	Handler Handler
}

// Registry is the tool table. It is populated once at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	entries map[string]Entry
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds a tool. Re-registering a name replaces the entry but
// keeps its original position in the listing.
func (r *Registry) Register(tool mcp.Tool, handler Handler) {
	if _, ok := r.entries[tool.Name]; !ok {
		r.order = append(r.order, tool.Name)
	}
	r.entries[tool.Name] = Entry{Tool: tool, Handler: handler}
}

// List returns all tool descriptors in registration order.
func (r *Registry) List() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.entries[name].Tool)
	}
	return tools
}

// Call runs the named tool and returns its report value.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return entry.Handler(ctx, args)
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func hoursSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hours": map[string]any{
				"type":        []string{"number", "string"},
				"description": "Reporting window length in hours, default 24. Numeric strings are accepted.",
			},
		},
	}
}

func accountSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"account": map[string]any{
				"type":        []string{"string", "number"},
				"description": "Account index (0-based) or account email.",
			},
		},
		"required": []string{"account"},
	}
}
