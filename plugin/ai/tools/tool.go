// Package tools provides the tools the chat model can call and their resilient execution.
package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/t3clone/t3chat/plugin/ai"
)

// Tool defines the interface for executable tools.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string
	// Description tells the model when to call the tool.
	Description() string
	// Parameters is the JSON schema of the input.
	Parameters() map[string]any
	// Run executes the tool with the given JSON input.
	Run(ctx context.Context, input string) (*Result, error)
}

// Result represents the output of a tool execution.
type Result struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
}

// Registry holds the tools offered to the model.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool definitions sorted by name.
func (r *Registry) Definitions() []ai.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ai.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, ai.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
