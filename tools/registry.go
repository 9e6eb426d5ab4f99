// Package tools implements the three required tools (read_dataset, run_code,
// todo_write) against a schema-described registry, adapted from the
// teacher's agentloop.ToolRegistry.
package tools

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Definition describes a tool for advertisement to the LLM.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Executor performs one tool invocation and returns its text payload.
type Executor func(ctx *Context, arguments json.RawMessage) (string, error)

// Registered pairs a tool definition with its executor.
type Registered struct {
	Definition Definition
	Executor   Executor
}

// Registry manages tool registration and lookup, shared read-only across a
// session's iterations once built.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Registered
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Registered)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool Registered) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Definition.Name] = &tool
}

// Get returns a registered tool by name, or nil if not found.
func (r *Registry) Get(name string) *Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Definitions returns all tool definitions, for advertisement to the LLM.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition)
	}
	return defs
}

// Invoke validates that the tool exists and dispatches to its executor.
// Argument-shape validation against the schema happens inside each
// executor (via ParseArguments + Get*Arg), consistent with spec.md §4.1's
// "rejects with INVALID_INPUT on type mismatch, surfacing the error back
// as a tool message" contract — the error returned here is always suitable
// to show the LLM verbatim as the tool result.
func (r *Registry) Invoke(ctx *Context, name string, arguments json.RawMessage) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return tool.Executor(ctx, arguments)
}

// ParseArguments unmarshals raw tool-call arguments into a generic map.
func ParseArguments(raw json.RawMessage) (map[string]interface{}, error) {
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

// GetStringArg extracts a string argument.
func GetStringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBoolArg extracts a boolean argument.
func GetBoolArg(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetIntArg extracts an integer argument (JSON numbers decode as float64).
func GetIntArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
