// Package strategy implements the five interchangeable agent loop
// strategies (tool-driven, task-driven, hybrid, autonomous, staged), each
// driving one Session to a terminal phase by repeatedly calling the LLM
// client and dispatching tool calls, generalized from the teacher's
// agentloop.Session.processInput shared frame.
package strategy

import (
	"context"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/llm"
	"github.com/attractor-labs/dataagent/sandbox"
	"github.com/attractor-labs/dataagent/session"
	"github.com/attractor-labs/dataagent/tools"
)

// TerminalCause tags why a strategy's Run returned.
type TerminalCause string

const (
	CauseCompleted      TerminalCause = "completed"
	CauseMaxIterations  TerminalCause = "max_iterations"
	CauseCancelled      TerminalCause = "cancelled"
	CauseError          TerminalCause = "error"
)

// Deps bundles everything a strategy needs beyond the Session itself.
type Deps struct {
	Client               *llm.Client
	Tools                *tools.Registry
	Sandbox              *sandbox.Sandbox
	Bus                  *events.Bus
	Model                string
	Provider             string
	MaxIterations        int // default 25, spec.md §6
	MaxIterationsPerTask int // default 5, spec.md §6
}

// Strategy drives one session from PhaseInitializing to a terminal phase.
// This is the whole of C6's contract: one method, selected by a lookup
// table from the session's configured strategy name, following the
// Design Notes' "string-tag dispatch to an interface" guidance (itself
// modeled on the teacher's ProviderProfile interface).
type Strategy interface {
	Run(ctx context.Context, sess *session.Session, deps Deps) (TerminalCause, error)
}

// ByName returns the Strategy registered under name, or nil if unknown.
func ByName(name string) Strategy {
	switch name {
	case "tool_driven":
		return ToolDriven{}
	case "task_driven":
		return TaskDriven{}
	case "hybrid":
		return Hybrid{}
	case "autonomous":
		return Autonomous{}
	case "staged":
		return Staged{}
	default:
		return nil
	}
}

// Names lists the five valid strategy identifiers, in the order spec.md
// §9's table presents them.
func Names() []string {
	return []string{"tool_driven", "task_driven", "hybrid", "autonomous", "staged"}
}
