package tools

import (
	"context"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/sandbox"
	"github.com/attractor-labs/dataagent/session"
)

// Context bundles everything a tool executor needs to act on one session.
// It is built fresh per iteration by the strategy driving the session, not
// stored on the Registry, so the same Registry instance is safe to share
// across concurrently running sessions.
type Context struct {
	Ctx      context.Context
	Session  *session.Session
	Bus      *events.Bus
	Sandbox  *sandbox.Sandbox
	Reader   DatasetReader
	TaskID   int // the task this invocation is attributed to, 0 if none
}
