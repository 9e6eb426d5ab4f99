// Package manager owns the id -> Session registry: it starts a strategy on
// its own goroutine per session, routes cooperative cancellation, and
// reclaims terminal sessions after a TTL. Grounded on
// agentloop/subagent.go's SubAgentManager (map + sync.RWMutex,
// context.CancelFunc-based cancellation, status tracking), scaled from
// child-agent lifecycle management up to top-level session management.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attractor-labs/dataagent/errs"
	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/llm"
	"github.com/attractor-labs/dataagent/logging"
	"github.com/attractor-labs/dataagent/sandbox"
	"github.com/attractor-labs/dataagent/session"
	"github.com/attractor-labs/dataagent/strategy"
	"github.com/attractor-labs/dataagent/tools"
)

// entry bundles one session with its bus and cancellation handle. Fields
// after creation are only mutated by the strategy goroutine or by Stop;
// reads from other goroutines go through the guarded accessors below.
type entry struct {
	sess   *session.Session
	bus    *events.Bus
	cancel context.CancelFunc

	mu         sync.Mutex
	finishedAt time.Time // zero until the strategy goroutine returns
}

func (e *entry) markFinished() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finishedAt.IsZero() {
		e.finishedAt = time.Now()
	}
}

func (e *entry) finishedSince() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finishedAt, !e.finishedAt.IsZero()
}

// Deps bundles the dependencies every session's strategy run needs; it is
// shared read-only across all sessions (spec.md §5's "tool registry:
// read-only after startup").
type Deps struct {
	Client               *llm.Client
	Tools                *tools.Registry
	Sandbox              *sandbox.Sandbox
	Model                string
	Provider             string
	MaxIterations        int
	MaxIterationsPerTask int
	EventBufferSize      int
	SessionRetention     time.Duration // default 1 hour, spec.md §4.7
}

// Manager is the top-level session registry described by spec.md §4.7.
type Manager struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*entry

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

// New constructs a Manager and starts its background reclamation janitor.
func New(deps Deps) *Manager {
	if deps.SessionRetention <= 0 {
		deps.SessionRetention = time.Hour
	}
	m := &Manager{
		deps:        deps,
		sessions:    make(map[string]*entry),
		stopJanitor: make(chan struct{}),
	}
	go m.reclaimLoop()
	return m
}

// Shutdown stops the reclamation janitor and cancels every running session.
// It does not wait for strategy goroutines to observe cancellation.
func (m *Manager) Shutdown() {
	m.janitorOnce.Do(func() { close(m.stopJanitor) })
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.sessions {
		e.cancel()
	}
}

// Start materializes a Session, registers its event bus, and spawns an
// independent goroutine running the named strategy. It returns immediately
// with the new session id.
func (m *Manager) Start(ctx context.Context, datasetPath, userRequest, strategyName string) (string, error) {
	strat := strategy.ByName(strategyName)
	if strat == nil {
		return "", errs.New(errs.InvalidInput, "unknown strategy %q", strategyName)
	}

	id := uuid.New().String()
	sess := session.New(id, datasetPath, userRequest, strategyName)
	bus := events.NewBus(id, m.deps.EventBufferSize)

	runCtx, cancel := context.WithCancel(ctx)
	e := &entry{sess: sess, bus: bus, cancel: cancel}

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	bus.Emit(events.KindAgentStarted, events.Payload{RequestSummary: summarize(userRequest)})
	log := logging.ForSession(id)
	log.Info("session started", "strategy", strategyName, "dataset_path", datasetPath)

	sdeps := strategy.Deps{
		Client:               m.deps.Client,
		Tools:                m.deps.Tools,
		Sandbox:              m.deps.Sandbox,
		Bus:                  bus,
		Model:                m.deps.Model,
		Provider:             m.deps.Provider,
		MaxIterations:        m.deps.MaxIterations,
		MaxIterationsPerTask: m.deps.MaxIterationsPerTask,
	}

	go func() {
		defer cancel()
		defer e.markFinished()
		go watchCancellation(runCtx, sess)
		cause, err := strat.Run(runCtx, sess, sdeps)
		if err != nil {
			log.Error("session ended with error", "cause", cause, "error", err)
		} else {
			log.Info("session finished", "cause", cause, "phase", sess.Phase())
		}
	}()

	return id, nil
}

// watchCancellation flips the session's cooperative cancellation flag when
// the strategy's context is cancelled (via Stop or Manager shutdown), so
// the strategy observes it at its next loop-top or tool-call check point
// (spec.md §5's cancellation contract).
func watchCancellation(ctx context.Context, sess *session.Session) {
	<-ctx.Done()
	sess.RequestCancel()
}

// Stop flips the session's cancellation flag. The strategy goroutine
// observes it at the next iteration or tool-call boundary, performs
// cleanup, and emits agent_stopped.
func (m *Manager) Stop(id string) error {
	e, ok := m.lookup(id)
	if !ok {
		return errs.New(errs.UnknownSession, "unknown session %q", id)
	}
	e.sess.RequestCancel()
	e.cancel()
	logging.ForSession(id).Info("stop requested")
	return nil
}

// Subscribe returns a subscription handle on the session's bus; the
// backlog is replayed automatically before any live events (events.Bus's
// contract).
func (m *Manager) Subscribe(id string) (*events.Subscription, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, errs.New(errs.UnknownSession, "unknown session %q", id)
	}
	return e.bus.Subscribe(), nil
}

// Fetch returns the final snapshot if the session has reached a terminal
// phase; otherwise SESSION_NOT_READY.
func (m *Manager) Fetch(id string) (session.Snapshot, error) {
	e, ok := m.lookup(id)
	if !ok {
		return session.Snapshot{}, errs.New(errs.UnknownSession, "unknown session %q", id)
	}
	snap := e.sess.Snapshot()
	if !snap.Phase.Terminal() {
		return session.Snapshot{}, errs.New(errs.SessionNotReady, "session %q has not reached a terminal phase", id)
	}
	return snap, nil
}

// Health reports liveness plus a coarse census of active sessions.
func (m *Manager) Health() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	running := 0
	for _, e := range m.sessions {
		if _, done := e.finishedSince(); !done {
			running++
		}
	}
	return map[string]any{
		"status":          "ok",
		"total_sessions":  len(m.sessions),
		"running_sessions": running,
	}
}

func (m *Manager) lookup(id string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	return e, ok
}

// reclaimLoop periodically evicts sessions that finished more than
// SessionRetention ago (spec.md §4.7's terminal TTL).
func (m *Manager) reclaimLoop() {
	ticker := time.NewTicker(m.deps.SessionRetention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopJanitor:
			return
		case <-ticker.C:
			m.reclaimOnce()
		}
	}
}

func (m *Manager) reclaimOnce() {
	cutoff := time.Now().Add(-m.deps.SessionRetention)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		if finishedAt, done := e.finishedSince(); done && finishedAt.Before(cutoff) {
			delete(m.sessions, id)
			logging.ForSession(id).Debug("session reclaimed after retention TTL")
		}
	}
}

func summarize(request string) string {
	const limit = 200
	if len(request) <= limit {
		return request
	}
	return request[:limit] + "..."
}
