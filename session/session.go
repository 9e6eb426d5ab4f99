package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// invalidStateError is the plain error returned by mutation methods. It
// carries only a message: session avoids importing errs to keep this
// package leaf-level, so callers wrap it with errs.InvalidState where
// needed.
type invalidStateError struct{ msg string }

func (e *invalidStateError) Error() string { return e.msg }

// ErrInvalidState is returned when a mutation would violate a session
// invariant (I1, I4) or targets an unknown task id.
func ErrInvalidState(format string, args ...any) error {
	return &invalidStateError{msg: fmt.Sprintf(format, args...)}
}

// Session is the exclusive owner of one analysis run's message history,
// task list, artifacts, and phase. Mutations are sequential: the running
// strategy is the sole writer, so a plain mutex (not a channel-actor)
// suffices, matching spec.md §5's "cooperative within a session" model.
type Session struct {
	mu sync.Mutex

	id          string
	createdAt   time.Time
	datasetPath string
	datasetInfo *DatasetInfo
	userRequest string
	strategy    string

	phase          Phase
	messages       []Message
	tasks          []Task
	artifacts      []Artifact
	finalReport    string
	iterationCount int

	cancelled bool
}

// New creates a session in PhaseInitializing. id is minted by the caller
// (the manager) so that the event bus and session share one identifier.
func New(id, datasetPath, userRequest, strategy string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	return &Session{
		id:          id,
		createdAt:   time.Now(),
		datasetPath: datasetPath,
		userRequest: userRequest,
		strategy:    strategy,
		phase:       PhaseInitializing,
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) DatasetPath() string { return s.datasetPath }
func (s *Session) UserRequest() string { return s.userRequest }
func (s *Session) Strategy() string    { return s.strategy }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPhase transitions the session to a new phase. Transitioning out of a
// terminal phase is rejected (I4).
func (s *Session) SetPhase(p Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrInvalidState("session %s already in terminal phase %s", s.id, s.phase)
	}
	s.phase = p
	return nil
}

// SetDatasetInfo caches the structured dataset summary for later reference.
func (s *Session) SetDatasetInfo(info *DatasetInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetInfo = info
}

// DatasetInfo returns the cached dataset summary, or nil if read_dataset has
// not yet been called this session.
func (s *Session) DatasetInfo() *DatasetInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasetInfo
}

// AppendMessage appends one entry to the conversation history. History is
// append-only; there is no remove or edit operation.
func (s *Session) AppendMessage(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrInvalidState("session %s already in terminal phase %s", s.id, s.phase)
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	s.messages = append(s.messages, m)
	return nil
}

// Messages returns a copy of the current message history.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AppendArtifact records one code-execution side effect.
func (s *Session) AppendArtifact(a Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrInvalidState("session %s already in terminal phase %s", s.id, s.phase)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.artifacts = append(s.artifacts, a)
	return nil
}

// Artifacts returns a copy of the recorded artifacts.
func (s *Session) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// ReplaceTasks sets the task list wholesale (todo_write with merge=false, or
// a code-driven strategy's initial plan). Rejects a list containing more
// than one in_progress task (I1).
func (s *Session) ReplaceTasks(tasks []Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrInvalidState("session %s already in terminal phase %s", s.id, s.phase)
	}
	if err := validateSingleInProgress(tasks); err != nil {
		return err
	}
	s.tasks = make([]Task, len(tasks))
	copy(s.tasks, tasks)
	return nil
}

// UpdateTask merges fields into the task with the given id (todo_write with
// merge=true, or a strategy marking completion). fields with a zero value
// are left unchanged except Status, which always applies when non-empty.
func (s *Session) UpdateTask(id int, status TaskStatus, result, errText string, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrInvalidState("session %s already in terminal phase %s", s.id, s.phase)
	}
	idx := -1
	for i, t := range s.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrInvalidState("task %d not found in session %s", id, s.id)
	}

	if status == TaskInProgress {
		for i, t := range s.tasks {
			if i != idx && t.Status == TaskInProgress {
				return ErrInvalidState("task %d already in_progress; cannot start task %d", t.ID, id)
			}
		}
	}

	now := time.Now()
	t := &s.tasks[idx]
	if status != "" {
		if status == TaskInProgress && t.StartedAt == nil {
			t.StartedAt = &now
		}
		if (status == TaskCompleted || status == TaskFailed || status == TaskSkipped) && t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		t.Status = status
	}
	if result != "" {
		t.Error = "" // a successful result clears any stale error text
	}
	if errText != "" {
		t.Error = errText
	}
	if code != "" {
		t.Code = code
	}
	return nil
}

// AppendTask adds a single new task (used when an unknown id is referenced
// by a merge=true todo_write call).
func (s *Session) AppendTask(t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrInvalidState("session %s already in terminal phase %s", s.id, s.phase)
	}
	if t.Status == TaskInProgress {
		for _, existing := range s.tasks {
			if existing.Status == TaskInProgress {
				return ErrInvalidState("task %d already in_progress; cannot append in_progress task", existing.ID)
			}
		}
	}
	s.tasks = append(s.tasks, t)
	return nil
}

// Tasks returns a copy of the current task list, in order.
func (s *Session) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// TaskByID returns a copy of the task with the given id, if present.
func (s *Session) TaskByID(id int) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return Task{}, false
}

// AllTasksTerminal reports whether every task has reached a terminal status
// (completed, failed, or skipped).
func (s *Session) AllTasksTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Status != TaskCompleted && t.Status != TaskFailed && t.Status != TaskSkipped {
			return false
		}
	}
	return true
}

// IncompleteTaskCount returns the number of tasks not in a terminal status.
func (s *Session) IncompleteTaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.Status != TaskCompleted && t.Status != TaskFailed && t.Status != TaskSkipped {
			n++
		}
	}
	return n
}

// SetFinalReport records the terminal Markdown report.
func (s *Session) SetFinalReport(report string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return ErrInvalidState("session %s already in terminal phase %s", s.id, s.phase)
	}
	s.finalReport = report
	return nil
}

// FinalReport returns the recorded report text, if any.
func (s *Session) FinalReport() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalReport
}

// IncrementIteration bumps the per-session LLM-call counter and returns the
// new value.
func (s *Session) IncrementIteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterationCount++
	return s.iterationCount
}

// IterationCount returns the current LLM-call counter.
func (s *Session) IterationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterationCount
}

// RequestCancel flips the cooperative cancellation flag observed by the
// strategy at iteration, tool-call, and sandbox-return boundaries.
func (s *Session) RequestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Cancelled reports whether RequestCancel has been called.
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Snapshot returns an immutable copy of the session's full state, suitable
// for emission in a terminal event or Manager.Fetch response.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	tasks := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		tasks[i] = t.Clone()
	}
	artifacts := make([]Artifact, len(s.artifacts))
	copy(artifacts, s.artifacts)
	return Snapshot{
		ID:             s.id,
		CreatedAt:      s.createdAt,
		DatasetPath:    s.datasetPath,
		DatasetInfo:    s.datasetInfo,
		UserRequest:    s.userRequest,
		Strategy:       s.strategy,
		Phase:          s.phase,
		Messages:       messages,
		Tasks:          tasks,
		Artifacts:      artifacts,
		FinalReport:    s.finalReport,
		IterationCount: s.iterationCount,
	}
}

func validateSingleInProgress(tasks []Task) error {
	count := 0
	for _, t := range tasks {
		if t.Status == TaskInProgress {
			count++
		}
	}
	if count > 1 {
		return ErrInvalidState("task list has %d in_progress tasks; at most one is allowed", count)
	}
	return nil
}
