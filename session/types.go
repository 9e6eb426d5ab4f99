// Package session holds the per-session state machinery: the task list,
// message history, artifacts, and phase of a single analysis run. A Session
// is exclusively owned by the strategy goroutine driving it; all mutation
// methods are therefore simple mutex-guarded operations rather than a
// channel-actor, matching the "single-threaded logical ownership" model.
package session

import "time"

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseRunning      Phase = "running"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
	PhaseStopped      Phase = "stopped"
)

// Terminal reports whether p admits no further mutation (invariant I4).
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseFailed, PhaseStopped:
		return true
	default:
		return false
	}
}

// TaskStatus is the lifecycle state of a single task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskSkipped    TaskStatus = "skipped"
)

// TaskType tags the kind of work a task represents.
type TaskType string

const (
	TaskDataExploration TaskType = "data_exploration"
	TaskAnalysis        TaskType = "analysis"
	TaskVisualization   TaskType = "visualization"
	TaskReport          TaskType = "report"
)

// Task is one ordinal entry in a session's task list. The list itself is an
// ordered sequence: order doubles as presentation order and default
// execution order.
type Task struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        TaskType   `json:"type"`
	Status      TaskStatus `json:"status"`
	Code        string     `json:"code,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a value copy of t safe to hand to a caller outside the lock.
func (t Task) Clone() Task {
	clone := t
	if t.StartedAt != nil {
		ts := *t.StartedAt
		clone.StartedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		clone.CompletedAt = &ts
	}
	return clone
}

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallInfo describes a tool invocation requested by the assistant.
type ToolCallInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResultInfo carries the outcome of a tool invocation back into history.
type ToolResultInfo struct {
	CallID  string `json:"call_id"`
	Payload string `json:"payload"`
	IsError bool   `json:"is_error"`
}

// Message is one append-only entry in a session's conversation history.
type Message struct {
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	ToolCall   *ToolCallInfo   `json:"tool_call,omitempty"`
	ToolResult *ToolResultInfo `json:"tool_result,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Artifact is a persistent side effect of a run_code invocation.
type Artifact struct {
	Stdout           string            `json:"stdout"`
	Stderr           string            `json:"stderr"`
	ExitStatus       string            `json:"exit_status"` // success | error | timeout
	ImageData        []byte            `json:"image_data,omitempty"`
	ImageMediaType   string            `json:"image_media_type,omitempty"`
	StructuredResult map[string]any    `json:"structured_result,omitempty"`
	TaskID           int               `json:"task_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// DatasetInfo is the structured summary produced by read_dataset, cached on
// the session so later tool calls and the final report can reference it
// without re-reading the file from disk.
type DatasetInfo struct {
	Path         string           `json:"path"`
	Format       string           `json:"format"`
	TotalRows    int              `json:"total_rows"`
	TotalColumns int              `json:"total_columns"`
	Columns      []ColumnSummary  `json:"columns"`
	MissingRatio float64          `json:"missing_ratio"`
	PreviewRows  []map[string]any `json:"preview_rows,omitempty"`
}

// ColumnSummary describes one column of a dataset.
type ColumnSummary struct {
	Name          string   `json:"name"`
	DType         string   `json:"dtype"`
	NonNullCount  int      `json:"non_null_count"`
	NullCount     int      `json:"null_count"`
	UniqueCount   int      `json:"unique_count,omitempty"`
	SampleValues  []string `json:"sample_values,omitempty"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Mean          *float64 `json:"mean,omitempty"`
}

// Snapshot is an immutable view of a session suitable for emission in
// terminal events or for returning from Manager.Fetch.
type Snapshot struct {
	ID             string      `json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	DatasetPath    string      `json:"dataset_path"`
	DatasetInfo    *DatasetInfo `json:"dataset_info,omitempty"`
	UserRequest    string      `json:"user_request"`
	Strategy       string      `json:"strategy"`
	Phase          Phase       `json:"phase"`
	Messages       []Message   `json:"messages"`
	Tasks          []Task      `json:"tasks"`
	Artifacts      []Artifact  `json:"artifacts"`
	FinalReport    string      `json:"final_report,omitempty"`
	IterationCount int         `json:"iteration_count"`
}
