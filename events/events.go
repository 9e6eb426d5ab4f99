// Package events implements the per-session ordered event stream: a typed
// tagged union of event kinds plus a multi-subscriber bus with
// pre-subscriber buffering and bounded per-subscriber queues.
package events

import (
	"time"

	"github.com/attractor-labs/dataagent/session"
)

// Kind is the discriminator tag for Event, enumerating the taxonomy in
// spec.md §6.
type Kind string

const (
	KindConnected        Kind = "connected"
	KindAgentStarted     Kind = "agent_started"
	KindPhaseChange      Kind = "phase_change"
	KindDataExplored     Kind = "data_explored"
	KindTasksPlanned     Kind = "tasks_planned"
	KindTasksUpdated     Kind = "tasks_updated"
	KindTaskStarted      Kind = "task_started"
	KindTaskCompleted    Kind = "task_completed"
	KindTaskFailed       Kind = "task_failed"
	KindLLMStreaming     Kind = "llm_streaming"
	KindLLMThinking      Kind = "llm_thinking"
	KindToolCall         Kind = "tool_call"
	KindToolResult       Kind = "tool_result"
	KindCodeGenerated    Kind = "code_generated"
	KindImageGenerated   Kind = "image_generated"
	KindReportGenerated  Kind = "report_generated"
	KindAgentWarning     Kind = "agent_warning"
	KindAgentCompleted   Kind = "agent_completed"
	KindAgentError       Kind = "agent_error"
	KindAgentStopped     Kind = "agent_stopped"
	KindSubscriberLagged Kind = "subscriber_lagged"
)

// Terminal reports whether a Kind closes the event stream.
func (k Kind) Terminal() bool {
	switch k {
	case KindAgentCompleted, KindAgentError, KindAgentStopped:
		return true
	default:
		return false
	}
}

// Payload holds every typed field any event kind may carry. Only the fields
// relevant to Event.Kind are populated; this mirrors the kind-discriminated
// struct pattern used for llm.ContentPart rather than an untyped map, with
// the map form reserved for the JSON wire boundary (produced by
// encoding/json from the json tags below).
type Payload struct {
	RequestSummary       string          `json:"request_summary,omitempty"`
	Phase                string          `json:"phase,omitempty"`
	DatasetInfo          *session.DatasetInfo `json:"dataset_info,omitempty"`
	Tasks                []session.Task  `json:"tasks,omitempty"`
	Source               string          `json:"source,omitempty"` // tool | llm | code
	TaskID               int             `json:"task_id,omitempty"`
	TaskName             string          `json:"task_name,omitempty"`
	Error                string          `json:"error,omitempty"`
	Iteration            int             `json:"iteration,omitempty"`
	StreamKind           string          `json:"type,omitempty"` // content | reasoning | tool_call_chunk
	Delta                string          `json:"delta,omitempty"`
	FullContentSoFar     string          `json:"full_content_so_far,omitempty"`
	Thinking             string          `json:"thinking,omitempty"`
	ToolName             string          `json:"tool_name,omitempty"`
	Arguments            string          `json:"arguments,omitempty"`
	Status               string          `json:"status,omitempty"`
	StdoutPreview        string          `json:"stdout_preview,omitempty"`
	HasImage             bool            `json:"has_image,omitempty"`
	Code                 string          `json:"code,omitempty"`
	Description          string          `json:"description,omitempty"`
	ImageBase64          string          `json:"image_base64,omitempty"`
	Report               string          `json:"report,omitempty"`
	Warning              string          `json:"warning,omitempty"`
	FinalReport          string          `json:"final_report,omitempty"`
	Images               []string        `json:"images,omitempty"`
	ReachedMaxIterations bool            `json:"reached_max_iterations,omitempty"`
	IncompleteTasksCount int             `json:"incomplete_tasks_count,omitempty"`
	Where                string          `json:"where,omitempty"`
	Reason               string          `json:"reason,omitempty"`
}

// Event is a single typed, timestamped record on a session's ordered
// stream.
type Event struct {
	Kind      Kind      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Payload   Payload   `json:"payload"`
}
