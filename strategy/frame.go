package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/attractor-labs/dataagent/errs"
	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/llm"
	"github.com/attractor-labs/dataagent/logging"
	"github.com/attractor-labs/dataagent/session"
	"github.com/attractor-labs/dataagent/tools"
)

// toLLMMessages replays a session's message history into the llm package's
// wire shape, prefixed by systemPrompt. This mirrors the teacher's
// ConvertHistoryToMessages + SystemMessage prepend in processInput.
func toLLMMessages(systemPrompt string, history []session.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.SystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case session.RoleUser:
			out = append(out, llm.UserMessage(m.Content))
		case session.RoleAssistant:
			msg := llm.Message{Role: llm.RoleAssistant}
			if m.Content != "" {
				msg.Content = append(msg.Content, llm.TextPart(m.Content))
			}
			if m.ToolCall != nil {
				msg.Content = append(msg.Content, llm.ToolCallPart(m.ToolCall.ID, m.ToolCall.Name, json.RawMessage(m.ToolCall.Arguments)))
			}
			out = append(out, msg)
		case session.RoleTool:
			if m.ToolResult != nil {
				out = append(out, llm.ToolResultMessage(m.ToolResult.CallID, m.ToolResult.Payload, m.ToolResult.IsError))
			}
		case session.RoleSystem:
			out = append(out, llm.SystemMessage(m.Content))
		}
	}
	return out
}

// toolDefs converts a tools.Registry's advertised definitions to the llm
// package's wire shape.
func toolDefs(reg *tools.Registry) []llm.ToolDefinition {
	defs := reg.Definitions()
	out := make([]llm.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = llm.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return out
}

// callLLM issues one request built from the session's current history plus
// systemPrompt, consuming the response through deps.Client.Stream so the
// caller sees real per-delta llm_streaming/llm_thinking events as the
// provider emits them (spec.md §4.3/§4.6's "stream=true" contract), then
// appends the assembled assistant reply to history. It returns the final
// response for the caller to inspect for tool calls / completion text.
func callLLM(ctx context.Context, deps Deps, sess *session.Session, systemPrompt string) (*llm.Response, error) {
	req := llm.Request{
		Model:      deps.Model,
		Provider:   deps.Provider,
		Messages:   toLLMMessages(systemPrompt, sess.Messages()),
		ToolDefs:   toolDefs(deps.Tools),
		ToolChoice: &llm.ToolChoice{Mode: "auto"},
	}

	resp, err := streamLLM(ctx, deps, sess, req)
	if err != nil {
		logging.ForSession(sess.ID()).Error("llm completion failed", "error", err)
		return nil, errs.Wrap(errs.LLMFailed, err, "llm completion failed")
	}

	toolCalls := resp.ToolCallsFromResponse()
	msg := session.Message{Role: session.RoleAssistant, Content: resp.Text()}
	if len(toolCalls) == 1 {
		msg.ToolCall = &session.ToolCallInfo{ID: toolCalls[0].ID, Name: toolCalls[0].Name, Arguments: string(toolCalls[0].Arguments)}
	}
	if err := sess.AppendMessage(msg); err != nil {
		return nil, err
	}
	return resp, nil
}

// streamLLM drains deps.Client.Stream, re-emitting each text/reasoning
// delta as it arrives (llm_streaming / llm_thinking) while feeding every
// event into an llm.StreamAccumulator — the same accumulation the SDK's
// own StreamGenerate helper relies on. The accumulator returns the
// stream_finish event's Response as is when the provider supplies one, and
// otherwise assembles a Response from the observed deltas. Falls back to a
// blocking Complete call if Stream errors or returns no channel (e.g. a test
// double whose Stream is unimplemented).
func streamLLM(ctx context.Context, deps Deps, sess *session.Session, req llm.Request) (*llm.Response, error) {
	ch, err := deps.Client.Stream(ctx, req)
	if err != nil || ch == nil {
		return deps.Client.Complete(ctx, req)
	}

	iteration := sess.IterationCount()
	var fullText strings.Builder
	acc := llm.NewStreamAccumulator()

	for ev := range ch {
		acc.Process(ev)
		switch ev.Type {
		case llm.TextDelta:
			fullText.WriteString(ev.Delta)
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindLLMStreaming, events.Payload{
					StreamKind:       "content",
					Delta:            ev.Delta,
					FullContentSoFar: fullText.String(),
					Iteration:        iteration,
				})
			}
		case llm.ReasoningDelta:
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindLLMThinking, events.Payload{
					Thinking:  ev.ReasoningDelta,
					Iteration: iteration,
				})
			}
		case llm.ToolCallDelta:
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindLLMStreaming, events.Payload{
					StreamKind: "tool_call_chunk",
					Delta:      ev.Delta,
					Iteration:  iteration,
				})
			}
		case llm.StreamError:
			return nil, ev.Error
		}
	}

	return acc.Response(), nil
}

// dispatchToolCall invokes one LLM-requested tool call against the
// registry, records its result as a tool message in session history (the
// assistant message carrying the call is appended by callLLM), and
// returns the result text (already recorded) for any caller wanting to
// inspect it (e.g. hybrid/task-driven verification).
func dispatchToolCall(ctx context.Context, deps Deps, sess *session.Session, call llm.ToolCall, taskID int) (string, bool) {
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindToolCall, events.Payload{ToolName: call.Name, Arguments: string(call.Arguments), TaskID: taskID})
	}
	tc := &tools.Context{Ctx: ctx, Session: sess, Bus: deps.Bus, Sandbox: deps.Sandbox, TaskID: taskID}
	payload, err := deps.Tools.Invoke(tc, call.Name, call.Arguments)
	isError := err != nil
	resultText := payload
	if isError {
		resultText = err.Error()
	}
	_ = sess.AppendMessage(session.Message{
		Role: session.RoleTool,
		ToolResult: &session.ToolResultInfo{
			CallID:  call.ID,
			Payload: resultText,
			IsError: isError,
		},
	})
	return resultText, !isError
}

// allToolCallsDone reports whether resp carries no tool calls — the
// universal "natural completion" signal shared by every strategy's inner
// step, per the teacher's processInput step 6.
func allToolCallsDone(resp *llm.Response) bool {
	return len(resp.ToolCallsFromResponse()) == 0
}

func maxIterations(deps Deps) int {
	if deps.MaxIterations <= 0 {
		return 25
	}
	return deps.MaxIterations
}

func maxIterationsPerTask(deps Deps) int {
	if deps.MaxIterationsPerTask <= 0 {
		return 5
	}
	return deps.MaxIterationsPerTask
}

func finishSession(sess *session.Session, bus *events.Bus, phase session.Phase, cause TerminalCause, reachedMax bool) {
	_ = sess.SetPhase(phase)
	if bus == nil {
		return
	}
	switch cause {
	case CauseCompleted:
		bus.Emit(events.KindAgentCompleted, events.Payload{
			FinalReport:          sess.FinalReport(),
			ReachedMaxIterations: reachedMax,
		})
	case CauseCancelled:
		bus.Emit(events.KindAgentStopped, events.Payload{Reason: "cancelled"})
	case CauseMaxIterations:
		bus.Emit(events.KindAgentWarning, events.Payload{
			Warning:              "reached max_iterations before every task finished",
			IncompleteTasksCount: sess.IncompleteTaskCount(),
		})
		bus.Emit(events.KindAgentCompleted, events.Payload{
			FinalReport:          sess.FinalReport(),
			ReachedMaxIterations: true,
			IncompleteTasksCount: sess.IncompleteTaskCount(),
		})
	case CauseError:
		bus.Emit(events.KindAgentError, events.Payload{Error: fmt.Sprintf("strategy %s terminated with error", sess.Strategy())})
	}
}
