package strategy

import (
	"context"

	"github.com/attractor-labs/dataagent/session"
)

// ToolDriven lets the LLM own the task list entirely via todo_write,
// terminating when a turn produces no tool calls and every task has
// reached a terminal status. Grounded on original_source's
// tool_driven_loop.py: a single running conversation, no system-injected
// task-execution prompts.
type ToolDriven struct{}

func (ToolDriven) Run(ctx context.Context, sess *session.Session, deps Deps) (TerminalCause, error) {
	if err := sess.AppendMessage(session.Message{
		Role:    session.RoleUser,
		Content: "Dataset path: " + sess.DatasetPath() + "\n\nRequest: " + sess.UserRequest(),
	}); err != nil {
		return CauseError, err
	}
	_ = sess.SetPhase(session.PhaseRunning)

	limit := maxIterations(deps)
	for i := 0; i < limit; i++ {
		if sess.Cancelled() {
			finishSession(sess, deps.Bus, session.PhaseStopped, CauseCancelled, false)
			return CauseCancelled, nil
		}
		select {
		case <-ctx.Done():
			finishSession(sess, deps.Bus, session.PhaseStopped, CauseCancelled, false)
			return CauseCancelled, ctx.Err()
		default:
		}
		sess.IncrementIteration()

		resp, err := callLLM(ctx, deps, sess, toolDrivenSystemPrompt)
		if err != nil {
			finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
			return CauseError, err
		}

		if allToolCallsDone(resp) {
			if sess.AllTasksTerminal() {
				_ = sess.SetFinalReport(resp.Text())
				finishSession(sess, deps.Bus, session.PhaseCompleted, CauseCompleted, false)
				return CauseCompleted, nil
			}
			// The model stopped calling tools without finishing every task;
			// nudge it back into the loop rather than treating this as done.
			if err := sess.AppendMessage(session.Message{
				Role:    session.RoleUser,
				Content: "Some tasks are still not terminal. Continue working through the task list with run_code and todo_write.",
			}); err != nil {
				return CauseError, err
			}
			continue
		}

		for _, call := range resp.ToolCallsFromResponse() {
			dispatchToolCall(ctx, deps, sess, call, 0)
		}
	}

	finishSession(sess, deps.Bus, session.PhaseCompleted, CauseMaxIterations, true)
	return CauseMaxIterations, nil
}
