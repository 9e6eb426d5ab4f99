package strategy

import (
	"context"
	"strings"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/session"
)

// Hybrid has code own the task ordering while the LLM signals per-task
// completion with a textual [TASK_DONE] marker rather than a tool call,
// bounded by MaxIterationsPerTask. Grounded on original_source's
// hybrid_loop.py (the HYBRID_SYSTEM_PROMPT's "include [TASK_DONE] in your
// reply" convention and its task_iterations < max_iterations_per_task
// bound).
type Hybrid struct{}

func (Hybrid) Run(ctx context.Context, sess *session.Session, deps Deps) (TerminalCause, error) {
	_ = sess.SetPhase(session.PhaseRunning)

	tasks, err := planInitialTasks(ctx, deps, sess)
	if err != nil {
		finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
		return CauseError, err
	}
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindTasksPlanned, events.Payload{Tasks: tasks})
	}

	perTaskLimit := maxIterationsPerTask(deps)
	globalLimit := maxIterations(deps)
	calls := 0

	for _, t := range tasks {
		if sess.Cancelled() {
			finishSession(sess, deps.Bus, session.PhaseStopped, CauseCancelled, false)
			return CauseCancelled, nil
		}
		if calls >= globalLimit {
			finishSession(sess, deps.Bus, session.PhaseCompleted, CauseMaxIterations, true)
			return CauseMaxIterations, nil
		}

		_ = sess.UpdateTask(t.ID, session.TaskInProgress, "", "", "")
		if deps.Bus != nil {
			deps.Bus.Emit(events.KindTaskStarted, events.Payload{TaskID: t.ID, TaskName: t.Name})
		}

		if err := sess.AppendMessage(session.Message{
			Role:    session.RoleUser,
			Content: formatHybridExecution(t.ID, t.Name, completedTaskSummary(sess), sess.DatasetPath()),
		}); err != nil {
			return CauseError, err
		}

		done := false
		for iter := 0; iter < perTaskLimit && calls < globalLimit; iter++ {
			calls++
			sess.IncrementIteration()

			resp, err := callLLM(ctx, deps, sess, hybridSystemPrompt)
			if err != nil {
				finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
				return CauseError, err
			}
			for _, call := range resp.ToolCallsFromResponse() {
				dispatchToolCall(ctx, deps, sess, call, t.ID)
			}

			if strings.Contains(resp.Text(), "[TASK_DONE]") {
				done = true
				break
			}
			if allToolCallsDone(resp) {
				if err := sess.AppendMessage(session.Message{
					Role:    session.RoleUser,
					Content: formatHybridVerification(t.ID, t.Name),
				}); err != nil {
					return CauseError, err
				}
			}
		}

		if done {
			_ = sess.UpdateTask(t.ID, session.TaskCompleted, "", "", "")
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindTaskCompleted, events.Payload{TaskID: t.ID, TaskName: t.Name})
			}
		} else {
			_ = sess.UpdateTask(t.ID, session.TaskFailed, "", "exceeded max_iterations_per_task without [TASK_DONE]", "")
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindTaskFailed, events.Payload{TaskID: t.ID, TaskName: t.Name})
			}
		}
	}

	report := buildReportFromArtifacts(sess)
	_ = sess.SetFinalReport(report)
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindReportGenerated, events.Payload{Report: report})
	}
	finishSession(sess, deps.Bus, session.PhaseCompleted, CauseCompleted, false)
	return CauseCompleted, nil
}
