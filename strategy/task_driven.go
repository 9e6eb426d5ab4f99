package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/session"
)

// TaskDriven keeps the task list under code control: the code injects a
// per-task execution prompt, then a verification prompt expecting a
// todo_write(merge=true) call marking the task completed, retrying up to
// MaxIterationsPerTask times before marking the task failed. Grounded on
// original_source's task_driven_loop.py (_execute_single_task /
// _task_execute / _task_verify).
type TaskDriven struct{}

func (TaskDriven) Run(ctx context.Context, sess *session.Session, deps Deps) (TerminalCause, error) {
	_ = sess.SetPhase(session.PhaseRunning)

	tasks, err := planInitialTasks(ctx, deps, sess)
	if err != nil {
		finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
		return CauseError, err
	}
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindTasksPlanned, events.Payload{Tasks: tasks})
	}

	retryBudget := maxIterationsPerTask(deps)
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

		completed := false
		for attempt := 0; attempt < retryBudget && calls < globalLimit; attempt++ {
			calls++
			sess.IncrementIteration()

			if err := sess.AppendMessage(session.Message{
				Role:    session.RoleUser,
				Content: formatTaskDrivenExecution(t.ID, t.Name, completedTaskSummary(sess), sess.DatasetPath()),
			}); err != nil {
				return CauseError, err
			}
			execResp, err := callLLM(ctx, deps, sess, taskDrivenExecutionSystemPrompt)
			if err != nil {
				finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
				return CauseError, err
			}
			for _, call := range execResp.ToolCallsFromResponse() {
				dispatchToolCall(ctx, deps, sess, call, t.ID)
			}

			if err := sess.AppendMessage(session.Message{
				Role:    session.RoleUser,
				Content: formatTaskDrivenVerification(t.ID, t.Name, lastArtifactSummary(sess)),
			}); err != nil {
				return CauseError, err
			}
			calls++
			sess.IncrementIteration()
			verifyResp, err := callLLM(ctx, deps, sess, taskDrivenExecutionSystemPrompt)
			if err != nil {
				finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
				return CauseError, err
			}
			for _, call := range verifyResp.ToolCallsFromResponse() {
				dispatchToolCall(ctx, deps, sess, call, t.ID)
			}

			if updated, ok := sess.TaskByID(t.ID); ok && updated.Status == session.TaskCompleted {
				completed = true
				break
			}
		}

		if !completed {
			_ = sess.UpdateTask(t.ID, session.TaskFailed, "", "exceeded max retries for this task", "")
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindTaskFailed, events.Payload{TaskID: t.ID, TaskName: t.Name})
			}
		} else if deps.Bus != nil {
			deps.Bus.Emit(events.KindTaskCompleted, events.Payload{TaskID: t.ID, TaskName: t.Name})
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

const taskDrivenExecutionSystemPrompt = toolDrivenSystemPrompt

// planInitialTasks runs one read_dataset + plan round before task execution
// begins, since task-driven mode needs the full task list up front (code,
// not the LLM, owns iteration over it).
func planInitialTasks(ctx context.Context, deps Deps, sess *session.Session) ([]session.Task, error) {
	if err := sess.AppendMessage(session.Message{
		Role:    session.RoleUser,
		Content: fmt.Sprintf("Dataset path: %s\n\nRequest: %s\n\nCall read_dataset, then call todo_write(merge=false) with your proposed task list.", sess.DatasetPath(), sess.UserRequest()),
	}); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		sess.IncrementIteration()
		resp, err := callLLM(ctx, deps, sess, taskDrivenExecutionSystemPrompt)
		if err != nil {
			return nil, err
		}
		for _, call := range resp.ToolCallsFromResponse() {
			dispatchToolCall(ctx, deps, sess, call, 0)
		}
		if tasks := sess.Tasks(); len(tasks) > 0 {
			return tasks, nil
		}
	}
	return nil, fmt.Errorf("task_driven: model never produced a task list via todo_write")
}

func completedTaskSummary(sess *session.Session) string {
	var sb strings.Builder
	for _, t := range sess.Tasks() {
		if t.Status == session.TaskCompleted {
			sb.WriteString("- ")
			sb.WriteString(t.Name)
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return "(none yet)"
	}
	return sb.String()
}

func lastArtifactSummary(sess *session.Session) string {
	artifacts := sess.Artifacts()
	if len(artifacts) == 0 {
		return "(no run_code output yet)"
	}
	a := artifacts[len(artifacts)-1]
	return fmt.Sprintf("status=%s stdout=%s", a.ExitStatus, truncate(a.Stdout, 1000))
}

func buildReportFromArtifacts(sess *session.Session) string {
	var sb strings.Builder
	sb.WriteString("# Analysis Report\n\n")
	for _, t := range sess.Tasks() {
		sb.WriteString(fmt.Sprintf("## %s (%s)\n\n", t.Name, t.Status))
	}
	for _, m := range sess.Messages() {
		if m.Role == session.RoleAssistant && m.Content != "" {
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
