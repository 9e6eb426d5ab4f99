package strategy

import (
	"context"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/session"
)

// Staged runs four explicit phases — explore, plan, execute, report —
// rather than letting the LLM decide phase transitions. Grounded on
// original_source's loop.py (AgentLoop.run's four-phase structure).
type Staged struct{}

func (Staged) Run(ctx context.Context, sess *session.Session, deps Deps) (TerminalCause, error) {
	_ = sess.SetPhase(session.PhaseRunning)
	calls := 0
	limit := maxIterations(deps)

	// Phase 1: explore.
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindPhaseChange, events.Payload{Phase: "explore"})
	}
	if err := sess.AppendMessage(session.Message{
		Role:    session.RoleUser,
		Content: stagedExplorePrompt + "\n\nDataset path: " + sess.DatasetPath(),
	}); err != nil {
		return CauseError, err
	}
	calls++
	sess.IncrementIteration()
	exploreResp, err := callLLM(ctx, deps, sess, stagedExploreSystemPrompt)
	if err != nil {
		finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
		return CauseError, err
	}
	for _, call := range exploreResp.ToolCallsFromResponse() {
		dispatchToolCall(ctx, deps, sess, call, 0)
	}

	// Phase 2: plan.
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindPhaseChange, events.Payload{Phase: "plan"})
	}
	if err := sess.AppendMessage(session.Message{
		Role:    session.RoleUser,
		Content: formatStagedPlan(sess.UserRequest()),
	}); err != nil {
		return CauseError, err
	}
	var tasks []session.Task
	for attempt := 0; attempt < 3 && calls < limit; attempt++ {
		calls++
		sess.IncrementIteration()
		planResp, err := callLLM(ctx, deps, sess, stagedPlanSystemPrompt)
		if err != nil {
			finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
			return CauseError, err
		}
		for _, call := range planResp.ToolCallsFromResponse() {
			dispatchToolCall(ctx, deps, sess, call, 0)
		}
		if tasks = sess.Tasks(); len(tasks) > 0 {
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindTasksPlanned, events.Payload{Tasks: tasks})
			}
			break
		}
	}

	// Phase 3: execute.
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindPhaseChange, events.Payload{Phase: "execute"})
	}
	for _, t := range tasks {
		if sess.Cancelled() {
			finishSession(sess, deps.Bus, session.PhaseStopped, CauseCancelled, false)
			return CauseCancelled, nil
		}
		if calls >= limit {
			finishSession(sess, deps.Bus, session.PhaseCompleted, CauseMaxIterations, true)
			return CauseMaxIterations, nil
		}

		_ = sess.UpdateTask(t.ID, session.TaskInProgress, "", "", "")
		if deps.Bus != nil {
			deps.Bus.Emit(events.KindTaskStarted, events.Payload{TaskID: t.ID, TaskName: t.Name})
		}
		if err := sess.AppendMessage(session.Message{
			Role:    session.RoleUser,
			Content: formatStagedExecute(t.ID, t.Name, completedTaskSummary(sess)),
		}); err != nil {
			return CauseError, err
		}
		calls++
		sess.IncrementIteration()
		execResp, err := callLLM(ctx, deps, sess, stagedExecuteSystemPrompt)
		if err != nil {
			finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
			return CauseError, err
		}
		for _, call := range execResp.ToolCallsFromResponse() {
			dispatchToolCall(ctx, deps, sess, call, t.ID)
		}

		if updated, ok := sess.TaskByID(t.ID); ok && updated.Status == session.TaskInProgress {
			_ = sess.UpdateTask(t.ID, session.TaskCompleted, "", "", "")
		}
		if deps.Bus != nil {
			deps.Bus.Emit(events.KindTaskCompleted, events.Payload{TaskID: t.ID, TaskName: t.Name})
		}
	}

	// Phase 4: report.
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindPhaseChange, events.Payload{Phase: "report"})
	}
	if err := sess.AppendMessage(session.Message{
		Role:    session.RoleUser,
		Content: formatStagedReport(completedTaskSummary(sess)),
	}); err != nil {
		return CauseError, err
	}
	sess.IncrementIteration()
	reportResp, err := callLLM(ctx, deps, sess, stagedReportSystemPrompt)
	if err != nil {
		finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
		return CauseError, err
	}
	_ = sess.SetFinalReport(reportResp.Text())
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindReportGenerated, events.Payload{Report: reportResp.Text()})
	}

	finishSession(sess, deps.Bus, session.PhaseCompleted, CauseCompleted, false)
	return CauseCompleted, nil
}
