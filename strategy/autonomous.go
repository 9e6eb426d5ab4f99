package strategy

import (
	"context"
	"regexp"
	"strings"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/session"
)

// Autonomous sends a single initial user message and then lets the model
// drive entirely, parsing <thinking>/<tasks> tags out of each textual
// reply and watching for the [ANALYSIS_COMPLETE] sentinel. Grounded on
// original_source's autonomous_loop.py (_extract_thinking, _extract_tasks,
// _is_analysis_complete, _extract_report).
type Autonomous struct{}

var (
	thinkingTagRe = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)
	tasksTagRe    = regexp.MustCompile(`(?s)<tasks>(.*?)</tasks>`)
	taskLineRe    = regexp.MustCompile(`^-\s*\[([xX ])\]\s*(.+)$`)
	parenSuffixRe = regexp.MustCompile(`[(（].*?[)）]`)
)

const analysisCompleteMarker = "[ANALYSIS_COMPLETE]"

func (Autonomous) Run(ctx context.Context, sess *session.Session, deps Deps) (TerminalCause, error) {
	initial := "Please analyze the following dataset.\n\nDataset path: " + sess.DatasetPath() +
		"\n\nUser request: " + sess.UserRequest() +
		"\n\nBegin the analysis. Remember: every reply must include <thinking> and <tasks> tags."
	if err := sess.AppendMessage(session.Message{Role: session.RoleUser, Content: initial}); err != nil {
		return CauseError, err
	}
	_ = sess.SetPhase(session.PhaseRunning)
	if deps.Bus != nil {
		deps.Bus.Emit(events.KindPhaseChange, events.Payload{Phase: "autonomous_running"})
	}

	limit := maxIterations(deps)
	for i := 0; i < limit; i++ {
		if sess.Cancelled() {
			finishSession(sess, deps.Bus, session.PhaseStopped, CauseCancelled, false)
			return CauseCancelled, nil
		}
		sess.IncrementIteration()

		resp, err := callLLM(ctx, deps, sess, autonomousSystemPrompt)
		if err != nil {
			finishSession(sess, deps.Bus, session.PhaseFailed, CauseError, false)
			return CauseError, err
		}

		if !allToolCallsDone(resp) {
			for _, call := range resp.ToolCallsFromResponse() {
				dispatchToolCall(ctx, deps, sess, call, 0)
			}
			continue
		}

		content := resp.Text()

		if thinking := extractThinking(content); thinking != "" && deps.Bus != nil {
			deps.Bus.Emit(events.KindLLMThinking, events.Payload{Thinking: thinking, Iteration: sess.IterationCount()})
		}

		if tasks, ok := extractTasks(content); ok {
			_ = sess.ReplaceTasks(tasks)
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindTasksUpdated, events.Payload{Tasks: sess.Tasks(), Source: "llm"})
			}
		}

		if strings.Contains(content, analysisCompleteMarker) {
			report := extractReport(content)
			_ = sess.SetFinalReport(report)
			if deps.Bus != nil {
				deps.Bus.Emit(events.KindReportGenerated, events.Payload{Report: report})
			}
			finishSession(sess, deps.Bus, session.PhaseCompleted, CauseCompleted, false)
			return CauseCompleted, nil
		}
	}

	finishSession(sess, deps.Bus, session.PhaseCompleted, CauseMaxIterations, true)
	return CauseMaxIterations, nil
}

// extractThinking returns the contents of the first <thinking> block, or
// "" if absent.
func extractThinking(content string) string {
	m := thinkingTagRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractTasks parses a <tasks> block's "- [x] name" / "- [ ] name" lines
// into Task values, stripping any parenthetical status suffix (the
// original's "（已完成）" annotations). Returns ok=false if no <tasks>
// block is present.
func extractTasks(content string) ([]session.Task, bool) {
	m := tasksTagRe.FindStringSubmatch(content)
	if m == nil {
		return nil, false
	}
	lines := strings.Split(strings.TrimSpace(m[1]), "\n")
	var tasks []session.Task
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lm := taskLineRe.FindStringSubmatch(line)
		if lm == nil {
			continue
		}
		completed := strings.EqualFold(lm[1], "x")
		name := parenSuffixRe.ReplaceAllString(strings.TrimSpace(lm[2]), "")
		name = strings.TrimSpace(name)
		status := session.TaskPending
		if completed {
			status = session.TaskCompleted
		}
		tasks = append(tasks, session.Task{
			ID:     i + 1,
			Name:   name,
			Type:   session.TaskAnalysis,
			Status: status,
		})
	}
	if len(tasks) == 0 {
		return nil, false
	}
	return tasks, true
}

// extractReport strips the <thinking>/<tasks> tags, the completion
// marker, and a trailing "---" rule, leaving the Markdown report body.
func extractReport(content string) string {
	report := thinkingTagRe.ReplaceAllString(content, "")
	report = tasksTagRe.ReplaceAllString(report, "")
	report = strings.ReplaceAll(report, analysisCompleteMarker, "")
	report = strings.TrimSpace(report)
	report = strings.TrimSuffix(report, "---")
	return strings.TrimSpace(report)
}
