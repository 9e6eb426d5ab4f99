package strategy

import (
	"strings"
	"testing"

	"github.com/attractor-labs/dataagent/session"
)

func TestExtractTasksParsesCheckboxesAndStripsParenthetical(t *testing.T) {
	content := "<thinking>working</thinking>\n<tasks>\n- [x] A\n- [ ] B （进行中）\n</tasks>"

	tasks, ok := extractTasks(content)
	if !ok {
		t.Fatal("expected a tasks block to be found")
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %+v", len(tasks), tasks)
	}
	if tasks[0].Name != "A" || tasks[0].Status != session.TaskCompleted {
		t.Fatalf("unexpected first task: %+v", tasks[0])
	}
	if tasks[1].Name != "B" || tasks[1].Status != session.TaskPending {
		t.Fatalf("unexpected second task: %+v", tasks[1])
	}
}

func TestExtractThinkingReturnsBlockContent(t *testing.T) {
	content := "<thinking>I should explore the data first.</thinking>\n<tasks>\n- [ ] explore\n</tasks>"
	thinking := extractThinking(content)
	if thinking != "I should explore the data first." {
		t.Fatalf("unexpected thinking text: %q", thinking)
	}
}

func TestExtractReportStripsTagsAndMarker(t *testing.T) {
	content := "<thinking>done</thinking>\n<tasks>\n- [x] A\n</tasks>\n# Report\n\nFindings here.\n---\n[ANALYSIS_COMPLETE]"
	report := extractReport(content)
	if report != "# Report\n\nFindings here." {
		t.Fatalf("unexpected report: %q", report)
	}
}

func TestAnalysisCompleteMarkerDetection(t *testing.T) {
	if !strings.Contains("blah [ANALYSIS_COMPLETE]", analysisCompleteMarker) {
		t.Fatal("expected marker to be detected")
	}
	if strings.Contains("blah", analysisCompleteMarker) {
		t.Fatal("expected no marker to be detected")
	}
}
