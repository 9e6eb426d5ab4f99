package strategy

import (
	"context"
	"fmt"
	"testing"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/llm"
	"github.com/attractor-labs/dataagent/session"
	"github.com/attractor-labs/dataagent/tools"
)

// recordingProvider replays scripted responses like scriptedProvider but
// also records the system prompt text (the first message of each request)
// sent on every call, so tests can assert staged's phases each use their
// own dedicated system prompt rather than one shared across all four.
type recordingProvider struct {
	responses     []llm.Response
	calls         int
	systemPrompts []string
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if len(req.Messages) > 0 {
		p.systemPrompts = append(p.systemPrompts, req.Messages[0].TextContent())
	}
	if p.calls >= len(p.responses) {
		return nil, fmt.Errorf("recordingProvider: no more responses scripted (call %d)", p.calls+1)
	}
	resp := p.responses[p.calls]
	p.calls++
	return &resp, nil
}

func (p *recordingProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	return nil, fmt.Errorf("recordingProvider: streaming not supported")
}

func TestStagedUsesDedicatedSystemPromptPerPhase(t *testing.T) {
	provider := &recordingProvider{responses: []llm.Response{
		textResponse("explored the data"),
		toolCallResponse("plan-1", "todo_write", map[string]any{
			"merge": false,
			"todos": []map[string]any{
				{"id": 1, "content": "explore data", "status": "in_progress"},
			},
		}),
		textResponse("executed the task"),
		textResponse("# Report\n\nDone."),
	}}
	client := llm.NewClient(llm.WithProvider("recording", provider), llm.WithDefaultProvider("recording"))

	sess := session.New("", "", "summarize the data", "staged")
	bus := events.NewBus(sess.ID(), 64)
	deps := Deps{Client: client, Tools: tools.Build(nil), Bus: bus, MaxIterations: 10}

	cause, err := Staged{}.Run(context.Background(), sess, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cause != CauseCompleted {
		t.Fatalf("expected CauseCompleted, got %s", cause)
	}

	want := []string{stagedExploreSystemPrompt, stagedPlanSystemPrompt, stagedExecuteSystemPrompt, stagedReportSystemPrompt}
	if len(provider.systemPrompts) != len(want) {
		t.Fatalf("expected %d LLM calls, got %d", len(want), len(provider.systemPrompts))
	}
	for i, prompt := range want {
		if provider.systemPrompts[i] != prompt {
			t.Fatalf("phase %d: expected its own dedicated system prompt, got a different one", i)
		}
	}
	// The four phase prompts must actually be distinct from one another and
	// from the shared tool_driven prompt — otherwise this assertion would
	// pass vacuously.
	seen := map[string]bool{}
	for _, p := range append(want, toolDrivenSystemPrompt) {
		if seen[p] {
			t.Fatalf("staged system prompts must be pairwise distinct from each other and from toolDrivenSystemPrompt")
		}
		seen[p] = true
	}
}
