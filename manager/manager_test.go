package manager

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/llm"
	"github.com/attractor-labs/dataagent/session"
	"github.com/attractor-labs/dataagent/tools"
)

// stubProvider replays one scripted response sequence per session, keyed by
// call count, so Manager tests don't need a real LLM endpoint.
type stubProvider struct {
	responses []llm.Response
	calls     int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.calls >= len(p.responses) {
		resp := llm.Response{Message: llm.AssistantMessage("[ANALYSIS_COMPLETE]\nDone.")}
		return &resp, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return &resp, nil
}

func (p *stubProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	return nil, nil
}

func toolCallResp(id, name string, args map[string]any) llm.Response {
	raw, _ := json.Marshal(args)
	return llm.Response{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: []llm.ContentPart{llm.ToolCallPart(id, name, raw)},
		},
	}
}

func newManager(t *testing.T, provider llm.ProviderAdapter) *Manager {
	t.Helper()
	client := llm.NewClient(llm.WithProvider("stub", provider), llm.WithDefaultProvider("stub"))
	m := New(Deps{
		Client:          client,
		Tools:           tools.Build(nil),
		EventBufferSize: 32,
		SessionRetention: 50 * time.Millisecond,
	})
	t.Cleanup(m.Shutdown)
	return m
}

func drainUntilTerminal(t *testing.T, sub *events.Subscription) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				t.Fatal("subscription closed before a terminal event arrived")
			}
			if ev.Kind.Terminal() {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for a terminal event")
		}
	}
}

func TestStartRunsAutonomousStrategyToCompletion(t *testing.T) {
	provider := &stubProvider{
		responses: []llm.Response{
			{Message: llm.AssistantMessage("<thinking>exploring</thinking>\n<tasks>\n- [x] look at data\n</tasks>\n[ANALYSIS_COMPLETE]\n# Report\n\nfindings")},
		},
	}
	m := newManager(t, provider)

	id, err := m.Start(context.Background(), "/tmp/data.csv", "summarize", "autonomous")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, err := m.Subscribe(id)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	term := drainUntilTerminal(t, sub)
	if term.Kind != events.KindAgentCompleted {
		t.Fatalf("expected agent_completed, got %s", term.Kind)
	}

	deadline := time.After(2 * time.Second)
	for {
		snap, err := m.Fetch(id)
		if err == nil {
			if snap.Phase != session.PhaseCompleted {
				t.Fatalf("expected completed phase, got %s", snap.Phase)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session never became fetchable: %v", err)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestStartRejectsUnknownStrategy(t *testing.T) {
	m := newManager(t, &stubProvider{})
	if _, err := m.Start(context.Background(), "/tmp/data.csv", "req", "bogus"); err == nil {
		t.Fatal("expected an error for an unknown strategy name")
	}
}

// blockingProvider never responds until release is closed, so a test can
// observe a session reliably mid-flight before letting it finish.
type blockingProvider struct {
	release chan struct{}
}

func (p *blockingProvider) Name() string { return "blocking" }

func (p *blockingProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	resp := llm.Response{Message: llm.AssistantMessage("[ANALYSIS_COMPLETE]\nDone.")}
	return &resp, nil
}

func (p *blockingProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	return nil, nil
}

func TestFetchBeforeTerminalIsNotReady(t *testing.T) {
	provider := &blockingProvider{release: make(chan struct{})}
	m := newManager(t, provider)

	id, err := m.Start(context.Background(), "/tmp/data.csv", "req", "tool_driven")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Fetch(id); err == nil {
		t.Fatal("expected SESSION_NOT_READY before the session reaches a terminal phase")
	}
	close(provider.release)
	m.Stop(id)
}

func TestStopCancelsRunningSession(t *testing.T) {
	m := newManager(t, &stubProvider{})
	id, err := m.Start(context.Background(), "/tmp/data.csv", "req", "tool_driven")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub, err := m.Subscribe(id)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := m.Stop(id); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	term := drainUntilTerminal(t, sub)
	if term.Kind != events.KindAgentStopped && term.Kind != events.KindAgentCompleted {
		t.Fatalf("expected agent_stopped or agent_completed after Stop, got %s", term.Kind)
	}
}

func TestSubscribeUnknownSessionFails(t *testing.T) {
	m := newManager(t, &stubProvider{})
	if _, err := m.Subscribe("does-not-exist"); err == nil {
		t.Fatal("expected an error for an unknown session id")
	}
}

func TestHealthReportsSessionCounts(t *testing.T) {
	m := newManager(t, &stubProvider{})
	health := m.Health()
	if health["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", health["status"])
	}
}
