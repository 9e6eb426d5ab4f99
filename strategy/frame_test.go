package strategy

import (
	"context"
	"testing"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/llm"
	"github.com/attractor-labs/dataagent/session"
	"github.com/attractor-labs/dataagent/tools"
)

// streamingProvider emits real text and reasoning deltas followed by a
// stream_finish event carrying the assembled response, so tests can assert
// that callLLM relays the provider's own deltas rather than fabricating one
// post-hoc event from the final text.
type streamingProvider struct {
	textDeltas      []string
	reasoningDeltas []string
	final           llm.Response
}

func (p *streamingProvider) Name() string { return "streaming" }

func (p *streamingProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp := p.final
	return &resp, nil
}

func (p *streamingProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent, len(p.textDeltas)+len(p.reasoningDeltas)+2)
	go func() {
		defer close(ch)
		ch <- llm.StreamEvent{Type: llm.StreamStart}
		for _, d := range p.reasoningDeltas {
			ch <- llm.StreamEvent{Type: llm.ReasoningDelta, ReasoningDelta: d}
		}
		for _, d := range p.textDeltas {
			ch <- llm.StreamEvent{Type: llm.TextDelta, Delta: d}
		}
		resp := p.final
		ch <- llm.StreamEvent{Type: llm.StreamFinish, Response: &resp}
	}()
	return ch, nil
}

func TestCallLLMEmitsRealStreamingDeltas(t *testing.T) {
	provider := &streamingProvider{
		textDeltas:      []string{"Hello, ", "world."},
		reasoningDeltas: []string{"thinking about it"},
		final:           textResponse("Hello, world."),
	}
	client := llm.NewClient(llm.WithProvider("streaming", provider), llm.WithDefaultProvider("streaming"))

	sess := session.New("", "", "summarize", "tool_driven")
	sess.IncrementIteration()
	bus := events.NewBus(sess.ID(), 64)
	deps := Deps{Client: client, Tools: tools.Build(nil), Bus: bus}

	resp, err := callLLM(context.Background(), deps, sess, toolDrivenSystemPrompt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hello, world." {
		t.Fatalf("expected assembled response text, got %q", resp.Text())
	}

	var deltas []string
	var thinking []string
	for _, ev := range drainBacklog(bus) {
		switch ev.Kind {
		case events.KindLLMStreaming:
			deltas = append(deltas, ev.Payload.Delta)
			if ev.Payload.Iteration != 1 {
				t.Fatalf("expected iteration 1 on llm_streaming event, got %d", ev.Payload.Iteration)
			}
		case events.KindLLMThinking:
			thinking = append(thinking, ev.Payload.Thinking)
		}
	}
	if len(deltas) != 2 || deltas[0] != "Hello, " || deltas[1] != "world." {
		t.Fatalf("expected two real content deltas in order, got %v", deltas)
	}
	if len(thinking) != 1 || thinking[0] != "thinking about it" {
		t.Fatalf("expected one real reasoning delta relayed as llm_thinking, got %v", thinking)
	}
}

func TestCallLLMFallsBackToCompleteWhenStreamUnsupported(t *testing.T) {
	client := newScriptedClient(textResponse("plain completion"))
	sess := session.New("", "", "summarize", "tool_driven")
	bus := events.NewBus(sess.ID(), 64)
	deps := Deps{Client: client, Tools: tools.Build(nil), Bus: bus}

	resp, err := callLLM(context.Background(), deps, sess, toolDrivenSystemPrompt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "plain completion" {
		t.Fatalf("expected fallback Complete response, got %q", resp.Text())
	}
}

func drainBacklog(bus *events.Bus) []events.Event {
	sub := bus.Subscribe()
	defer sub.Close()
	var out []events.Event
	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}
