package events

import "testing"

func drain(t *testing.T, sub *Subscription, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev, ok := <-sub.Events
		if !ok {
			t.Fatalf("channel closed after %d of %d expected events", i, n)
		}
		out = append(out, ev)
	}
	return out
}

func TestLateSubscriberReplaysFullBacklog(t *testing.T) {
	b := NewBus("s1", 16)
	b.Emit(KindAgentStarted, Payload{RequestSummary: "go"})
	b.Emit(KindPhaseChange, Payload{Phase: "running"})
	b.Emit(KindAgentCompleted, Payload{FinalReport: "done"})

	sub := b.Subscribe()
	events := drain(t, sub, 3)
	if events[0].Kind != KindAgentStarted || events[1].Kind != KindPhaseChange || events[2].Kind != KindAgentCompleted {
		t.Fatalf("unexpected replay order: %+v", events)
	}
}

func TestPreSubscriberBufferingThenLiveEvents(t *testing.T) {
	b := NewBus("s1", 16)
	b.Emit(KindAgentStarted, Payload{})

	sub := b.Subscribe()
	b.Emit(KindPhaseChange, Payload{Phase: "running"})

	events := drain(t, sub, 2)
	if events[0].Kind != KindAgentStarted {
		t.Fatalf("expected first replayed event to be agent_started, got %s", events[0].Kind)
	}
	if events[1].Kind != KindPhaseChange {
		t.Fatalf("expected live event phase_change second, got %s", events[1].Kind)
	}
}

func TestMultipleSubscribersSeeIdenticalOrder(t *testing.T) {
	b := NewBus("s1", 16)
	subA := b.Subscribe()
	b.Emit(KindAgentStarted, Payload{})
	b.Emit(KindToolCall, Payload{ToolName: "run_code"})
	subB := b.Subscribe()
	b.Emit(KindToolResult, Payload{ToolName: "run_code", Status: "success"})

	a := drain(t, subA, 3)
	bEvents := drain(t, subB, 3)
	if a[0].Kind != KindAgentStarted || a[1].Kind != KindToolCall || a[2].Kind != KindToolResult {
		t.Fatalf("subscriber A got unexpected order: %+v", a)
	}
	if bEvents[0].Kind != KindAgentStarted || bEvents[1].Kind != KindToolCall || bEvents[2].Kind != KindToolResult {
		t.Fatalf("subscriber B got unexpected order: %+v", bEvents)
	}
}

func TestSlowSubscriberDroppedWithLaggedSignal(t *testing.T) {
	b := NewBus("s1", 2)
	sub := b.Subscribe()
	b.Emit(KindAgentStarted, Payload{})
	b.Emit(KindPhaseChange, Payload{})
	b.Emit(KindToolCall, Payload{}) // overflows a queue of depth 2

	first := <-sub.Events
	second := <-sub.Events
	if first.Kind != KindAgentStarted || second.Kind != KindPhaseChange {
		t.Fatalf("unexpected prefix: %+v %+v", first, second)
	}
	third, ok := <-sub.Events
	if !ok {
		t.Fatal("expected a subscriber_lagged event before channel closes")
	}
	if third.Kind != KindSubscriberLagged {
		t.Fatalf("expected subscriber_lagged, got %s", third.Kind)
	}
	if _, ok := <-sub.Events; ok {
		t.Fatal("expected channel closed after lagged signal")
	}
}

func TestTerminalEventClosesStreamToFutureEmits(t *testing.T) {
	b := NewBus("s1", 16)
	b.Emit(KindAgentStarted, Payload{})
	b.Emit(KindAgentStopped, Payload{Reason: "cancelled"})
	b.Emit(KindToolCall, Payload{}) // must be dropped: stream already closed

	sub := b.Subscribe()
	events := drain(t, sub, 2)
	if events[1].Kind != KindAgentStopped {
		t.Fatalf("expected terminal event second, got %+v", events)
	}
	select {
	case ev, ok := <-sub.Events:
		if ok {
			t.Fatalf("expected no further events after terminal, got %+v", ev)
		}
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus("s1", 16)
	sub := b.Subscribe()
	sub.Close()
	if _, ok := <-sub.Events; ok {
		t.Fatal("expected channel closed after Close")
	}
}
