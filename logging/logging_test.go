package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestForSessionAnnotatesSessionID(t *testing.T) {
	var buf bytes.Buffer
	old := Logger()
	SetOutput(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetOutput(old) })

	ForSession("sess-1").Info("hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected valid JSON log line: %v", err)
	}
	if record["session_id"] != "sess-1" {
		t.Fatalf("expected session_id=sess-1, got %v", record["session_id"])
	}
}
