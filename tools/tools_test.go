package tools

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/sandbox"
	"github.com/attractor-labs/dataagent/session"
)

func newTestContext(t *testing.T, datasetPath string) *Context {
	t.Helper()
	sess := session.New("", datasetPath, "analyze this", "tool_driven")
	bus := events.NewBus(sess.ID(), 16)
	return &Context{
		Ctx:     context.Background(),
		Session: sess,
		Bus:     bus,
		Sandbox: sandbox.New(),
		Reader:  CSVReader{},
	}
}

func TestReadDatasetToolCachesDatasetInfo(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n3,4\n")
	reg := Build(CSVReader{})
	tc := newTestContext(t, path)

	args, _ := json.Marshal(map[string]string{"file_path": path})
	out, err := reg.Invoke(tc, "read_dataset", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty payload")
	}
	if tc.Session.DatasetInfo() == nil {
		t.Fatal("expected read_dataset to cache dataset info on the session")
	}
}

func TestReadDatasetToolRequiresFilePath(t *testing.T) {
	reg := Build(CSVReader{})
	tc := newTestContext(t, "")
	args, _ := json.Marshal(map[string]string{})
	if _, err := reg.Invoke(tc, "read_dataset", args); err == nil {
		t.Fatal("expected an error when file_path is missing")
	}
}

func TestRunCodeToolRecordsArtifact(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("no python3 available in test environment")
	}
	path := writeCSV(t, "a,b\n1,2\n")
	reg := Build(CSVReader{})
	tc := newTestContext(t, path)
	tc.Sandbox = &sandbox.Sandbox{PythonPath: "python3", Timeout: 5 * time.Second}

	args, _ := json.Marshal(map[string]string{"code": "print('hello')"})
	out, err := reg.Invoke(tc, "run_code", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty payload")
	}
	if len(tc.Session.Artifacts()) != 1 {
		t.Fatalf("expected one recorded artifact, got %d", len(tc.Session.Artifacts()))
	}
}

func TestTodoWriteReplaceThenMerge(t *testing.T) {
	reg := Build(CSVReader{})
	tc := newTestContext(t, "")

	replaceArgs, _ := json.Marshal(map[string]any{
		"merge": false,
		"todos": []map[string]any{
			{"id": 1, "content": "explore data", "status": "pending"},
			{"id": 2, "content": "build report", "status": "pending"},
		},
	})
	if _, err := reg.Invoke(tc, "todo_write", replaceArgs); err != nil {
		t.Fatalf("unexpected error on replace: %v", err)
	}
	if len(tc.Session.Tasks()) != 2 {
		t.Fatalf("expected 2 tasks after replace, got %d", len(tc.Session.Tasks()))
	}

	mergeArgs, _ := json.Marshal(map[string]any{
		"merge": true,
		"todos": []map[string]any{
			{"id": 1, "content": "explore data", "status": "in_progress"},
		},
	})
	if _, err := reg.Invoke(tc, "todo_write", mergeArgs); err != nil {
		t.Fatalf("unexpected error on merge: %v", err)
	}
	task, ok := tc.Session.TaskByID(1)
	if !ok || task.Status != session.TaskInProgress {
		t.Fatalf("expected task 1 in_progress, got %+v (found=%v)", task, ok)
	}
}

func TestTodoWriteRejectsTwoInProgress(t *testing.T) {
	reg := Build(CSVReader{})
	tc := newTestContext(t, "")

	args, _ := json.Marshal(map[string]any{
		"merge": false,
		"todos": []map[string]any{
			{"id": 1, "content": "a", "status": "in_progress"},
			{"id": 2, "content": "b", "status": "in_progress"},
		},
	})
	if _, err := reg.Invoke(tc, "todo_write", args); err == nil {
		t.Fatal("expected rejection of a task list with two in_progress tasks")
	}
}

func TestTodoWriteAppendsUnknownIDOnMerge(t *testing.T) {
	reg := Build(CSVReader{})
	tc := newTestContext(t, "")

	args, _ := json.Marshal(map[string]any{
		"merge": true,
		"todos": []map[string]any{
			{"id": 7, "content": "new task", "status": "pending"},
		},
	})
	if _, err := reg.Invoke(tc, "todo_write", args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tc.Session.TaskByID(7); !ok {
		t.Fatal("expected unknown id to be appended")
	}
}
