package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func requirePython(t *testing.T) string {
	t.Helper()
	for _, candidate := range []string{"python3", "python"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path
		}
	}
	t.Skip("no python interpreter available in test environment")
	return ""
}

func writeTempDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestRunSuccessProducesArtifacts(t *testing.T) {
	python := requirePython(t)
	sb := &Sandbox{PythonPath: python, Timeout: 5 * time.Second}
	dataset := writeTempDataset(t)

	code := `
import pandas as pd
df = pd.read_csv(DATASET_PATH)
print("rows:", len(df))
with open("result.json", "w") as f:
    json.dump({"rows": len(df)}, f)
`
	result, err := sb.Run(context.Background(), code, dataset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (stderr=%s)", result.Status, result.Stderr)
	}
	if result.StructuredResult == nil {
		t.Fatal("expected structured result from result.json")
	}
}

func TestRunCapturesExecutionError(t *testing.T) {
	python := requirePython(t)
	sb := &Sandbox{PythonPath: python, Timeout: 5 * time.Second}
	dataset := writeTempDataset(t)

	code := `raise ValueError("boom")`
	result, err := sb.Run(context.Background(), code, dataset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusError {
		t.Fatalf("expected error status, got %s", result.Status)
	}
	if result.ExitCode == 0 {
		t.Fatal("expected non-zero exit code on raised exception")
	}
}

func TestRunTimeout(t *testing.T) {
	python := requirePython(t)
	sb := &Sandbox{PythonPath: python, Timeout: 200 * time.Millisecond}
	dataset := writeTempDataset(t)

	code := `
import time
time.sleep(10)
`
	start := time.Now()
	result, err := sb.Run(context.Background(), code, dataset)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusTimeout {
		t.Fatalf("expected timeout status, got %s", result.Status)
	}
	if elapsed > 200*time.Millisecond+gracePeriod+2*time.Second {
		t.Fatalf("expected process reaped within grace+kill window, took %s", elapsed)
	}
}
