package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/attractor-labs/dataagent/errs"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCSVReaderSummarizesColumns(t *testing.T) {
	path := writeCSV(t, "name,age,score\nalice,30,9.5\nbob,25,8.0\ncarol,,7.25\n")

	info, err := CSVReader{}.Read(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.TotalRows != 3 || info.TotalColumns != 3 {
		t.Fatalf("unexpected shape: rows=%d cols=%d", info.TotalRows, info.TotalColumns)
	}

	byName := map[string]int{}
	for i, c := range info.Columns {
		byName[c.Name] = i
	}
	age := info.Columns[byName["age"]]
	if age.DType != "int64" {
		t.Fatalf("expected age to be int64, got %s", age.DType)
	}
	if age.NullCount != 1 {
		t.Fatalf("expected one missing age value, got %d", age.NullCount)
	}
	if age.Min == nil || *age.Min != 25 {
		t.Fatalf("expected age min 25, got %+v", age.Min)
	}

	score := info.Columns[byName["score"]]
	if score.DType != "float64" {
		t.Fatalf("expected score to be float64, got %s", score.DType)
	}

	name := info.Columns[byName["name"]]
	if name.DType != "object" {
		t.Fatalf("expected name to be object, got %s", name.DType)
	}
	if len(name.SampleValues) == 0 {
		t.Fatal("expected sample values for string column")
	}

	if info.MissingRatio <= 0 {
		t.Fatalf("expected nonzero missing ratio, got %f", info.MissingRatio)
	}
	if len(info.PreviewRows) != 3 {
		t.Fatalf("expected 3 preview rows (fewer than cap), got %d", len(info.PreviewRows))
	}
}

func TestCSVReaderRejectsUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xlsx")
	if err := os.WriteFile(path, []byte("not a real workbook"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := CSVReader{}.Read(path, "")
	if err == nil {
		t.Fatal("expected an error for unsupported format")
	}
	kind, ok := errs.KindOf(err)
	if !ok || kind != errs.UnsupportedFormat {
		t.Fatalf("expected UNSUPPORTED_FORMAT, got %v (kind=%v ok=%v)", err, kind, ok)
	}
}

func TestCSVReaderRejectsMissingFile(t *testing.T) {
	_, err := CSVReader{}.Read("/nonexistent/path/to/data.csv", "")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	kind, ok := errs.KindOf(err)
	if !ok || kind != errs.InvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}
