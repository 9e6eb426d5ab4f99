package tools

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/attractor-labs/dataagent/errs"
	"github.com/attractor-labs/dataagent/session"
)

// DatasetReader loads a dataset file and produces the structured summary
// read_dataset returns to the LLM. CSVReader is the only implementation:
// no third-party spreadsheet library appears anywhere in the reference
// pack (see DESIGN.md), so Excel inputs are reported as UNSUPPORTED_FORMAT
// rather than hand-rolling a binary xlsx parser on the standard library.
type DatasetReader interface {
	Read(path, sheetName string) (*session.DatasetInfo, error)
}

const previewRowCount = 5
const sampleValueCount = 3

// CSVReader reads CSV files with encoding/csv, inferring per-column dtype
// (integer, float, or string) by scanning every value the same way the
// original Python tool infers dtype via pandas' type coercion on read.
type CSVReader struct{}

func (CSVReader) Read(path, sheetName string) (*session.DatasetInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		return nil, errs.New(errs.UnsupportedFormat, "unsupported file format %q: only .csv is supported", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.InvalidInput, err, "dataset file does not exist: %s", path)
		}
		return nil, errs.Wrap(errs.InvalidInput, err, "cannot open dataset file: %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "malformed csv: %s", path)
	}
	if len(rows) == 0 {
		return nil, errs.New(errs.InvalidInput, "dataset file is empty: %s", path)
	}

	header := rows[0]
	dataRows := rows[1:]
	columns := make([]session.ColumnSummary, len(header))
	values := make([][]string, len(header))
	for i := range header {
		values[i] = make([]string, 0, len(dataRows))
	}
	for _, row := range dataRows {
		for i := range header {
			if i < len(row) {
				values[i] = append(values[i], row[i])
			} else {
				values[i] = append(values[i], "")
			}
		}
	}

	totalMissing := 0
	for i, name := range header {
		col := summarizeColumn(name, values[i])
		columns[i] = col
		totalMissing += col.NullCount
	}

	missingRatio := 0.0
	cells := len(dataRows) * len(header)
	if cells > 0 {
		missingRatio = float64(totalMissing) / float64(cells)
	}

	preview := make([]map[string]any, 0, previewRowCount)
	for i := 0; i < len(dataRows) && i < previewRowCount; i++ {
		row := map[string]any{}
		for j, name := range header {
			if j < len(dataRows[i]) {
				row[name] = dataRows[i][j]
			} else {
				row[name] = ""
			}
		}
		preview = append(preview, row)
	}

	return &session.DatasetInfo{
		Path:         path,
		Format:       "csv",
		TotalRows:    len(dataRows),
		TotalColumns: len(header),
		Columns:      columns,
		MissingRatio: missingRatio,
		PreviewRows:  preview,
	}, nil
}

func summarizeColumn(name string, raw []string) session.ColumnSummary {
	col := session.ColumnSummary{Name: name}
	seen := make(map[string]struct{})
	allInt, allFloat := true, true
	var nums []float64
	var samples []string

	for _, v := range raw {
		if v == "" {
			col.NullCount++
			continue
		}
		col.NonNullCount++
		seen[v] = struct{}{}
		if len(samples) < sampleValueCount {
			samples = append(samples, v)
		}
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if f, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
		} else {
			nums = append(nums, f)
		}
	}

	switch {
	case col.NonNullCount == 0:
		col.DType = "object"
	case allInt:
		col.DType = "int64"
	case allFloat:
		col.DType = "float64"
	default:
		col.DType = "object"
		col.SampleValues = samples
	}
	col.UniqueCount = len(seen)

	if (allInt || allFloat) && len(nums) > 0 {
		min, max, sum := nums[0], nums[0], 0.0
		for _, n := range nums {
			if n < min {
				min = n
			}
			if n > max {
				max = n
			}
			sum += n
		}
		mean := sum / float64(len(nums))
		if !math.IsNaN(min) {
			col.Min = &min
		}
		if !math.IsNaN(max) {
			col.Max = &max
		}
		col.Mean = &mean
	}
	return col
}
