package tools

import (
	"encoding/json"

	"github.com/attractor-labs/dataagent/errs"
	"github.com/attractor-labs/dataagent/events"
	"github.com/attractor-labs/dataagent/session"
)

// Build returns a Registry carrying the three required tools, wired
// against the given sandbox and dataset reader. reader may be nil, in
// which case CSVReader{} is used.
func Build(reader DatasetReader) *Registry {
	if reader == nil {
		reader = CSVReader{}
	}
	r := NewRegistry()
	r.Register(readDatasetTool(reader))
	r.Register(runCodeTool())
	r.Register(todoWriteTool())
	return r
}

func readDatasetTool(reader DatasetReader) Registered {
	return Registered{
		Definition: Definition{
			Name:        "read_dataset",
			Description: "Read a dataset file and return its schema, row/column counts, per-column dtype and summary statistics, missing-value ratio, and a short preview. Call this first, before run_code, to understand the data's shape.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file_path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the dataset file.",
					},
					"sheet_name": map[string]interface{}{
						"type":        "string",
						"description": "Optional sheet name, for spreadsheet formats.",
					},
				},
				"required": []string{"file_path"},
			},
		},
		Executor: func(tc *Context, raw json.RawMessage) (string, error) {
			args, err := ParseArguments(raw)
			if err != nil {
				return "", errs.Wrap(errs.InvalidInput, err, "read_dataset: bad arguments")
			}
			filePath, ok := GetStringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", errs.New(errs.InvalidInput, "read_dataset: file_path is required")
			}
			sheetName, _ := GetStringArg(args, "sheet_name")

			info, err := reader.Read(filePath, sheetName)
			if err != nil {
				return "", err
			}
			tc.Session.SetDatasetInfo(info)
			if tc.Bus != nil {
				tc.Bus.Emit(events.KindDataExplored, events.Payload{DatasetInfo: info})
			}

			payload, err := json.Marshal(info)
			if err != nil {
				return "", errs.Wrap(errs.InvalidState, err, "read_dataset: marshal summary")
			}
			return string(payload), nil
		},
	}
}

func runCodeTool() Registered {
	return Registered{
		Definition: Definition{
			Name:        "run_code",
			Description: "Execute a Python analysis snippet against the loaded dataset in a fresh sandbox. The dataset is available at the DATASET_PATH variable. Save a chart to result.png and structured findings to result.json; print salient findings to stdout.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"code": map[string]interface{}{
						"type":        "string",
						"description": "Python source to execute.",
					},
				},
				"required": []string{"code"},
			},
		},
		Executor: func(tc *Context, raw json.RawMessage) (string, error) {
			args, err := ParseArguments(raw)
			if err != nil {
				return "", errs.Wrap(errs.InvalidInput, err, "run_code: bad arguments")
			}
			code, ok := GetStringArg(args, "code")
			if !ok || code == "" {
				return "", errs.New(errs.InvalidInput, "run_code: code is required")
			}

			result, err := tc.Sandbox.Run(tc.Ctx, code, tc.Session.DatasetPath())
			if err != nil {
				return "", errs.Wrap(errs.ExecutorUnavailable, err, "run_code: sandbox unavailable")
			}

			artifact := session.Artifact{
				Stdout:           headTailTruncate(result.Stdout, 4000),
				Stderr:           headTailTruncate(result.Stderr, 2000),
				ExitStatus:       string(result.Status),
				ImageData:        result.ImageData,
				ImageMediaType:   result.ImageMediaType,
				StructuredResult: result.StructuredResult,
				TaskID:           tc.TaskID,
			}
			if err := tc.Session.AppendArtifact(artifact); err != nil {
				return "", err
			}
			if tc.Bus != nil {
				tc.Bus.Emit(events.KindToolResult, events.Payload{
					ToolName:      "run_code",
					Status:        string(result.Status),
					StdoutPreview: tailTruncate(result.Stdout, 500),
					HasImage:      len(result.ImageData) > 0,
				})
				if len(result.ImageData) > 0 {
					tc.Bus.Emit(events.KindImageGenerated, events.Payload{
						TaskID:      tc.TaskID,
						ImageBase64: result.ImageBase64(),
					})
				}
			}

			payload := map[string]any{
				"status":           result.Status,
				"stdout":           artifact.Stdout,
				"has_image":        len(result.ImageData) > 0,
				"structured_result": result.StructuredResult,
			}
			if result.Status == "error" || result.Status == "timeout" {
				payload["stderr"] = artifact.Stderr
			}
			out, err := json.Marshal(payload)
			if err != nil {
				return "", errs.Wrap(errs.InvalidState, err, "run_code: marshal result")
			}
			return string(out), nil
		},
	}
}

func todoWriteTool() Registered {
	return Registered{
		Definition: Definition{
			Name:        "todo_write",
			Description: "Create or update the session's task list. Set merge=false to replace the list wholesale (initial planning). Set merge=true to update the status of existing tasks by id, appending any id not already present. At most one task may be in_progress at a time.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"todos": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"id":      map[string]interface{}{"type": "integer"},
								"content": map[string]interface{}{"type": "string"},
								"status":  map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed", "failed", "skipped"}},
							},
							"required": []string{"id", "content", "status"},
						},
					},
					"merge": map[string]interface{}{"type": "boolean"},
				},
				"required": []string{"todos", "merge"},
			},
		},
		Executor: func(tc *Context, raw json.RawMessage) (string, error) {
			var req struct {
				Todos []struct {
					ID      int    `json:"id"`
					Content string `json:"content"`
					Status  string `json:"status"`
				} `json:"todos"`
				Merge bool `json:"merge"`
			}
			if err := json.Unmarshal(raw, &req); err != nil {
				return "", errs.Wrap(errs.InvalidInput, err, "todo_write: bad arguments")
			}

			if !req.Merge {
				tasks := make([]session.Task, len(req.Todos))
				for i, t := range req.Todos {
					tasks[i] = session.Task{
						ID:     t.ID,
						Name:   t.Content,
						Status: session.TaskStatus(t.Status),
						Type:   session.TaskAnalysis,
					}
				}
				if err := tc.Session.ReplaceTasks(tasks); err != nil {
					return "", errs.Wrap(errs.InvalidState, err, "todo_write: replace rejected")
				}
			} else {
				for _, t := range req.Todos {
					status := session.TaskStatus(t.Status)
					if _, found := tc.Session.TaskByID(t.ID); found {
						if err := tc.Session.UpdateTask(t.ID, status, "", "", ""); err != nil {
							return "", errs.Wrap(errs.InvalidState, err, "todo_write: update rejected")
						}
					} else {
						if err := tc.Session.AppendTask(session.Task{
							ID:     t.ID,
							Name:   t.Content,
							Status: status,
							Type:   session.TaskAnalysis,
						}); err != nil {
							return "", errs.Wrap(errs.InvalidState, err, "todo_write: append rejected")
						}
					}
				}
			}

			tasks := tc.Session.Tasks()
			if tc.Bus != nil {
				tc.Bus.Emit(events.KindTasksUpdated, events.Payload{Tasks: tasks, Source: "tool"})
			}
			out, err := json.Marshal(tasks)
			if err != nil {
				return "", errs.Wrap(errs.InvalidState, err, "todo_write: marshal tasks")
			}
			return string(out), nil
		},
	}
}

