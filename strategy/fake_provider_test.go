package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/attractor-labs/dataagent/llm"
)

// scriptedProvider replays a fixed sequence of responses, one per Complete
// call, so a strategy's behavior can be exercised deterministically without
// a real LLM endpoint.
type scriptedProvider struct {
	responses []llm.Response
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.calls >= len(p.responses) {
		return nil, fmt.Errorf("scriptedProvider: no more responses scripted (call %d)", p.calls+1)
	}
	resp := p.responses[p.calls]
	p.calls++
	return &resp, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamEvent, error) {
	return nil, fmt.Errorf("scriptedProvider: streaming not supported")
}

func newScriptedClient(responses ...llm.Response) *llm.Client {
	return llm.NewClient(llm.WithProvider("scripted", &scriptedProvider{responses: responses}), llm.WithDefaultProvider("scripted"))
}

func textResponse(text string) llm.Response {
	return llm.Response{Message: llm.AssistantMessage(text)}
}

func toolCallResponse(id, name string, args map[string]any) llm.Response {
	raw, _ := json.Marshal(args)
	return llm.Response{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: []llm.ContentPart{llm.ToolCallPart(id, name, raw)},
		},
	}
}
