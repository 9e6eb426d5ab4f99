package main

import (
	"fmt"

	"github.com/attractor-labs/dataagent/config"
	"github.com/attractor-labs/dataagent/llm"
	"github.com/attractor-labs/dataagent/manager"
	"github.com/attractor-labs/dataagent/sandbox"
	"github.com/attractor-labs/dataagent/tools"
)

// buildManager loads configuration and wires every ambient/domain
// dependency into a manager.Manager, mirroring cmd_serve.go's
// "load config, build stores/provider/registry, construct the runtime
// object" sequence.
func buildManager() (*manager.Manager, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	providerName := inferProvider(cfg.LLMModel)
	adapter, err := llm.NewGollmAdapter(providerName, cfg.LLMAPIKey, llm.WithModel(cfg.LLMModel))
	if err != nil {
		return nil, nil, fmt.Errorf("build llm adapter: %w", err)
	}
	client := llm.NewClient(llm.WithProvider(providerName, adapter), llm.WithDefaultProvider(providerName))

	sb := &sandbox.Sandbox{Timeout: cfg.CodeTimeout()}
	reg := tools.Build(tools.CSVReader{})

	m := manager.New(manager.Deps{
		Client:               client,
		Tools:                reg,
		Sandbox:              sb,
		Model:                cfg.LLMModel,
		Provider:             providerName,
		MaxIterations:        cfg.MaxIterations,
		MaxIterationsPerTask: cfg.MaxIterationsPerTask,
		EventBufferSize:      cfg.EventBufferSize,
		SessionRetention:     cfg.SessionRetention(),
	})
	return m, cfg, nil
}

// inferProvider derives the gollm provider name from the configured model,
// falling back to "openai" — the same default the teacher's
// NewGollmAdapter uses when no catalog entry matches.
func inferProvider(model string) string {
	if info := llm.GetModelInfo(model); info != nil {
		return info.Provider
	}
	return "openai"
}
