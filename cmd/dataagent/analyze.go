package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "", "strategy tag (defaults to agent_mode from config)")
}

var analyzeStrategy string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset-path> <request>",
	Short: "Start a session analyzing a dataset against a natural-language request",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	datasetPath, request := args[0], args[1]

	m, cfg, err := buildManager()
	if err != nil {
		return err
	}

	strategyTag := analyzeStrategy
	if strategyTag == "" {
		strategyTag = cfg.AgentMode
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	id, err := m.Start(ctx, datasetPath, request, strategyTag)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	sub, err := m.Subscribe(id)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-sigCh:
			_ = m.Stop(id)
		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			if ev.Kind.Terminal() {
				return nil
			}
		}
	}
}
