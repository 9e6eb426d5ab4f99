// Command dataagent is the CLI host for the data-analysis agent runtime:
// it wires config, the LLM client, the tool registry, and the sandbox into
// a manager.Manager and exposes it through an analyze/health command tree.
// Grounded on ebrakke-gopherclaw/cmd/gopherclaw's cobra command-tree style
// (a root command, one file per subcommand registering itself via init,
// RunE building dependencies then delegating to an internal package).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dataagent",
	Short: "Autonomous data-analysis agent runtime",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
