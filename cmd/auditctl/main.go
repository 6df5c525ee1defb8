// Command auditctl is the CLI entry point for the compliance auditor:
// it can run a one-shot scan, serve the HTTP/WebSocket API, or apply
// database migrations. Structured as a cobra command tree the way the
// teacher's cmd/nerd/main.go registers subcommands across files.
package main

import (
	"fmt"
	"os"

	"github.com/codenerd-labs/auditor/internal/config"
	"github.com/codenerd-labs/auditor/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "auditctl",
	Short: "auditctl audits a repository against a declarative compliance rule catalog",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logging.Configure(debug || cfg.Logging.Debug); err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to auditor config YAML")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd, serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}
