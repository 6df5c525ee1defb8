package main

import (
	"fmt"
	"os"

	"github.com/codenerd-labs/auditor/internal/config"
	"github.com/codenerd-labs/auditor/internal/engine"
	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/reporter"
	"github.com/spf13/cobra"
)

var (
	scanScope  string
	scanFormat string
	scanRoot   string
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "run a one-shot scan against a project directory and print the report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanScope, "scope", "medium", "project scope: small, medium, large")
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "report format: text or json")
}

func runScan(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	scope, ok := model.ParseScope(scanScope)
	if !ok {
		return fmt.Errorf("unknown scope %q", scanScope)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	report, err := engine.Scan(root, engine.Config{
		ProjectScope: scope,
		RulesPath:    cfg.RulesPath,
		ExcludedDirs: cfg.ExcludedDirs,
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	switch scanFormat {
	case "json":
		data, err := reporter.JSON(report)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		fmt.Print(reporter.Text(report))
	}

	if report.Summary.Failed > 0 {
		os.Exit(1)
	}
	return nil
}
