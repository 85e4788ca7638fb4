package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newExtractCmd creates the 'extract' subcommand, which runs the pipeline
// for a single URL and prints the resulting record as JSON.
func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <url>",
		Short: "Extracts company data from a single URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtractCommand,
	}
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	id, result := appInstance.Orchestrator.Extract(cmd.Context(), args[0])
	appInstance.Logger.Info("extraction finished",
		zap.String("extraction_id", id),
		zap.Bool("success", result.Success),
		zap.Int64("duration_ms", result.DurationMs),
	)
	if !result.Success {
		return fmt.Errorf("extraction failed: %w", result.Err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}
