package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strykerlabs/webstryker/internal/export"
)

// newExportCmd creates the 'export' subcommand, which writes stored records
// to stdout or a file.
func newExportCmd() *cobra.Command {
	var (
		format string
		limit  int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exports stored company records as CSV or JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExportCommand(cmd, format, limit, out)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: csv or json")
	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum number of records")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func runExportCommand(cmd *cobra.Command, format string, limit int, out string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	records, err := appInstance.Store.GetRecent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("fetch records: %w", err)
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		return export.WriteCSV(w, records)
	case "json":
		return export.WriteJSON(w, records)
	default:
		return fmt.Errorf("unknown format %q: must be csv or json", format)
	}
}
