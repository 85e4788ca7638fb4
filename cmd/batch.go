package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// newBatchCmd creates the 'batch' subcommand, which processes URLs from
// arguments or a file, one per line.
func newBatchCmd() *cobra.Command {
	var urlFile string
	cmd := &cobra.Command{
		Use:   "batch [urls...]",
		Short: "Extracts company data from multiple URLs concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchCommand(cmd, args, urlFile)
		},
	}
	cmd.Flags().StringVar(&urlFile, "file", "", "file with one URL per line")
	return cmd
}

func runBatchCommand(cmd *cobra.Command, args []string, urlFile string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	urls := args
	if urlFile != "" {
		fileURLs, err := readURLFile(urlFile)
		if err != nil {
			return err
		}
		urls = append(urls, fileURLs...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given; pass them as arguments or via --file")
	}

	result := appInstance.Batches.Run(cmd.Context(), urls)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode batch result: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("batch %s: all %d URLs failed", result.BatchID, result.Total)
	}
	return nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return urls, nil
}
