package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cardset/internal/cvat"
	"github.com/fyrsmithlabs/cardset/internal/logging"
)

var (
	// fetch command flags
	fetchFormat string
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "LabelMe 3.0", "Annotation format to export")
}

// fetchCmd downloads CVAT task exports into the raw directory
var fetchCmd = &cobra.Command{
	Use:   "fetch <task-id>...",
	Short: "Download CVAT task exports",
	Long: `Download one or more task exports from the configured CVAT server and
extract them into the dataset repository's cvat_raw/ directory.

Examples:
  # Fetch one task
  cardset fetch 123

  # Fetch several tasks in one go
  cardset fetch 123 124 125

  # Request a different annotation format
  cardset fetch 123 --format "CVAT for images 1.1"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	taskIDs := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid task id %q", arg)
		}
		taskIDs = append(taskIDs, id)
	}

	rc, err := newRunContext()
	if err != nil {
		return err
	}
	defer logging.Sync(rc.logger)

	client, err := cvat.NewClient(cvat.Config{
		URL:        rc.cfg.CVAT.URL,
		Auth:       rc.cfg.CVAT.Auth.Value(),
		Timeout:    rc.cfg.CVAT.Timeout.Duration(),
		MaxRetries: rc.cfg.CVAT.MaxRetries,
	}, rc.logger)
	if err != nil {
		return fmt.Errorf("failed to create CVAT client: %w", err)
	}

	rawRoot := rc.layout.CVATRaw()
	if err := os.MkdirAll(rawRoot, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", rawRoot, err)
	}

	for _, id := range taskIDs {
		taskDir, err := client.DownloadTask(context.Background(), id, fetchFormat, rawRoot)
		if err != nil {
			return fmt.Errorf("failed to download task %d: %w", id, err)
		}
		fmt.Printf("✓ Task %d downloaded to %s\n", id, taskDir)
	}

	return nil
}
