package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cardset/internal/config"
	"github.com/fyrsmithlabs/cardset/internal/dataset"
	"github.com/fyrsmithlabs/cardset/internal/logging"
	"github.com/fyrsmithlabs/cardset/internal/splits"
)

var (
	// dataset command flags
	splitterName string
	pinsDir      string
	dryRun       bool
	skipConfirm  bool
)

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetBuildCmd)
	datasetCmd.AddCommand(datasetRebuildCmd)
	datasetCmd.AddCommand(datasetDeleteCmd)

	// Build-specific flags
	datasetBuildCmd.Flags().StringVar(&splitterName, "splitter", "certid", "Split strategy: hash, certid or pinned")
	datasetBuildCmd.Flags().StringVar(&pinsDir, "pins", "", "Splits directory of a previous build (required with --splitter pinned)")
	datasetBuildCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Discover and plan without writing anything")

	// Rebuild-specific flags
	datasetRebuildCmd.Flags().StringVar(&splitterName, "splitter", "certid", "Split strategy: hash, certid or pinned")
	datasetRebuildCmd.Flags().StringVar(&pinsDir, "pins", "", "Splits directory of a previous build (required with --splitter pinned)")
	datasetRebuildCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip the confirmation prompt")

	// Delete-specific flags
	datasetDeleteCmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip the confirmation prompt")
}

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build, rebuild or delete the canonical dataset",
	Long: `Build, rebuild and delete the canonical dataset tree.

A build scans cvat_raw/ for image and annotation pairs, assigns every record
to a train/val/test split and copies the pairs into canonical/. Builds refuse
to touch a canonical directory that already has content; use rebuild to
replace it.

Examples:
  # Build with the default certificate-id splitter
  cardset dataset build

  # Preview the split assignment without writing anything
  cardset dataset build --dry-run

  # Replace an existing build
  cardset dataset rebuild

  # Re-apply the split assignment of a previous build
  cardset dataset rebuild --splitter pinned --pins /backups/splits`,
}

var datasetBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the canonical dataset from raw exports",
	Long: `Build the canonical dataset tree from the raw CVAT exports.

The canonical directory must be empty or absent; an existing build is never
overwritten.

Examples:
  # Build with the configured ratios and seed
  cardset dataset build

  # Split on the raw stem instead of the certificate id
  cardset dataset build --splitter hash

  # Show what would be built
  cardset dataset build --dry-run`,
	RunE: runDatasetBuild,
}

var datasetRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Delete the canonical dataset and build it again",
	Long: `Delete the canonical dataset tree and build it again from the raw
exports. Asks for confirmation first; pass --yes to skip the prompt.

Examples:
  # Replace the current build
  cardset dataset rebuild

  # No prompt (for scripts)
  cardset dataset rebuild --yes`,
	RunE: runDatasetRebuild,
}

var datasetDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the canonical dataset",
	Long: `Delete the canonical dataset tree. The raw exports under cvat_raw/
are never touched. Asks for confirmation first; pass --yes to skip the
prompt.

Examples:
  cardset dataset delete
  cardset dataset delete --yes`,
	RunE: runDatasetDelete,
}

func runDatasetBuild(cmd *cobra.Command, args []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	defer logging.Sync(rc.logger)

	splitter, err := newSplitter(rc.cfg)
	if err != nil {
		return err
	}
	svc, err := dataset.NewService(nil, rc.logger)
	if err != nil {
		return fmt.Errorf("failed to create dataset service: %w", err)
	}

	if dryRun {
		return runDryRun(svc, rc.layout, splitter)
	}

	canonical, err := svc.Build(context.Background(), rc.layout, splitter)
	if err != nil {
		return fmt.Errorf("failed to build dataset: %w", err)
	}

	fmt.Printf("✓ Dataset built at %s\n", canonical)
	return nil
}

func runDatasetRebuild(cmd *cobra.Command, args []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	defer logging.Sync(rc.logger)

	question := fmt.Sprintf("Are you sure you want to delete the previous dataset at %s?", rc.layout.Canonical())
	if !skipConfirm && !confirm(question) {
		fmt.Println("Aborted")
		return nil
	}

	splitter, err := newSplitter(rc.cfg)
	if err != nil {
		return err
	}
	svc, err := dataset.NewService(nil, rc.logger)
	if err != nil {
		return fmt.Errorf("failed to create dataset service: %w", err)
	}

	canonical, err := svc.Rebuild(context.Background(), rc.layout, splitter)
	if err != nil {
		return fmt.Errorf("failed to rebuild dataset: %w", err)
	}

	fmt.Printf("✓ Dataset rebuilt at %s\n", canonical)
	return nil
}

func runDatasetDelete(cmd *cobra.Command, args []string) error {
	rc, err := newRunContext()
	if err != nil {
		return err
	}
	defer logging.Sync(rc.logger)

	question := fmt.Sprintf("Are you sure you want to delete the dataset at %s?", rc.layout.Canonical())
	if !skipConfirm && !confirm(question) {
		fmt.Println("Aborted")
		return nil
	}

	svc, err := dataset.NewService(nil, rc.logger)
	if err != nil {
		return fmt.Errorf("failed to create dataset service: %w", err)
	}
	if err := svc.Delete(context.Background(), rc.layout); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	fmt.Printf("✓ Dataset at %s deleted\n", rc.layout.Canonical())
	return nil
}

// runDryRun discovers and plans a build, then prints what it would do.
func runDryRun(svc *dataset.Service, layout dataset.Layout, splitter splits.Splitter) error {
	ctx := context.Background()

	records, tasks, err := svc.Discover(ctx, layout)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	plan, err := svc.Plan(ctx, records, tasks, layout, splitter)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	counts := make(map[splits.DatasetSplit]int, len(splits.All()))
	for _, rp := range plan.Records {
		counts[rp.Split]++
	}

	fmt.Println("Dry run: no changes will be made")
	fmt.Printf("Would build: %s\n", layout.Canonical())
	fmt.Printf("  Tasks:   %d\n", len(plan.Tasks))
	fmt.Printf("  Records: %d\n", len(plan.Records))
	fmt.Printf("  Splits:  ")
	for i, split := range splits.All() {
		if i > 0 {
			fmt.Printf(", ")
		}
		fmt.Printf("%s=%d", split, counts[split])
	}
	fmt.Println()
	return nil
}

// newSplitter builds the splitter selected by --splitter from the configured
// ratios and seed.
func newSplitter(cfg *config.Config) (splits.Splitter, error) {
	if splitterName == "pinned" {
		if pinsDir == "" {
			return nil, fmt.Errorf("--pins is required with --splitter pinned")
		}
		return splits.StaticSplitterFromManifests(pinsDir)
	}

	sc := cfg.Datasets.Splits
	policy, err := splits.NewRatioSplitPolicy(sc.Train, sc.Val, sc.Test)
	if err != nil {
		return nil, fmt.Errorf("invalid split ratios: %w", err)
	}

	switch splitterName {
	case "hash":
		return splits.NewHashSplitter(policy, sc.Seed)
	case "certid":
		return splits.NewCertIDSplitter(policy, sc.Seed)
	default:
		return nil, fmt.Errorf("unknown splitter %q (expected hash, certid or pinned)", splitterName)
	}
}

// confirm asks a yes/no question and reads the answer from stdin. Anything
// but y counts as no.
func confirm(question string) bool {
	fmt.Printf("%s (y/N): ", question)
	var response string
	_, _ = fmt.Scanln(&response)
	return strings.ToLower(response) == "y"
}
