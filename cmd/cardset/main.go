// Package main implements the cardset CLI for fetching CVAT task exports
// and building canonical card-scan datasets.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cardset/internal/config"
	"github.com/fyrsmithlabs/cardset/internal/dataset"
	"github.com/fyrsmithlabs/cardset/internal/logging"
)

var (
	// global flags
	configPath      string
	credentialsPath string
	datasetRepo     string
	debugMode       bool

	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cardset",
	Short: "Build canonical card-scan datasets from CVAT task exports",
	Long: `cardset ingests CVAT task exports of graded-card scans and builds a
canonical dataset tree with reproducible train/val/test splits.

A dataset repository looks like:

  <repo>/
    cvat_raw/      raw task exports (cardset fetch)
    canonical/     built dataset (cardset dataset build)`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "credentials.yaml", "Path to credentials file")
	rootCmd.PersistentFlags().StringVar(&datasetRepo, "dataset-repo", "", "Dataset repository directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

// runContext carries the pieces every command needs.
type runContext struct {
	cfg    *config.Config
	logger *zap.Logger
	layout dataset.Layout
}

// newRunContext loads configuration, applies the global flag overrides and
// builds the logger the command will work with. Config loading itself logs
// through a plain console logger; the configured level is not known yet at
// that point.
func newRunContext() (*runContext, error) {
	bootLogger, err := logging.New(logging.Config{Level: "info", Format: "console"})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load(configPath, credentialsPath, bootLogger)
	if err != nil {
		return nil, err
	}
	if datasetRepo != "" {
		cfg.Datasets.DatasetRepo = datasetRepo
	}
	if cfg.Datasets.DatasetRepo == "" {
		return nil, errors.New("no dataset repository configured: set datasets.dataset_repo or pass --dataset-repo")
	}

	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &runContext{
		cfg:    cfg,
		logger: logger,
		layout: dataset.Layout{Root: cfg.Datasets.DatasetRepo},
	}, nil
}
