// Package config provides configuration loading for cardset.
//
// Configuration comes from a YAML file whose ${VAR} placeholders are
// resolved from the process environment and an optional credentials file,
// then from CARDSET_-prefixed environment variables which override file
// values.
package config

import (
	"fmt"
	"math"
	"strings"
)

// ratioTolerance absorbs float noise when checking that split ratios sum
// to 1.0.
const ratioTolerance = 1e-9

// Config holds the complete cardset configuration.
type Config struct {
	CVAT     CVATConfig     `koanf:"cvat"`
	Datasets DatasetsConfig `koanf:"datasets"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// CVATConfig holds the connection settings for the CVAT server.
type CVATConfig struct {
	// URL is the base URL of the CVAT server.
	URL string `koanf:"url"`

	// Auth is sent verbatim as the Authorization header, scheme included,
	// e.g. "Token ${CVAT_TOKEN}".
	Auth Secret `koanf:"auth"`

	// Timeout bounds a single download request (default: 60s).
	Timeout Duration `koanf:"timeout"`

	// MaxRetries is the number of retries after a transient failure
	// (default: 3).
	MaxRetries int `koanf:"max_retries"`
}

// DatasetsConfig locates the dataset repository and configures split
// assignment.
type DatasetsConfig struct {
	// DatasetRepo is the root directory holding one subdirectory per
	// dataset.
	DatasetRepo string `koanf:"dataset_repo"`

	Splits SplitsConfig `koanf:"splits"`
}

// SplitsConfig holds the split ratios and hash seed used by dataset builds.
// The ratios must sum to 1.0.
type SplitsConfig struct {
	Train float64 `koanf:"train"`
	Val   float64 `koanf:"val"`
	Test  float64 `koanf:"test"`
	Seed  int64   `koanf:"seed"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // console, json
}

// Validate validates the configuration.
//
// Returns an error if:
//   - The CVAT URL is set but is not an http(s) URL
//   - The retry count is negative
//   - Any split ratio is negative, or the ratios do not sum to 1.0
//   - The logging level or format is unknown
func (c *Config) Validate() error {
	if c.CVAT.URL != "" && !strings.HasPrefix(c.CVAT.URL, "http://") && !strings.HasPrefix(c.CVAT.URL, "https://") {
		return fmt.Errorf("cvat.url must be an http(s) URL, got %q", c.CVAT.URL)
	}
	if c.CVAT.MaxRetries < 0 {
		return fmt.Errorf("cvat.max_retries cannot be negative: %d", c.CVAT.MaxRetries)
	}

	s := c.Datasets.Splits
	if s.Train < 0 || s.Val < 0 || s.Test < 0 {
		return fmt.Errorf("split ratios cannot be negative: train=%v val=%v test=%v", s.Train, s.Val, s.Test)
	}
	if sum := s.Train + s.Val + s.Test; math.Abs(sum-1.0) >= ratioTolerance {
		return fmt.Errorf("split ratios must sum to 1.0, got %v", sum)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q (expected debug, info, warn or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format %q (expected console or json)", c.Logging.Format)
	}

	return nil
}
