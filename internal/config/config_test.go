package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		CVAT: CVATConfig{
			URL:  "https://cvat.example.com",
			Auth: "Token x",
		},
		Datasets: DatasetsConfig{
			DatasetRepo: "/data/cardsets",
			Splits:      SplitsConfig{Train: 0.8, Val: 0.1, Test: 0.1, Seed: 42},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:   "empty cvat url is allowed",
			mutate: func(c *Config) { c.CVAT.URL = "" },
		},
		{
			name:    "non-http cvat url",
			mutate:  func(c *Config) { c.CVAT.URL = "ftp://cvat.example.com" },
			wantErr: "http(s) URL",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.CVAT.MaxRetries = -1 },
			wantErr: "cannot be negative",
		},
		{
			name:    "negative ratio",
			mutate:  func(c *Config) { c.Datasets.Splits = SplitsConfig{Train: 1.2, Val: -0.1, Test: -0.1} },
			wantErr: "ratios cannot be negative",
		},
		{
			name:    "ratios do not sum to one",
			mutate:  func(c *Config) { c.Datasets.Splits = SplitsConfig{Train: 0.5, Val: 0.3, Test: 0.3} },
			wantErr: "sum to 1.0",
		},
		{
			name:   "ratios with float noise",
			mutate: func(c *Config) { c.Datasets.Splits = SplitsConfig{Train: 0.1, Val: 0.2, Test: 0.7} },
		},
		{
			name:    "unknown logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "unknown logging format",
			mutate:  func(c *Config) { c.Logging.Format = "logfmt" },
			wantErr: "invalid logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
