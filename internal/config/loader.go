package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	goyaml "gopkg.in/yaml.v3"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	envPrefix = "CARDSET_"
)

// varPattern matches ${NAME} placeholders in the raw config text.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the YAML configuration at configPath, resolves its ${VAR}
// placeholders and applies environment overrides.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CARDSET_CVAT_URL, CARDSET_DATASETS_DATASET_REPO, ...)
//  2. YAML config file, after placeholder resolution
//  3. Hardcoded defaults
//
// Placeholders resolve from the process environment first, then from the
// credentials file: a flat YAML map of string values. A missing credentials
// file is logged and skipped; a placeholder that resolves nowhere is an
// error naming the variable.
func Load(configPath, credentialsPath string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	credentials, err := loadCredentials(credentialsPath, logger)
	if err != nil {
		return nil, err
	}

	content, err = resolveVariables(content, credentials)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	// Override with environment variables.
	// Example: CARDSET_CVAT_URL -> cvat.url
	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envToKey maps a CARDSET_* environment variable to its config key.
//
//	CARDSET_CVAT_URL              -> cvat.url
//	CARDSET_CVAT_MAX_RETRIES      -> cvat.max_retries
//	CARDSET_DATASETS_DATASET_REPO -> datasets.dataset_repo
//	CARDSET_DATASETS_SPLITS_SEED  -> datasets.splits.seed
//
// The first underscore separates the section from the field; field names
// keep their underscores.
func envToKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	section, field := parts[0], parts[1]

	// datasets.splits is the only doubly nested section.
	if section == "datasets" && strings.HasPrefix(field, "splits_") {
		return "datasets.splits." + strings.TrimPrefix(field, "splits_")
	}

	return section + "." + field
}

// readConfigFile reads configPath, rejecting oversized files.
func readConfigFile(configPath string) ([]byte, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// loadCredentials reads the flat credentials YAML at path. Every value must
// be a string. A missing file is not an error; the loader falls back to the
// process environment alone.
func loadCredentials(path string, logger *zap.Logger) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("credentials file not found, resolving variables from environment only",
			zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat credentials file: %w", err)
	}
	if err := validateCredentialsFile(info); err != nil {
		return nil, fmt.Errorf("credentials file validation failed: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var raw map[string]any
	if err := goyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	credentials := make(map[string]string, len(raw))
	for key, value := range raw {
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("credential %q must be a string, got %T", key, value)
		}
		credentials[key] = str
	}
	return credentials, nil
}

// validateCredentialsFile checks permissions and size. The file holds
// secrets, so group or world access is rejected outright.
func validateCredentialsFile(info os.FileInfo) error {
	// Skip the permission check on Windows (different permission model).
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0o600 && perm != 0o400 {
			return fmt.Errorf("insecure credentials file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("credentials file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// resolveVariables substitutes every ${VAR} in content. The process
// environment wins over the credentials file; an unresolvable variable fails
// the load.
func resolveVariables(content []byte, credentials map[string]string) ([]byte, error) {
	var missing string
	resolved := varPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		name := string(varPattern.FindSubmatch(match)[1])
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if value, ok := credentials[name]; ok {
			return []byte(value)
		}
		if missing == "" {
			missing = name
		}
		return match
	})
	if missing != "" {
		return nil, fmt.Errorf("undefined variable %q in config", missing)
	}
	return resolved, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// CVAT defaults
	if cfg.CVAT.Timeout == 0 {
		cfg.CVAT.Timeout = Duration(60 * time.Second)
	}
	if cfg.CVAT.MaxRetries == 0 {
		cfg.CVAT.MaxRetries = 3
	}

	// Split defaults: 80/10/10 under seed 42
	s := &cfg.Datasets.Splits
	if s.Train == 0 && s.Val == 0 && s.Test == 0 {
		s.Train, s.Val, s.Test = 0.8, 0.1, 0.1
	}
	if s.Seed == 0 {
		s.Seed = 42
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
