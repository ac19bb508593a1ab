package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variables that override values from the config file.
const (
	EnvHome      = "DVBATCH_HOME"
	EnvServerURL = "DVBATCH_SERVER_URL"
	EnvAPIToken  = "DVBATCH_API_TOKEN"
	EnvPIDsFile  = "DVBATCH_PIDS_FILE"
	EnvOutputDir = "DVBATCH_OUTPUT_DIR"
	EnvDelay     = "DVBATCH_DELAY"
	EnvLogLevel  = "DVBATCH_LOG_LEVEL"
	EnvTracing   = "DVBATCH_TRACING"
)

const configFileName = "config.yaml"

// ApplyEnv overlays environment variables onto c. lookup is normally
// os.LookupEnv; tests inject their own.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvServerURL); ok && v != "" {
		c.Dataverse.ServerURL = v
	}
	if v, ok := lookup(EnvAPIToken); ok && v != "" {
		c.Dataverse.APIToken = v
	}
	if v, ok := lookup(EnvPIDsFile); ok && v != "" {
		c.Files.PIDsInputFile = v
	}
	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		c.Files.OutputDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvDelay, err)
		}
		c.Batch.Delay = &d
	}
	if v, ok := lookup(EnvTracing); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTracing, err)
		}
		c.Tracing.Enabled = enabled
	}
	return nil
}

// GetConfigDir returns the path to the dvbatch configuration directory.
func GetConfigDir() (string, error) {
	return configDir(os.LookupEnv)
}

func configDir(lookup func(string) (string, bool)) (string, error) {
	if home, ok := lookup(EnvHome); ok && home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".dvbatch"), nil
}

// DefaultConfigPath returns the config file used when --config is not given.
func DefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureLogDir ensures the directory for the configured log file exists.
// If no log file is configured, it does nothing.
func EnsureLogDir(lc LoggingConfig) error {
	if lc.File == "" {
		return nil
	}
	logDir := filepath.Dir(lc.File)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}

// EnsureOutputDir creates the directory that receives mutation logs.
func EnsureOutputDir(fc FilesConfig) error {
	if err := os.MkdirAll(fc.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", fc.OutputDir, err)
	}
	return nil
}
