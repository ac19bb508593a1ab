// Package config loads dvbatch configuration from a YAML file, environment
// variables and defaults, and validates the result before a run.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dvtools/dvbatch/internal/logging"
)

// Defaults applied by New.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultOutputDir   = "."
	DefaultServiceName = "dvbatch"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"

	redacted = "********"
)

// Validation errors.
var (
	ErrMissingServerURL  = errors.New("dataverse.server_url is required")
	ErrInvalidServerURL  = errors.New("dataverse.server_url must be an absolute http(s) URL")
	ErrMissingAPIToken   = errors.New("dataverse.api_token is required")
	ErrInvalidTimeout    = errors.New("dataverse.timeout must be greater than zero")
	ErrMissingPIDsFile   = errors.New("files.pids_input_file is required")
	ErrMissingOutputDir  = errors.New("files.output_dir is required")
	ErrNegativeDelay     = errors.New("batch.delay must not be negative")
	ErrArchiveIncomplete = errors.New("archive requires endpoint, bucket, access_key and secret_key")
	ErrInvalidLogOutput  = errors.New("logging.output must be stderr, stdout or file")
	ErrMissingLogFile    = errors.New("logging.file is required when logging.output is file")
)

// Config is the complete dvbatch configuration. It is built once per
// process and handed to constructors by value or pointer; nothing reads it
// from package state.
type Config struct {
	Dataverse DataverseConfig `yaml:"dataverse"`
	Files     FilesConfig     `yaml:"files"`
	Batch     BatchConfig     `yaml:"batch"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// DataverseConfig points at the dataset service.
type DataverseConfig struct {
	ServerURL string        `yaml:"server_url"`
	APIToken  string        `yaml:"api_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

// FilesConfig holds the worklist input and mutation log output locations.
type FilesConfig struct {
	PIDsInputFile string `yaml:"pids_input_file"`
	OutputDir     string `yaml:"output_dir"`
}

// BatchConfig controls pacing. A nil Delay means "use the task's default".
type BatchConfig struct {
	Delay *time.Duration `yaml:"delay,omitempty"`
}

// TracingConfig enables OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// ArchiveConfig describes the S3-compatible bucket that receives the
// mutation log after a run.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// New returns a Config populated with defaults only.
func New() *Config {
	return &Config{
		Dataverse: DataverseConfig{
			Timeout: DefaultTimeout,
		},
		Files: FilesConfig{
			OutputDir: DefaultOutputDir,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path and the process
// environment. An empty path selects DefaultConfigPath; a missing default
// file is not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if !explicit {
		dir, err := configDir(lookup)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, configFileName)
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.ApplyEnv(lookup)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := ShallowMergeYAML(cfg, path); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConnection checks only what is needed to talk to the server.
func (c *Config) ValidateConnection() error {
	if c.Dataverse.ServerURL == "" {
		return ErrMissingServerURL
	}
	u, err := url.Parse(c.Dataverse.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidServerURL, c.Dataverse.ServerURL)
	}
	if c.Dataverse.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// Validate checks everything a batch run needs. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ValidateConnection(); err != nil {
		errs = append(errs, err)
	}
	if c.Dataverse.APIToken == "" {
		errs = append(errs, ErrMissingAPIToken)
	}
	if c.Files.PIDsInputFile == "" {
		errs = append(errs, ErrMissingPIDsFile)
	}
	if c.Files.OutputDir == "" {
		errs = append(errs, ErrMissingOutputDir)
	}
	if c.Batch.Delay != nil && *c.Batch.Delay < 0 {
		errs = append(errs, ErrNegativeDelay)
	}
	if !validLogOutput(c.Logging.Output) {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidLogOutput, c.Logging.Output))
	} else if c.Logging.Output == logging.OutputFile && c.Logging.File == "" {
		errs = append(errs, ErrMissingLogFile)
	}
	if c.Archive.Enabled {
		a := c.Archive
		if a.Endpoint == "" || a.Bucket == "" || a.AccessKey == "" || a.SecretKey == "" {
			errs = append(errs, ErrArchiveIncomplete)
		}
	}

	return errors.Join(errs...)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	if c.Batch.Delay != nil {
		d := *c.Batch.Delay
		out.Batch.Delay = &d
	}
	return &out
}

// Redacted returns a copy safe to print: credentials are masked.
func (c *Config) Redacted() Config {
	out := *c.Clone()
	if out.Dataverse.APIToken != "" {
		out.Dataverse.APIToken = redacted
	}
	if out.Archive.SecretKey != "" {
		out.Archive.SecretKey = redacted
	}
	return out
}
