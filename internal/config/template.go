package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when the file exists and
// overwrite was not requested.
var ErrConfigExists = errors.New("config file already exists")

const defaultConfigYAML = `# dvbatch configuration
dataverse:
  # Base URL of the Dataverse installation, without a trailing slash.
  server_url: http://localhost:8080
  # API token sent as X-Dataverse-key. Prefer DVBATCH_API_TOKEN over storing it here.
  api_token: ""
  timeout: 60s

files:
  # Text file with one persistent identifier (e.g. doi:10.5072/FK2/ABCDEF) per line.
  pids_input_file: pids.txt
  # Directory receiving pids_mutated_<timestamp>.txt for every run.
  output_dir: .

batch:
  # Pause between datasets. Leave unset to use the task default
  # (5s for publish, 1.5s for everything else).
  # delay: 1.5s

logging:
  level: info
  # json or console
  format: console
  # stderr, stdout or file. Leave empty to log to file when file is set.
  output: ""
  file: ""
  # Add the source file and line to every entry.
  caller: false

tracing:
  enabled: false
  # OTLP/HTTP endpoint such as localhost:4318. Empty exports to stdout.
  endpoint: ""
  service_name: dvbatch

archive:
  # Upload the mutation log to an S3-compatible bucket after each run.
  enabled: false
  endpoint: ""
  access_key: ""
  secret_key: ""
  bucket: ""
  region: ""
  use_ssl: true
  prefix: dvbatch/
`

// DefaultConfigYAML returns the commented template written by "config init".
func DefaultConfigYAML() string {
	return defaultConfigYAML
}

// WriteDefault writes the default template to path, creating parent
// directories as needed.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}
	return out, nil
}
