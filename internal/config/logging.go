package config

import (
	"github.com/dvtools/dvbatch/internal/logging"
)

// LoggingConfig is the logging section of the config file.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is stderr, stdout or file. Empty means file when File is set,
	// stderr otherwise.
	Output string `yaml:"output,omitempty"`
	File   string `yaml:"file"`
	Caller bool   `yaml:"caller"`
}

// ToLoggingConfig converts config.LoggingConfig to logging.Config for use with
// the internal/logging package. This bridges the configuration system to the
// logging infrastructure.
//
// The conversion applies these rules:
//   - Level, Format, File and Caller are copied directly
//   - An explicit Output is kept
//   - Otherwise Output becomes "file" when File is set and "stderr" when not
func (lc *LoggingConfig) ToLoggingConfig() logging.Config {
	output := lc.Output
	if output == "" {
		output = logging.OutputStderr
		if lc.File != "" {
			output = logging.OutputFile
		}
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
		Caller: lc.Caller,
	}
}

func validLogOutput(output string) bool {
	switch output {
	case "", logging.OutputStderr, logging.OutputStdout, logging.OutputFile:
		return true
	}
	return false
}
