package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvtools/dvbatch/internal/config"
)

// writeOverlay is a test helper that writes YAML content to a temp file
// and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func validConfig() *config.Config {
	cfg := config.New()
	cfg.Dataverse.ServerURL = "https://demo.dataverse.example"
	cfg.Dataverse.APIToken = "token"
	cfg.Files.PIDsInputFile = "pids.txt"
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	cfg := config.New()
	assert.Equal(t, config.DefaultTimeout, cfg.Dataverse.Timeout)
	assert.Equal(t, ".", cfg.Files.OutputDir)
	assert.Nil(t, cfg.Batch.Delay)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "dvbatch", cfg.Tracing.ServiceName)
}

func TestShallowMergeYAML_SectionOverride(t *testing.T) {
	target := config.New()
	overlay := writeOverlay(t, `
dataverse:
  server_url: https://dv.example
  api_token: abc
files:
  pids_input_file: /work/pids.txt
batch:
  delay: 2500ms
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, "https://dv.example", target.Dataverse.ServerURL)
	assert.Equal(t, "abc", target.Dataverse.APIToken)
	// Keys absent from a present section keep their defaults.
	assert.Equal(t, config.DefaultTimeout, target.Dataverse.Timeout)
	assert.Equal(t, ".", target.Files.OutputDir)
	require.NotNil(t, target.Batch.Delay)
	assert.Equal(t, 2500*time.Millisecond, *target.Batch.Delay)
	// Sections absent from the file are untouched.
	assert.Equal(t, "info", target.Logging.Level)
}

func TestShallowMergeYAML_UnknownKeysIgnored(t *testing.T) {
	target := config.New()
	overlay := writeOverlay(t, `
unknown_section:
  foo: bar
logging:
  level: debug
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, "debug", target.Logging.Level)
}

func TestShallowMergeYAML_EmptyFile(t *testing.T) {
	target := config.New()
	overlay := writeOverlay(t, "# only a comment\n")

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, config.New(), target)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		err := config.ShallowMergeYAML(nil, "x.yaml")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		err := config.ShallowMergeYAML(config.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading overlay file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		overlay := writeOverlay(t, "dataverse: [unterminated\n")
		err := config.ShallowMergeYAML(config.New(), overlay)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing overlay YAML")
	})

	t.Run("bad duration", func(t *testing.T) {
		overlay := writeOverlay(t, "dataverse:\n  timeout: soon\n")
		err := config.ShallowMergeYAML(config.New(), overlay)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `section "dataverse"`)
	})
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_DefaultPathMissingIsFine(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(config.EnvServerURL, "https://env.example")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.Dataverse.ServerURL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeOverlay(t, `
dataverse:
  server_url: https://file.example
  api_token: from-file
`)
	t.Setenv(config.EnvAPIToken, "from-env")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example", cfg.Dataverse.ServerURL)
	assert.Equal(t, "from-env", cfg.Dataverse.APIToken)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		config.EnvServerURL: "https://x.example",
		config.EnvPIDsFile:  "/in.txt",
		config.EnvOutputDir: "/out",
		config.EnvDelay:     "750ms",
		config.EnvLogLevel:  "debug",
		config.EnvTracing:   "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := config.New()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "https://x.example", cfg.Dataverse.ServerURL)
	assert.Equal(t, "/in.txt", cfg.Files.PIDsInputFile)
	assert.Equal(t, "/out", cfg.Files.OutputDir)
	require.NotNil(t, cfg.Batch.Delay)
	assert.Equal(t, 750*time.Millisecond, *cfg.Batch.Delay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "delay", key: config.EnvDelay, val: "fast"},
		{name: "tracing", key: config.EnvTracing, val: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == tt.key {
					return tt.val, true
				}
				return "", false
			}
			err := config.New().ApplyEnv(lookup)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	neg := -time.Second

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{
			name:    "missing server",
			mutate:  func(c *config.Config) { c.Dataverse.ServerURL = "" },
			wantErr: config.ErrMissingServerURL,
		},
		{
			name:    "relative server",
			mutate:  func(c *config.Config) { c.Dataverse.ServerURL = "dv.example" },
			wantErr: config.ErrInvalidServerURL,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *config.Config) { c.Dataverse.Timeout = 0 },
			wantErr: config.ErrInvalidTimeout,
		},
		{
			name:    "missing token",
			mutate:  func(c *config.Config) { c.Dataverse.APIToken = "" },
			wantErr: config.ErrMissingAPIToken,
		},
		{
			name:    "missing pids file",
			mutate:  func(c *config.Config) { c.Files.PIDsInputFile = "" },
			wantErr: config.ErrMissingPIDsFile,
		},
		{
			name:    "missing output dir",
			mutate:  func(c *config.Config) { c.Files.OutputDir = "" },
			wantErr: config.ErrMissingOutputDir,
		},
		{
			name:    "negative delay",
			mutate:  func(c *config.Config) { c.Batch.Delay = &neg },
			wantErr: config.ErrNegativeDelay,
		},
		{
			name:    "incomplete archive",
			mutate:  func(c *config.Config) { c.Archive.Enabled = true },
			wantErr: config.ErrArchiveIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_LogOutput(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Output = "syslog"
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidLogOutput)

	cfg.Logging.Output = "file"
	assert.ErrorIs(t, cfg.Validate(), config.ErrMissingLogFile)

	cfg.Logging.File = filepath.Join(t.TempDir(), "dvbatch.log")
	assert.NoError(t, cfg.Validate())

	cfg.Logging.Output = "stdout"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := config.New()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingServerURL)
	assert.ErrorIs(t, err, config.ErrMissingAPIToken)
	assert.ErrorIs(t, err, config.ErrMissingPIDsFile)
}

func TestRedacted(t *testing.T) {
	d := time.Second
	cfg := validConfig()
	cfg.Archive.SecretKey = "s3cr3t"
	cfg.Batch.Delay = &d

	r := cfg.Redacted()
	assert.NotEqual(t, "token", r.Dataverse.APIToken)
	assert.NotEqual(t, "s3cr3t", r.Archive.SecretKey)
	assert.Equal(t, "token", cfg.Dataverse.APIToken, "source config must not change")

	*r.Batch.Delay = time.Hour
	assert.Equal(t, time.Second, *cfg.Batch.Delay)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, config.WriteDefault(path, false))
	err := config.WriteDefault(path, false)
	require.ErrorIs(t, err, config.ErrConfigExists)
	require.NoError(t, config.WriteDefault(path, true))

	// The template must load cleanly.
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Dataverse.ServerURL)
	assert.Equal(t, "pids.txt", cfg.Files.PIDsInputFile)
	assert.Equal(t, 60*time.Second, cfg.Dataverse.Timeout)
}

func TestMarshal_RoundTripsDurations(t *testing.T) {
	out, err := validConfig().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "timeout: 1m0s")
}

func TestToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "debug", Format: "json"}
	assert.Equal(t, "stderr", lc.ToLoggingConfig().Output)
	assert.False(t, lc.ToLoggingConfig().Caller)

	lc.File = "/var/log/dvbatch.log"
	got := lc.ToLoggingConfig()
	assert.Equal(t, "file", got.Output)
	assert.Equal(t, "/var/log/dvbatch.log", got.File)

	lc.Output = "stdout"
	lc.Caller = true
	got = lc.ToLoggingConfig()
	assert.Equal(t, "stdout", got.Output)
	assert.True(t, got.Caller)
}

func TestLoggingOutputAndCallerFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  output: stdout\n  caller: true\n"), 0o600))

	cfg, err := config.LoadWithEnv(path, func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.True(t, cfg.Logging.Caller)
	assert.Equal(t, "info", cfg.Logging.Level, "defaults survive the merge")

	lc := cfg.Logging.ToLoggingConfig()
	assert.Equal(t, "stdout", lc.Output)
	assert.True(t, lc.Caller)
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()

	require.NoError(t, config.EnsureLogDir(config.LoggingConfig{}))
	require.NoError(t, config.EnsureLogDir(config.LoggingConfig{File: filepath.Join(base, "logs", "x.log")}))
	assert.DirExists(t, filepath.Join(base, "logs"))

	require.NoError(t, config.EnsureOutputDir(config.FilesConfig{OutputDir: filepath.Join(base, "out")}))
	assert.DirExists(t, filepath.Join(base, "out"))
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)

	p, err := config.DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml"), p)
}

func TestLoadWithEnv_InjectedLookup(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"),
		[]byte("dataverse:\n  server_url: https://file.example.org\n"), 0o600))

	env := map[string]string{
		config.EnvHome:     home,
		config.EnvAPIToken: "from-lookup",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := config.LoadWithEnv("", lookup)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.org", cfg.Dataverse.ServerURL)
	assert.Equal(t, "from-lookup", cfg.Dataverse.APIToken)
}
