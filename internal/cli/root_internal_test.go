package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

// writeLogFileConfig writes a config that logs to a file in a temp dir.
func writeLogFileConfig(t *testing.T) (cfgPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	logPath = filepath.Join(dir, "logs", "dvbatch.log")
	pids := filepath.Join(dir, "pids.txt")
	require.NoError(t, os.WriteFile(pids, []byte("doi:1\n"), 0o600))

	cfgPath = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`dataverse:
  server_url: http://127.0.0.1:1
  api_token: token
files:
  pids_input_file: %s
  output_dir: %s
logging:
  level: debug
  format: json
  file: %s
`, pids, filepath.Join(dir, "out"), logPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, logPath
}

func TestLogFileClosedAfterFailingCommand(t *testing.T) {
	cfgPath, logPath := writeLogFileConfig(t)

	cmd, opts := newRootCmd("test", noEnv)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--config", cfgPath, "run", "remove-locks", "--server", "not-a-url"})

	require.Error(t, cmd.Execute())
	require.NotNil(t, opts.logResult)
	assert.True(t, opts.logResult.UsingFile)
	assert.False(t, opts.logResult.Open(), "log file must be closed when RunE fails")
	assert.FileExists(t, logPath)
}

func TestLogFileClosedAfterSuccessfulCommand(t *testing.T) {
	cfgPath, _ := writeLogFileConfig(t)

	cmd, opts := newRootCmd("test", noEnv)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--config", cfgPath, "tasks"})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, opts.logResult)
	assert.False(t, opts.logResult.Open())
}
