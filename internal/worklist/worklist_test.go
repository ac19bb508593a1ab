package worklist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "only blanks", input: "\n  \n\t\n", want: []string{}},
		{name: "simple", input: "doi:1\ndoi:2\n", want: []string{"doi:1", "doi:2"}},
		{name: "no trailing newline", input: "doi:1\ndoi:2", want: []string{"doi:1", "doi:2"}},
		{name: "trims whitespace", input: "  doi:1  \r\n\tdoi:2\n", want: []string{"doi:1", "doi:2"}},
		{name: "drops blank lines between", input: "doi:1\n\n\ndoi:2\n", want: []string{"doi:1", "doi:2"}},
		{name: "keeps duplicates and order", input: "doi:3\ndoi:1\ndoi:3\n", want: []string{"doi:3", "doi:1", "doi:3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_LongLine(t *testing.T) {
	long := "doi:" + strings.Repeat("x", 200*1024)
	got, err := Parse(strings.NewReader("doi:1\n" + long + "\ndoi:2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"doi:1", long, "doi:2"}, got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParse_ReadError(t *testing.T) {
	_, err := Parse(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pids.txt")
	require.NoError(t, os.WriteFile(path, []byte("doi:10.5072/FK2/A\n\ndoi:10.5072/FK2/B\n"), 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"doi:10.5072/FK2/A", "doi:10.5072/FK2/B"}, got)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
