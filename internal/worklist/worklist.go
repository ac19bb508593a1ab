// Package worklist reads the ordered list of persistent identifiers a batch
// run works through.
package worklist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads one PID per line from r. Surrounding whitespace is trimmed,
// blank lines are dropped, order and duplicates are preserved. A final line
// without a trailing newline is included. Line length is not limited.
func Parse(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)

	pids := []string{}
	for {
		line, err := br.ReadString('\n')
		if pid := strings.TrimSpace(line); pid != "" {
			pids = append(pids, pid)
		}
		if errors.Is(err, io.EOF) {
			return pids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading worklist: %w", err)
		}
	}
}

// Load reads the worklist file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening worklist %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}
