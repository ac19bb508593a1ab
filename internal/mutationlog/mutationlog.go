// Package mutationlog writes the per-run record of datasets that were
// actually changed. Each run gets its own file, named after the run's start
// time, and every line is synced to disk before the next dataset is touched.
package mutationlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	filePrefix      = "pids_mutated_"
	fileExt         = ".txt"
	timestampLayout = "20060102_150405"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("mutationlog: log is closed")

// Log is an append-only file of PIDs, one per line.
type Log struct {
	file  *os.File
	path  string
	count int
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timestampLayout) + fileExt
}

// Create makes a fresh log file in dir for a run started at t. It fails if
// the file already exists.
func Create(dir string, t time.Time) (*Log, error) {
	path := filepath.Join(dir, FileName(t))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mutationlog: create %s: %w", path, err)
	}
	return &Log{file: f, path: path}, nil
}

// Record appends pid and syncs the file so the line survives a later crash
// or abort.
func (l *Log) Record(pid string) error {
	if l == nil || l.file == nil {
		return ErrClosed
	}
	if strings.ContainsAny(pid, "\r\n") {
		return fmt.Errorf("mutationlog: pid %q contains a line break", pid)
	}
	if _, err := l.file.WriteString(pid + "\n"); err != nil {
		return fmt.Errorf("mutationlog: write: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("mutationlog: sync: %w", err)
	}
	l.count++
	return nil
}

// Path returns the file location.
func (l *Log) Path() string { return l.path }

// Count returns how many PIDs were recorded.
func (l *Log) Count() int { return l.count }

// Close releases the file handle. It is safe to call more than once.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
