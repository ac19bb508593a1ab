package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvtools/dvbatch/internal/cli"
	"github.com/dvtools/dvbatch/internal/engine/batch"
	"github.com/dvtools/dvbatch/pkg/version"
)

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version.GetVersion())
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		assert.NotNil(t, root)
		assert.Equal(t, "dvbatch", root.Use)
	})
}

func TestExtractExitCode(t *testing.T) {
	abort := &batch.AbortError{Index: 3, PID: "doi:4", Err: errors.New("status 500")}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error returns 0", err: nil, want: exitOK},
		{name: "abort returns 2", err: abort, want: exitAborted},
		{name: "wrapped abort returns 2", err: fmt.Errorf("run: %w", abort), want: exitAborted},
		{name: "joined abort returns 2", err: errors.Join(errors.New("outer"), abort), want: exitAborted},
		{name: "generic error returns 1", err: errors.New("invalid configuration"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractExitCode(tt.err))
		})
	}
}
