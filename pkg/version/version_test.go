package version

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion_IsSemver(t *testing.T) {
	v, err := semver.NewVersion(GetVersion())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v.Major())
}

func TestGetCommit_NotEmpty(t *testing.T) {
	assert.NotEmpty(t, GetCommit())
}
