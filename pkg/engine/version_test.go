package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAPIVersionString(t *testing.T) {
	assert.Equal(t, "v2.1", clientAPIVersionString(2<<16|1))
	assert.Equal(t, "v1.109", clientAPIVersionString(1<<16|109))
	assert.Equal(t, "v0.0", clientAPIVersionString(0))
}

func TestCheckVersion(t *testing.T) {
	require.NoError(t, CheckVersion("v2.1", "v2.0"))
	require.NoError(t, CheckVersion("v2.0", "v2.0"))
	require.NoError(t, CheckVersion("2.1", "2.0"), "bare versions are accepted")

	require.ErrorIs(t, CheckVersion("v1.109", "v2.0"), ErrVersionTooOld)
	require.ErrorIs(t, CheckVersion("v1.9", ""), ErrVersionTooOld,
		"empty minimum falls back to the default floor")

	require.NoError(t, CheckVersion("v2.0", ""))

	require.Error(t, CheckVersion("garbage", "v2.0"))
	require.Error(t, CheckVersion("v2.0", "garbage"))
}
