package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/media/pkg/gpu"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "media.yaml"), []byte(content), 0o644))
	return dir
}

func TestResolve_MissingFileUsesDefaults(t *testing.T) {
	r, err := Resolve(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, int32(640), r.Width)
	assert.Equal(t, int32(480), r.Height)
	assert.Equal(t, time.Duration(0), r.FlushTimeout)
	assert.Equal(t, gpu.MaxThreadPriority-2, r.GPUPriority)
	assert.Equal(t, "v2.0", r.EngineMinVersion)
	assert.False(t, r.Verbose)
}

func TestResolve_FullFile(t *testing.T) {
	dir := writeConfig(t, `
renderer:
  width: 1280
  height: 720
  flush_timeout: 250ms
  gpu_priority: 7
engine:
  library: /opt/media/libmpv.so.2
  min_version: v2.1
log:
  verbose: true
`)

	r, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, int32(1280), r.Width)
	assert.Equal(t, int32(720), r.Height)
	assert.Equal(t, 250*time.Millisecond, r.FlushTimeout)
	assert.Equal(t, 7, r.GPUPriority)
	assert.Equal(t, "/opt/media/libmpv.so.2", r.EngineLibrary)
	assert.Equal(t, "v2.1", r.EngineMinVersion)
	assert.True(t, r.Verbose)
}

func TestResolve_ZeroPriorityIsExplicit(t *testing.T) {
	dir := writeConfig(t, "renderer:\n  gpu_priority: 0\n")

	r, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, r.GPUPriority, "explicit zero must not fall back to the default")
}

func TestResolve_Invalid(t *testing.T) {
	cases := map[string]string{
		"negative size":      "renderer:\n  width: -1\n  height: 480\n",
		"partial size":       "renderer:\n  width: 640\n",
		"bad flush timeout":  "renderer:\n  flush_timeout: soon\n",
		"negative timeout":   "renderer:\n  flush_timeout: -1s\n",
		"priority too high":  "renderer:\n  gpu_priority: 8\n",
		"priority too low":   "renderer:\n  gpu_priority: -8\n",
		"bad engine version": "engine:\n  min_version: latest\n",
		"malformed yaml":     "renderer: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := writeConfig(t, content)
			_, err := Resolve(dir)
			require.Error(t, err)
		})
	}
}
