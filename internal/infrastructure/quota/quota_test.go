package quota

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirEstimator_Estimate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 1000), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 24), 0o600))

	est, err := NewDirEstimator(dir, 0).Estimate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1024), est.Usage)
	assert.GreaterOrEqual(t, est.Quota, est.Usage)
}

func TestDirEstimator_Cap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 10), 0o600))

	est, err := NewDirEstimator(dir, 64).Estimate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), est.Usage)
	assert.Equal(t, int64(64), est.Quota)
}

func TestVolumeStats(t *testing.T) {
	total, used, available, err := VolumeStats(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, total)
	assert.GreaterOrEqual(t, used, int64(0))
	assert.GreaterOrEqual(t, available, int64(0))
}

func TestVolumeStats_MissingPath(t *testing.T) {
	_, _, _, err := VolumeStats(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
