package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) read(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(e.fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestRescanScansEveryHost(t *testing.T) {
	env := newTestEnv(t, "")
	for _, h := range []string{"host0", "host1"} {
		dir := filepath.Join("/sys/class/scsi_host", h)
		require.NoError(t, env.fs.MkdirAll(dir, 0o755))
		require.NoError(t, afero.WriteFile(env.fs, filepath.Join(dir, "scan"), nil, 0o200))
	}

	require.NoError(t, env.app.runRescan(true))

	assert.Equal(t, "- - -\n", env.read(t, "/sys/class/scsi_host/host0/scan"))
	assert.Equal(t, "- - -\n", env.read(t, "/sys/class/scsi_host/host1/scan"))
	assert.Contains(t, env.out.String(), "scan host1: ok")
	assert.Contains(t, env.out.String(), "Scanned 2 SCSI host(s).")
}

func TestRescanWithoutHosts(t *testing.T) {
	env := newTestEnv(t, "")

	err := env.app.runRescan(false)
	require.Error(t, err)
	assert.Contains(t, env.errOut.String(), "failed to list SCSI hosts")
}

func TestResizeRescansDisksAndMaps(t *testing.T) {
	env := newTestEnv(t, "")
	for _, d := range []string{"sda", "sdc", "sdd", "sde", "sdf", "sdg", "sdh", "sdi", "sdj"} {
		require.NoError(t, afero.WriteFile(env.fs, filepath.Join("/sys/block", d, "device", "rescan"), nil, 0o200))
	}
	env.runner.outputs["multipathd resize map testvol1"] = "ok\n"
	env.runner.outputs["multipathd resize map testvol2"] = "ok\n"

	require.NoError(t, env.app.runResize(true, false))

	assert.Equal(t, "1\n", env.read(t, "/sys/block/sda/device/rescan"))
	assert.Equal(t, "1\n", env.read(t, "/sys/block/sdj/device/rescan"))
	assert.Equal(t, "running", env.state(t, "sdj"))
	assert.True(t, env.runner.called("multipathd resize map testvol1"))
	assert.True(t, env.runner.called("multipathd resize map testvol2"))
	assert.Contains(t, env.out.String(), "Rescanned 9 disk(s), resized 2 multipath device(s).")
}

func TestResizeWithoutMultipath(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, afero.WriteFile(env.fs, "/sys/block/sdc/device/rescan", nil, 0o200))

	err := env.app.runResize(false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "8 device action(s) failed")
	assert.Equal(t, "1\n", env.read(t, "/sys/block/sdc/device/rescan"))
	assert.False(t, env.runner.called("multipath -l -v 1"))
	assert.Contains(t, env.out.String(), "Rescanned 1 disk(s).")
}
