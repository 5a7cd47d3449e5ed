package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/devrm/internal/device"
	"github.com/sigreer/devrm/internal/executor"
	"github.com/sigreer/devrm/internal/resolve"
)

func sampleRun() (*resolve.Result, *executor.Report) {
	res := &resolve.Result{
		Disks:   device.SetOf("sdg", "sdh"),
		Aliases: device.SetOf("testvol2"),
		Blocked: device.SetOf("sda", "sdb", "sdc"),
	}
	report := &executor.Report{Results: []executor.ActionResult{
		{Action: executor.ActionFlush, Device: "testvol2"},
		{Action: executor.ActionOffline, Device: "sdg"},
		{Action: executor.ActionDelete, Device: "sdg"},
		{Action: executor.ActionOffline, Device: "sdh", Err: errors.New("permission denied")},
		{Action: executor.ActionDelete, Device: "sdh", Err: executor.ErrSkipped},
	}}
	return res, report
}

func TestObserve(t *testing.T) {
	r := NewRun()
	res, report := sampleRun()
	r.Observe(res, report, time.Unix(1700000000, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.removed.WithLabelValues("alias")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.removed.WithLabelValues("disk")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.blocked))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.failures.WithLabelValues("flush")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("offline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("delete")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastRun))
}

func TestObserveWithoutReport(t *testing.T) {
	r := NewRun()
	r.Observe(&resolve.Result{Blocked: device.SetOf("sda")}, nil, time.Unix(10, 0))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.blocked))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.removed.WithLabelValues("disk")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRun()
	res, report := sampleRun()
	r.Observe(res, report, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "devrm.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)

	for _, want := range []string{
		`devrm_devices_removed{kind="disk"} 1`,
		`devrm_devices_blocked 3`,
		`devrm_action_failures{action="offline"} 1`,
		`devrm_last_run_timestamp_seconds 1.7e+09`,
		`devrm_build_info{version="`,
	} {
		assert.True(t, strings.Contains(body, want), "missing %q in:\n%s", want, body)
	}
}

func TestWriteTextfileBadPath(t *testing.T) {
	err := NewRun().WriteTextfile(filepath.Join(t.TempDir(), "missing", "devrm.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write metrics textfile")
}
