// Package metrics exports the outcome of a removal run as a Prometheus
// textfile for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigreer/devrm/internal/executor"
	"github.com/sigreer/devrm/internal/resolve"
	"github.com/sigreer/devrm/internal/version"
)

// Run holds the gauges describing the most recent removal
type Run struct {
	reg       *prometheus.Registry
	removed   *prometheus.GaugeVec
	blocked   prometheus.Gauge
	failures  *prometheus.GaugeVec
	lastRun   prometheus.Gauge
	buildInfo prometheus.Gauge
}

// NewRun creates the gauges on a private registry
func NewRun() *Run {
	r := &Run{
		reg: prometheus.NewRegistry(),
		removed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "devrm_devices_removed",
				Help: "Devices removed by the last run, by kind.",
			},
			[]string{"kind"},
		),
		blocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "devrm_devices_blocked",
			Help: "Requested devices refused by the last run because they are in use.",
		}),
		failures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "devrm_action_failures",
				Help: "Failed device actions in the last run, by action.",
			},
			[]string{"action"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "devrm_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		buildInfo: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "devrm_build_info",
			Help:        "Build info of devrm.",
			ConstLabels: prometheus.Labels{"version": version.Version},
		}),
	}

	r.reg.MustRegister(r.removed, r.blocked, r.failures, r.lastRun, r.buildInfo)
	r.buildInfo.Set(1)
	for _, kind := range []string{"alias", "disk"} {
		r.removed.WithLabelValues(kind)
	}
	for _, a := range []executor.Action{executor.ActionFlush, executor.ActionOffline, executor.ActionDelete} {
		r.failures.WithLabelValues(string(a))
	}
	return r
}

// Observe sets the gauges from a resolution and its execution report.
// report may be nil when nothing was executed.
func (r *Run) Observe(res *resolve.Result, report *executor.Report, finished time.Time) {
	if res != nil && res.Blocked != nil {
		r.blocked.Set(float64(res.Blocked.Len()))
	}
	if report != nil {
		r.removed.WithLabelValues("alias").Set(float64(report.Succeeded(executor.ActionFlush).Len()))
		r.removed.WithLabelValues("disk").Set(float64(report.Succeeded(executor.ActionDelete).Len()))
		for _, f := range report.Failed() {
			r.failures.WithLabelValues(string(f.Action)).Inc()
		}
	}
	r.lastRun.Set(float64(finished.Unix()))
}

// Registry exposes the underlying registry
func (r *Run) Registry() *prometheus.Registry {
	return r.reg
}

// WriteTextfile atomically writes the gauges to path
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
