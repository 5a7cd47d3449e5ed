package executor

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/sigreer/devrm/internal/device"
)

// Actions that discover devices rather than remove them
const (
	ActionScan   Action = "scan"
	ActionRescan Action = "rescan"
	ActionResize Action = "resize"
)

// ScanHosts writes "- - -" to every <sysfs>/class/scsi_host/<host>/scan so
// that new LUNs on any channel, target and LUN show up
func (e *Executor) ScanHosts() *Report {
	report := &Report{}
	dir := filepath.Join(e.sysfsRoot, "class", "scsi_host")

	entries, err := afero.ReadDir(e.fs, dir)
	if err != nil {
		e.start(1)
		e.record(report, ActionScan, device.ID(dir), fmt.Errorf("failed to list SCSI hosts: %w", err))
		return report
	}

	hosts := make([]string, 0, len(entries))
	for _, entry := range entries {
		hosts = append(hosts, entry.Name())
	}
	sort.Strings(hosts)

	e.start(len(hosts))
	for _, host := range hosts {
		path := filepath.Join(dir, host, "scan")
		e.record(report, ActionScan, device.ID(host), e.writeFile(path, "- - -\n"))
	}
	return report
}

// RescanDisks writes "1" to <sysfs>/block/<disk>/device/rescan so the
// kernel rereads each disk's capacity
func (e *Executor) RescanDisks(disks device.Set) *Report {
	report := &Report{}
	ids := disks.Sorted()

	e.start(len(ids))
	for _, disk := range ids {
		e.record(report, ActionRescan, disk, e.writeControl(disk, "rescan", "1\n"))
	}
	return report
}

// ResizeMaps asks multipathd to pick up the new size of each alias. Run it
// after RescanDisks so the paths already report the new capacity.
func (e *Executor) ResizeMaps(aliases []device.ID) *Report {
	report := &Report{}
	sorted := append([]device.ID(nil), aliases...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	e.start(len(sorted))
	for _, alias := range sorted {
		var err error
		if _, runErr := e.runner.Run("multipathd", "resize", "map", string(alias)); runErr != nil {
			err = fmt.Errorf("cannot resize multipath device %s: %w", alias, runErr)
		}
		e.record(report, ActionResize, alias, err)
	}
	return report
}

// Merge appends the results of other to r
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Results = append(r.Results, other.Results...)
	}
}
