package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sigreer/devrm/internal/device"
	"github.com/sigreer/devrm/internal/resolve"
	"github.com/sigreer/devrm/internal/topology"
)

// ErrSkipped marks a delete that was not attempted because the offline write failed
var ErrSkipped = errors.New("skipped: device could not be set offline")

// Action is a single destructive step
type Action string

const (
	ActionFlush   Action = "flush"
	ActionOffline Action = "offline"
	ActionDelete  Action = "delete"
)

// ActionResult is the outcome of one action on one device
type ActionResult struct {
	Action    Action
	Device    device.ID
	Err       error
	Timestamp time.Time
}

// OK reports whether the action succeeded
func (a ActionResult) OK() bool {
	return a.Err == nil
}

// Report collects every action result of a run, in execution order
type Report struct {
	Results []ActionResult
}

// Failed returns the results that did not succeed
func (r *Report) Failed() []ActionResult {
	var failed []ActionResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// HasFailures reports whether any action failed
func (r *Report) HasFailures() bool {
	return len(r.Failed()) > 0
}

// Succeeded returns the devices for which action succeeded
func (r *Report) Succeeded(action Action) device.Set {
	ids := device.NewSet()
	for _, res := range r.Results {
		if res.Action == action && res.OK() {
			ids.Add(res.Device)
		}
	}
	return ids
}

// Observer is notified as the executor makes progress
type Observer interface {
	// Start is called once with the number of results to expect
	Start(total int)
	// Observe is called after each action
	Observe(ActionResult)
}

// Executor flushes multipath maps and removes SCSI disks through sysfs. It
// also drives the opposite direction: SCSI host scans and capacity rescans.
type Executor struct {
	runner    topology.Runner
	fs        afero.Fs
	sysfsRoot string
	observers []Observer
	log       zerolog.Logger
	now       func() time.Time
}

// New creates an Executor. sysfsRoot is usually /sys.
func New(runner topology.Runner, fs afero.Fs, sysfsRoot string, log zerolog.Logger) *Executor {
	if sysfsRoot == "" {
		sysfsRoot = "/sys"
	}
	return &Executor{
		runner:    runner,
		fs:        fs,
		sysfsRoot: sysfsRoot,
		log:       log.With().Str("component", "executor").Logger(),
		now:       time.Now,
	}
}

// AddObserver registers an observer for progress notifications
func (e *Executor) AddObserver(o Observer) {
	if o != nil {
		e.observers = append(e.observers, o)
	}
}

// Execute flushes every alias, then offlines and deletes every disk.
// Each action is attempted exactly once; a failure is recorded and the
// remaining devices are still processed. Nothing is rolled back.
func (e *Executor) Execute(res *resolve.Result) *Report {
	report := &Report{}
	aliases := res.Aliases.Sorted()
	disks := res.Disks.Sorted()

	e.start(len(aliases) + 2*len(disks))

	for _, alias := range aliases {
		e.record(report, ActionFlush, alias, e.flush(alias))
	}

	for _, disk := range disks {
		if err := e.writeControl(disk, "state", "offline\n"); err != nil {
			e.record(report, ActionOffline, disk, err)
			e.record(report, ActionDelete, disk, ErrSkipped)
			continue
		}
		e.record(report, ActionOffline, disk, nil)
		e.record(report, ActionDelete, disk, e.writeControl(disk, "delete", "1\n"))
	}

	return report
}

func (e *Executor) start(total int) {
	for _, o := range e.observers {
		o.Start(total)
	}
}

func (e *Executor) record(report *Report, action Action, id device.ID, err error) {
	result := ActionResult{Action: action, Device: id, Err: err, Timestamp: e.now()}
	report.Results = append(report.Results, result)

	if err != nil {
		e.log.Warn().Err(err).Str("action", string(action)).Str("device", string(id)).Msg("device action failed")
	} else {
		e.log.Debug().Str("action", string(action)).Str("device", string(id)).Msg("device action done")
	}

	for _, o := range e.observers {
		o.Observe(result)
	}
}

func (e *Executor) flush(alias device.ID) error {
	if _, err := e.runner.Run("multipath", "-f", string(alias)); err != nil {
		return fmt.Errorf("cannot flush multipath device %s: %w", alias, err)
	}
	return nil
}

// ControlPath returns <root>/block/<disk>/device/<file>
func (e *Executor) ControlPath(disk device.ID, file string) string {
	return filepath.Join(e.sysfsRoot, "block", string(disk), "device", file)
}

// writeControl writes value to an existing sysfs control file; it never creates one
func (e *Executor) writeControl(disk device.ID, file, value string) error {
	return e.writeFile(e.ControlPath(disk, file), value)
}

func (e *Executor) writeFile(path, value string) error {
	f, err := e.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
