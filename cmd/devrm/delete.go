package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/sigreer/devrm/internal/device"
	"github.com/sigreer/devrm/internal/executor"
	"github.com/sigreer/devrm/internal/metrics"
	"github.com/sigreer/devrm/internal/resolve"
	"github.com/sigreer/devrm/internal/sysblock"
	"github.com/sigreer/devrm/internal/topology"
)

// errNotConfirmed is returned when confirmation is required but no terminal is attached
var errNotConfirmed = errors.New("refusing to delete without confirmation: stdin is not a terminal (use --assume-yes)")

type deleteOptions struct {
	disks     []string
	aliases   []string
	assumeYes bool
	verbose   bool
	jsonOut   bool
}

var deleteOpts deleteOptions

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove standard disks and multipath devices",
	Long: `Remove SCSI disks and multipath devices from the running system.

Naming a single path of a multipath device removes the whole multipath
device and all of its paths. Devices that are mounted, or used by LVM,
md raid or ZFS, are never removed; they are skipped and the remaining
devices are still processed.`,
	Example: `  devrm delete -s sdc
  devrm delete -m mpatha -m mpathb
  devrm delete -s sdg,sdh -m testvol1 -y -v`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := requireRoot(); err != nil {
			fmt.Fprintln(os.Stderr, errorText(err))
			os.Exit(1)
		}
		a, err := newApp(cfgFile, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := a.runDelete(deleteOpts); err != nil {
			fmt.Fprintln(os.Stderr, errorText(err))
			os.Exit(1)
		}
	},
}

func init() {
	deleteCmd.Flags().StringSliceVarP(&deleteOpts.disks, "standard", "s", nil, "standard disks to remove (e.g. sdc)")
	deleteCmd.Flags().StringSliceVarP(&deleteOpts.aliases, "multipath", "m", nil, "multipath aliases to remove")
	deleteCmd.Flags().BoolVarP(&deleteOpts.assumeYes, "assume-yes", "y", false, "do not ask for confirmation")
	deleteCmd.Flags().BoolVarP(&deleteOpts.verbose, "verbose", "v", false, "explain expansions, protections and every action")
	deleteCmd.Flags().BoolVar(&deleteOpts.jsonOut, "json", false, "print the result as JSON")
}

func requireRoot() error {
	if unix.Geteuid() != 0 {
		return errors.New("devrm must be run as root")
	}
	return nil
}

func (a *app) runDelete(opts deleteOptions) error {
	req := resolve.NewRequest(opts.disks, opts.aliases)
	if req.Empty() {
		return resolve.ErrNoDevices
	}

	snap := a.collector().Collect()
	blocks := a.blocks()

	known := device.NewSet(snap.Relationships.Aliases()...)
	if err := resolve.Validate(req, blocks.List(), known); err != nil {
		return err
	}

	res := resolve.Resolve(req, snap.Relationships, snap.Protected, resolve.Options{Verbose: opts.verbose})
	for _, w := range res.Warnings {
		a.warn("%s", w)
	}
	if !opts.verbose && res.Blocked.Len() > 0 {
		a.warn("Skipping protected devices: %s", res.Blocked)
	}

	jr := a.openJournal(req, res, opts.assumeYes)
	defer jr.close()

	// Plan and progress go to stderr when stdout carries JSON
	planOut := a.out
	if opts.jsonOut {
		planOut = a.errOut
	}

	if res.Empty() {
		fmt.Fprintln(planOut, "Nothing to delete.")
		jr.finish(nil, false)
		a.writeMetrics(res, nil)
		if opts.jsonOut {
			return printDeleteJSON(a.out, res, &executor.Report{})
		}
		return nil
	}

	printPlan(planOut, res, snap, blocks)

	proceed, err := a.decide(opts.assumeYes)
	if err != nil {
		jr.finish(nil, true)
		return err
	}
	if !proceed {
		fmt.Fprintln(planOut, "Aborted.")
		jr.finish(nil, true)
		return nil
	}

	exec := a.executor()
	exec.AddObserver(jr)
	switch {
	case opts.verbose:
		exec.AddObserver(&verboseObserver{app: a, w: planOut})
	case a.showProgress():
		exec.AddObserver(&progressObserver{w: a.errOut})
	}

	report := exec.Execute(res)
	jr.finish(report, false)
	a.writeMetrics(res, report)

	if opts.jsonOut {
		if err := printDeleteJSON(a.out, res, report); err != nil {
			return err
		}
	} else {
		a.printSummary(planOut, report)
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d device action(s) failed", len(failed))
	}
	return nil
}

// decide returns whether to go ahead. It is the only place that asks.
func (a *app) decide(assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !a.interactive() {
		return false, errNotConfirmed
	}
	return a.confirm("Do you really want to delete these devices?")
}

func printPlan(w io.Writer, res *resolve.Result, snap *topology.Snapshot, blocks *sysblock.Reader) {
	fmt.Fprintln(w, "The following devices will be removed:")
	for _, alias := range res.Aliases.Sorted() {
		fmt.Fprintf(w, "  %-12s multipath (%s)\n", alias, snap.Relationships[alias])
	}
	for _, id := range res.Disks.Sorted() {
		if disk := blocks.Get(id); disk != nil {
			fmt.Fprintf(w, "  %s\n", disk.Description())
		} else {
			fmt.Fprintf(w, "  %s (not in sysfs)\n", id)
		}
	}
	fmt.Fprintln(w)
}

func (a *app) printSummary(w io.Writer, report *executor.Report) {
	for _, f := range report.Failed() {
		a.fail("  %s %s: %v", f.Action, f.Device, f.Err)
	}
	fmt.Fprintf(w, "Flushed %d multipath device(s), deleted %d disk(s).\n",
		report.Succeeded(executor.ActionFlush).Len(), report.Succeeded(executor.ActionDelete).Len())
}

func (a *app) writeMetrics(res *resolve.Result, report *executor.Report) {
	if a.cfg.MetricsTextfile == "" {
		return
	}
	m := metrics.NewRun()
	m.Observe(res, report, time.Now())
	if err := m.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.log.Warn().Err(err).Str("path", a.cfg.MetricsTextfile).Msg("metrics not written")
	}
}

type actionJSON struct {
	Action string `json:"action"`
	Device string `json:"device"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

type deleteJSON struct {
	Disks    []string     `json:"disks"`
	Aliases  []string     `json:"aliases"`
	Blocked  []string     `json:"blocked"`
	Warnings []string     `json:"warnings,omitempty"`
	Results  []actionJSON `json:"results"`
}

func printDeleteJSON(w io.Writer, res *resolve.Result, report *executor.Report) error {
	out := deleteJSON{
		Disks:    res.Disks.Strings(),
		Aliases:  res.Aliases.Strings(),
		Blocked:  res.Blocked.Strings(),
		Warnings: res.Warnings,
		Results:  make([]actionJSON, 0, len(report.Results)),
	}
	for _, r := range report.Results {
		aj := actionJSON{Action: string(r.Action), Device: string(r.Device), OK: r.OK()}
		if r.Err != nil {
			aj.Error = r.Err.Error()
		}
		out.Results = append(out.Results, aj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}
