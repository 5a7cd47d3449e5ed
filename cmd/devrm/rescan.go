package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/devrm/internal/executor"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Scan all SCSI hosts for new devices",
	Long: `Scan every SCSI host for new LUNs by writing "- - -" to
/sys/class/scsi_host/<host>/scan. Use it after mapping new volumes.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if err := requireRoot(); err != nil {
			fmt.Fprintln(os.Stderr, errorText(err))
			os.Exit(1)
		}
		a, err := newApp(cfgFile, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := a.runRescan(verbose); err != nil {
			fmt.Fprintln(os.Stderr, errorText(err))
			os.Exit(1)
		}
	},
}

var resizeCmd = &cobra.Command{
	Use:   "resize",
	Short: "Pick up size changes of existing disks",
	Long: `Make the kernel reread the capacity of every standard disk by writing "1"
to /sys/block/<disk>/device/rescan. With --multipath, multipathd is then
told to resize every multipath device so the maps follow their paths.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withMultipath, _ := cmd.Flags().GetBool("multipath")
		verbose, _ := cmd.Flags().GetBool("verbose")
		if err := requireRoot(); err != nil {
			fmt.Fprintln(os.Stderr, errorText(err))
			os.Exit(1)
		}
		a, err := newApp(cfgFile, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := a.runResize(withMultipath, verbose); err != nil {
			fmt.Fprintln(os.Stderr, errorText(err))
			os.Exit(1)
		}
	},
}

func init() {
	rescanCmd.Flags().BoolP("verbose", "v", false, "print every host scanned")

	resizeCmd.Flags().BoolP("multipath", "m", false, "also resize multipath devices")
	resizeCmd.Flags().BoolP("verbose", "v", false, "print every disk and map handled")
}

func (a *app) runRescan(verbose bool) error {
	exec := a.executor()
	if verbose {
		exec.AddObserver(&verboseObserver{app: a, w: a.out})
	}

	report := exec.ScanHosts()
	fmt.Fprintf(a.out, "Scanned %d SCSI host(s).\n", report.Succeeded(executor.ActionScan).Len())
	return a.reportFailures(report)
}

func (a *app) runResize(withMultipath, verbose bool) error {
	exec := a.executor()
	if verbose {
		exec.AddObserver(&verboseObserver{app: a, w: a.out})
	}

	report := exec.RescanDisks(a.blocks().List())
	if withMultipath {
		report.Merge(exec.ResizeMaps(a.collector().Aliases()))
	}

	fmt.Fprintf(a.out, "Rescanned %d disk(s)", report.Succeeded(executor.ActionRescan).Len())
	if withMultipath {
		fmt.Fprintf(a.out, ", resized %d multipath device(s)", report.Succeeded(executor.ActionResize).Len())
	}
	fmt.Fprintln(a.out, ".")
	return a.reportFailures(report)
}

func (a *app) reportFailures(report *executor.Report) error {
	failed := report.Failed()
	for _, f := range failed {
		a.fail("  %s %s: %v", f.Action, f.Device, f.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d device action(s) failed", len(failed))
	}
	return nil
}
