package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/devrm/internal/sysblock"
	"github.com/sigreer/devrm/internal/topology"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Show multipath devices and protected devices",
	Long: `Collect the live device topology without changing anything.

Lists every multipath alias with its member disks, every device that
would be refused because it is in use, and the standard disks that can
be named with delete -s.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		jsonOut, _ := cmd.Flags().GetBool("json")
		a, err := newApp(cfgFile, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := a.runTopology(jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	topologyCmd.Flags().Bool("json", false, "Output as JSON")
}

func (a *app) runTopology(jsonOut bool) error {
	snap := a.collector().Collect()
	if jsonOut {
		return topology.PrintJSON(a.out, snap)
	}

	topology.PrintTable(a.out, snap)
	fmt.Fprintln(a.out)
	printDisks(a.out, a.blocks())
	return nil
}

func printDisks(w io.Writer, blocks *sysblock.Reader) {
	fmt.Fprintf(w, "%-20s %-10s %-10s %s\n", "DISK", "SIZE", "STATE", "MODEL")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	disks := blocks.GetAll(blocks.List())
	if len(disks) == 0 {
		fmt.Fprintln(w, "(no disks)")
	}
	for _, d := range disks {
		state, model := "-", "-"
		if d.State != nil {
			state = *d.State
		}
		if d.Model != nil {
			model = *d.Model
		}
		fmt.Fprintf(w, "%-20s %-10s %-10s %s\n", d.Name, d.HumanSize(), state, model)
	}
}
