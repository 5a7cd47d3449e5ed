package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sigreer/devrm/internal/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past removals from the journal",
	Long: `List recent delete runs recorded in the journal database.

The journal is only written when "journal" is set in the config file.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOut, _ := cmd.Flags().GetBool("json")
		a, err := newApp(cfgFile, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := a.runHistory(limit, jsonOut); err != nil {
			fmt.Fprintln(os.Stderr, errorText(err))
			os.Exit(1)
		}
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

type runJSON struct {
	*db.Run
	Actions []*db.Action `json:"actions"`
}

func (a *app) runHistory(limit int, jsonOut bool) error {
	if a.cfg.Journal == "" {
		return errors.New("no journal configured (set \"journal\" in the config file)")
	}

	database, err := db.New(a.cfg.Journal)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.GetRecentRuns(limit)
	if err != nil {
		return err
	}

	if jsonOut {
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			actions, err := database.GetRunActions(run.ID)
			if err != nil {
				return err
			}
			out = append(out, runJSON{Run: run, Actions: actions})
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printHistory(a.out, runs)
	return nil
}

func printHistory(w io.Writer, runs []*db.Run) {
	fmt.Fprintf(w, "%-10s %-16s %-14s %-20s %s\n", "RUN", "WHEN", "STATUS", "ALIASES", "DISKS")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	if len(runs) == 0 {
		fmt.Fprintln(w, "(no runs recorded)")
	}
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%-10s %-16s %-14s %-20s %s\n",
			id, humanize.Time(run.StartedAt), run.Status, orDash(run.Aliases), orDash(run.Disks))
		if len(run.Blocked) > 0 {
			fmt.Fprintf(w, "%-10s skipped protected: %s\n", "", strings.Join(run.Blocked, " "))
		}
	}
}

func orDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}
