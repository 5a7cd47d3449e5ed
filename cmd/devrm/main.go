package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sigreer/devrm/internal/version"
)

var (
	cfgFile string
	debug   bool
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "devrm",
	Short: "Safely remove SCSI and multipath block devices",
	Long: `devrm removes SCSI disks and multipath devices from a running host.

Requested disks are expanded to every path of the multipath devices they
belong to, and anything that is mounted or used by LVM, md raid or ZFS is
refused. What remains is flushed (multipath maps), set offline and deleted
through sysfs.

rescan and resize go the other way: they make the kernel discover new
LUNs and pick up capacity changes.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(debug)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the devrm version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "devrm %s\n", version.String())
	},
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/devrm/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(topologyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rescanCmd)
	rootCmd.AddCommand(resizeCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
