package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sigreer/devrm/internal/config"
	"github.com/sigreer/devrm/internal/executor"
	"github.com/sigreer/devrm/internal/sysblock"
	"github.com/sigreer/devrm/internal/topology"
)

// app bundles the host seams every subcommand works through
type app struct {
	cfg    *config.Config
	runner topology.Runner
	fs     afero.Fs
	log    zerolog.Logger
	out    io.Writer
	errOut io.Writer

	// interactive reports whether a confirmation prompt can be shown
	interactive func() bool
	// showProgress reports whether stderr can draw a progress bar
	showProgress func() bool
	// confirm asks the operator once; only called when interactive
	confirm func(message string) (bool, error)
}

func newApp(cfgPath string, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:          cfg,
		runner:       topology.ExecRunner{},
		fs:           afero.NewOsFs(),
		log:          log,
		out:          os.Stdout,
		errOut:       os.Stderr,
		interactive:  stdinIsTerminal,
		showProgress: stderrIsTerminal,
		confirm:      surveyConfirm,
	}, nil
}

func (a *app) collector() *topology.Collector {
	return topology.NewCollector(a.runner, a.fs, topology.Options{
		FilesystemTypes: a.cfg.FilesystemTypes,
		ExtraSources:    a.cfg.ExtraSources,
		SysfsRoot:       a.cfg.SysfsRoot,
	}, a.log)
}

func (a *app) blocks() *sysblock.Reader {
	return sysblock.NewReader(a.fs, a.cfg.SysfsRoot, a.cfg.DiskPrefixes)
}

func (a *app) executor() *executor.Executor {
	return executor.New(a.runner, a.fs, a.cfg.SysfsRoot, a.log)
}

func (a *app) warn(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(a.errOut, format+"\n", args...)
}

func (a *app) fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(a.errOut, format+"\n", args...)
}

func errorText(err error) string {
	return color.New(color.FgRed).Sprintf("Error: %v", err)
}
