package main

import (
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/sigreer/devrm/internal/executor"
)

// progressObserver draws a progress bar over the executor's actions
type progressObserver struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (p *progressObserver) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Removing devices"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *progressObserver) Observe(r executor.ActionResult) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("%s %s", r.Action, r.Device))
	_ = p.bar.Add(1)
}

// verboseObserver prints one line per action
type verboseObserver struct {
	app *app
	w   io.Writer
}

func (v *verboseObserver) Start(total int) {}

func (v *verboseObserver) Observe(r executor.ActionResult) {
	if r.OK() {
		fmt.Fprintf(v.w, "%s %s: %s\n", r.Action, r.Device, color.GreenString("ok"))
		return
	}
	v.app.fail("%s %s: %v", r.Action, r.Device, r.Err)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
