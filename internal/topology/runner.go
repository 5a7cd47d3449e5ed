package topology

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnavailable is returned when a host query tool is missing
var ErrUnavailable = errors.New("query tool unavailable")

// Runner executes a host command and returns its stdout
type Runner interface {
	Run(name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes name with args. A missing binary yields ErrUnavailable.
func (ExecRunner) Run(name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrUnavailable)
	}

	out, err := exec.Command(name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s %s: %s: %w", name, strings.Join(args, " "),
				strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}
