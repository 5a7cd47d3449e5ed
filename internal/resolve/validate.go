package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sigreer/devrm/internal/device"
)

// ErrNoDevices is returned when neither disks nor aliases were requested
var ErrNoDevices = errors.New("select at least one disk or alias")

// DeviceKind distinguishes standard disks from multipath aliases in errors
type DeviceKind string

const (
	KindDisk  DeviceKind = "block device"
	KindAlias DeviceKind = "multipath alias"
)

// InvalidDeviceError reports a requested device that does not exist on the host
type InvalidDeviceError struct {
	Kind    DeviceKind
	Name    string
	Choices []string
}

func (e *InvalidDeviceError) Error() string {
	choices := strings.Join(e.Choices, " ")
	if choices == "" {
		choices = "(none)"
	}
	return fmt.Sprintf("invalid %s: %s\nchoose from the following: %s", e.Kind, e.Name, choices)
}

// Validate checks the request against the live disks and aliases
func Validate(req Request, validDisks, knownAliases device.Set) error {
	if req.Empty() {
		return ErrNoDevices
	}

	for _, disk := range req.Disks.Sorted() {
		if !validDisks.Has(disk) {
			return &InvalidDeviceError{Kind: KindDisk, Name: string(disk), Choices: validDisks.Strings()}
		}
	}

	for _, alias := range req.Aliases.Sorted() {
		if !knownAliases.Has(alias) {
			return &InvalidDeviceError{Kind: KindAlias, Name: string(alias), Choices: knownAliases.Strings()}
		}
	}

	return nil
}
