package topology

import (
	"encoding/json"
	"strings"
)

// DefaultFilesystemTypes are the local filesystem types whose sources are protected
var DefaultFilesystemTypes = []string{"ext2", "ext3", "ext4", "xfs"}

// findmntOutput represents `findmnt --json --list` output
type findmntOutput struct {
	Filesystems []struct {
		Source string `json:"source"`
	} `json:"filesystems"`
}

// findmntArgs builds the findmnt invocation for the given filesystem types
func findmntArgs(fsTypes []string) []string {
	if len(fsTypes) == 0 {
		fsTypes = DefaultFilesystemTypes
	}
	return []string{"--json", "--list", "--types", strings.Join(fsTypes, ","), "--output", "SOURCE"}
}

// ParseMountSources parses findmnt output. JSON output is preferred, but
// plain --noheadings listings (one source per line) are accepted too.
func ParseMountSources(out string) []string {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil
	}

	var sources []string
	if strings.HasPrefix(trimmed, "{") {
		var parsed findmntOutput
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			return nil
		}
		for _, fs := range parsed.Filesystems {
			if src := cleanSource(fs.Source); src != "" {
				sources = append(sources, src)
			}
		}
		return sources
	}

	for _, line := range strings.Split(trimmed, "\n") {
		if src := cleanSource(line); src != "" {
			sources = append(sources, src)
		}
	}
	return sources
}

// cleanSource drops the bind-mount subpath findmnt appends, e.g. /dev/sda2[/srv]
func cleanSource(src string) string {
	src = strings.TrimSpace(src)
	if idx := strings.Index(src, "["); idx > 0 {
		src = src[:idx]
	}
	return src
}
