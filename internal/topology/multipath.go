package topology

import (
	"regexp"
	"strings"

	"github.com/sigreer/devrm/internal/device"
)

// PathInfo is one constituent path of a multipath device
type PathInfo struct {
	HCTL   string
	Device device.ID
	MajMin string
}

// Path lines look like:
//
//	  |- 34:0:0:1 sdg 8:96  active ready running
//	| `- 36:0:0:1 sdh 8:112 active ready running
//
// The policy line ("`-+- policy=...") never matches because "-+" is not
// followed by whitespace.
var rePathLine = regexp.MustCompile("[|`]-\\s+(\\d+:\\d+:\\d+:\\d+)\\s+(\\w+)\\s+(\\d+:\\d+)")

// Header lines look like:
//
//	testvol1 (36000d31000d5f00000000000000000a5) dm-2 COMPELNT,Compellent Vol
//	36000d31000d5f00000000000000000a5 dm-2 COMPELNT,Compellent Vol
var reMapHeader = regexp.MustCompile(`^\S+\s+(?:\(\S+\)\s+)?(dm-\d+)(?:\s|$)`)

// ParseAliases parses `multipath -l -v 1` output: one alias per line
func ParseAliases(out string) []device.ID {
	var aliases []device.ID
	seen := make(map[device.ID]bool)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// First field only; some multipath builds append the WWID
		alias := device.ID(strings.Fields(line)[0])
		if seen[alias] {
			continue
		}
		seen[alias] = true
		aliases = append(aliases, alias)
	}

	return aliases
}

// ParseMembers parses `multipath -ll <alias>` output into its paths
func ParseMembers(out string) []PathInfo {
	var paths []PathInfo

	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		matches := rePathLine.FindStringSubmatch(line)
		if len(matches) < 4 {
			continue
		}
		paths = append(paths, PathInfo{
			HCTL:   matches[1],
			Device: device.ID(matches[2]),
			MajMin: matches[3],
		})
	}

	return paths
}

// ParseMapNode returns the dm node named on the `multipath -ll <alias>`
// header line, or "" if there is none
func ParseMapNode(out string) device.ID {
	for _, line := range strings.Split(out, "\n") {
		if m := reMapHeader.FindStringSubmatch(line); len(m) > 1 {
			return device.ID(m[1])
		}
	}
	return ""
}
