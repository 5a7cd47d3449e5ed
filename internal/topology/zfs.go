package topology

import (
	"regexp"
	"strings"
)

var zpoolStatusArgs = []string{"status", "-P", "-L"}

// Device lines in `zpool status -P -L`:
//
//	/dev/sdc1  ONLINE       0     0     0
var reZpoolDevice = regexp.MustCompile(`^\s+(/dev/\S+)\s+\S+`)

// ParseZpoolDevices returns the vdev device paths of every imported pool
func ParseZpoolDevices(out string) []string {
	var devices []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(out, "\n") {
		matches := reZpoolDevice.FindStringSubmatch(line)
		if len(matches) < 2 {
			continue
		}
		dev := matches[1]
		if seen[dev] {
			continue
		}
		seen[dev] = true
		devices = append(devices, dev)
	}

	return devices
}
