package topology

import (
	"regexp"
	"strings"
)

// MDStatPath is where the kernel reports active MD arrays
const MDStatPath = "/proc/mdstat"

// MDArray is an active MD RAID array and its member devices
type MDArray struct {
	Name    string
	Members []string
}

var reMDMember = regexp.MustCompile(`^([^\[\s]+)\[\d+\]`)

// ParseMDStat parses /proc/mdstat.
//
//	md127 : active raid1 sdb1[1] sda1[0]
//	md0 : inactive sdc[0](S)
//
// Member names are returned as /dev paths.
func ParseMDStat(out string) []MDArray {
	var arrays []MDArray

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != ":" || !strings.HasPrefix(fields[0], "md") {
			continue
		}

		arr := MDArray{Name: fields[0]}
		for _, f := range fields[2:] {
			if m := reMDMember.FindStringSubmatch(f); len(m) > 1 {
				arr.Members = append(arr.Members, "/dev/"+m[1])
			}
		}
		arrays = append(arrays, arr)
	}

	return arrays
}
