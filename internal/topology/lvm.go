package topology

import (
	"encoding/json"
	"strings"
)

// pvReport represents pvs JSON output
type pvReport struct {
	Report []struct {
		PV []struct {
			PVName string `json:"pv_name"`
		} `json:"pv"`
	} `json:"report"`
}

var pvsArgs = []string{"--reportformat", "json", "-o", "pv_name"}

// ParsePhysicalVolumes returns the PV device paths from pvs output.
// Accepts the JSON report or the plain `pvs --noheadings -o pv_name` listing.
func ParsePhysicalVolumes(out string) []string {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil
	}

	var pvs []string
	if strings.HasPrefix(trimmed, "{") {
		var report pvReport
		if err := json.Unmarshal([]byte(trimmed), &report); err != nil {
			return nil
		}
		for _, r := range report.Report {
			for _, pv := range r.PV {
				if name := strings.TrimSpace(pv.PVName); name != "" {
					pvs = append(pvs, name)
				}
			}
		}
		return pvs
	}

	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pvs = append(pvs, line)
	}
	return pvs
}
