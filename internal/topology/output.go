package topology

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// snapshotJSON is the machine-readable form of a Snapshot
type snapshotJSON struct {
	Multipath map[string][]string `json:"multipath"`
	Protected []protectedJSON     `json:"protected"`
}

type protectedJSON struct {
	Device  string   `json:"device"`
	Reasons []Reason `json:"reasons"`
}

// PrintJSON outputs the snapshot as JSON
func PrintJSON(w io.Writer, snap *Snapshot) error {
	out := snapshotJSON{
		Multipath: make(map[string][]string, len(snap.Relationships)),
		Protected: make([]protectedJSON, 0, snap.Protected.Len()),
	}
	for _, alias := range snap.Relationships.Aliases() {
		out.Multipath[string(alias)] = snap.Relationships[alias].Strings()
	}
	for _, id := range snap.Protected.Sorted() {
		out.Protected = append(out.Protected, protectedJSON{Device: string(id), Reasons: snap.Reasons[id]})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// PrintTable outputs the snapshot as formatted tables
func PrintTable(w io.Writer, snap *Snapshot) {
	fmt.Fprintf(w, "%-20s %s\n", "ALIAS", "MEMBERS")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	if len(snap.Relationships) == 0 {
		fmt.Fprintln(w, "(no multipath devices)")
	}
	for _, alias := range snap.Relationships.Aliases() {
		members := snap.Relationships[alias].String()
		if members == "" {
			members = "-"
		}
		fmt.Fprintf(w, "%-20s %s\n", alias, members)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-20s %s\n", "PROTECTED", "REASON")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	if snap.Protected.Len() == 0 {
		fmt.Fprintln(w, "(none)")
	}
	for _, id := range snap.Protected.Sorted() {
		reasons := make([]string, len(snap.Reasons[id]))
		for i, r := range snap.Reasons[id] {
			reasons[i] = string(r)
		}
		fmt.Fprintf(w, "%-20s %s\n", id, strings.Join(reasons, ","))
	}
}
