package resolve

import (
	"fmt"

	"github.com/sigreer/devrm/internal/device"
	"github.com/sigreer/devrm/internal/topology"
)

// Request is the set of devices a user asked to remove
type Request struct {
	Disks   device.Set
	Aliases device.Set
}

// NewRequest builds a request from plain names
func NewRequest(disks, aliases []string) Request {
	return Request{
		Disks:   device.SetOf(disks...),
		Aliases: device.SetOf(aliases...),
	}
}

// Empty reports whether nothing was requested
func (r Request) Empty() bool {
	return r.Disks.Len() == 0 && r.Aliases.Len() == 0
}

// Expansion records a disk that pulled in its whole multipath device
type Expansion struct {
	Disk  device.ID
	Alias device.ID
	Added device.Set
}

// Result is the resolved set of devices that is safe to remove
type Result struct {
	Disks      device.Set
	Aliases    device.Set
	Blocked    device.Set
	Expansions []Expansion
	Warnings   []string
}

// Empty reports whether nothing is left to remove
func (r *Result) Empty() bool {
	return r.Disks.Len() == 0 && r.Aliases.Len() == 0
}

// Options controls resolution output
type Options struct {
	// Verbose accumulates human-readable warnings in Result.Warnings
	Verbose bool
}

// Resolve expands the request through the multipath relationships, drops
// every protected device and returns what remains. The request is not
// modified.
//
// Expansion happens before filtering so that naming one unprotected path of
// a protected multipath device cannot bypass protection.
func Resolve(req Request, rel topology.Relationships, protected device.Set, opts Options) *Result {
	disks := device.NewSet()
	aliases := device.NewSet()
	if req.Disks != nil {
		disks = req.Disks.Clone()
	}
	if req.Aliases != nil {
		aliases = req.Aliases.Clone()
	}
	if protected == nil {
		protected = device.NewSet()
	}

	res := &Result{Blocked: device.NewSet()}

	// 1. Sibling expansion, to a fixpoint
	queue := disks.Sorted()
	visited := device.NewSet()
	expanded := device.NewSet()
	for len(queue) > 0 {
		disk := queue[0]
		queue = queue[1:]
		if visited.Has(disk) {
			continue
		}
		visited.Add(disk)

		for _, alias := range rel.AliasesOf(disk) {
			if expanded.Has(alias) {
				continue
			}
			expanded.Add(alias)
			members := rel.Members(alias)
			added := members.Minus(disks)
			aliases.Add(alias)
			disks.Union(members)
			res.Expansions = append(res.Expansions, Expansion{Disk: disk, Alias: alias, Added: added})
			if opts.Verbose {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"Disk %s is a part of the multipath device %s. Adding the other disks from %s.", disk, alias, alias))
			}
			queue = append(queue, added.Sorted()...)
		}
	}

	// Requested aliases are judged together with their members
	for _, alias := range aliases.Sorted() {
		disks.Union(rel.Members(alias))
	}

	// 2. Protection check
	blocked := protected.Intersect(disks)
	blocked.Union(protected.Intersect(aliases))

	// A multipath device is protected as a unit
	for changed := true; changed; {
		changed = false
		for _, alias := range aliases.Sorted() {
			members := rel.Members(alias)
			if blocked.Has(alias) || members.Overlaps(blocked) {
				before := blocked.Len()
				blocked.Add(alias)
				blocked.Union(members.Intersect(disks))
				if blocked.Len() != before {
					changed = true
				}
			}
		}
	}

	if blocked.Len() > 0 {
		if opts.Verbose {
			res.Warnings = append(res.Warnings,
				"Refusing to delete the following protected devices: "+blocked.String())
		}
		for id := range blocked {
			disks.Remove(id)
			aliases.Remove(id)
		}
	}
	res.Blocked = blocked

	// 3. Every alias to be flushed has its backing disks deleted too
	for _, alias := range aliases.Sorted() {
		disks.Union(rel.Members(alias))
	}

	res.Disks = disks
	res.Aliases = aliases
	return res
}
