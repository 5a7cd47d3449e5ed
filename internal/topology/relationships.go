package topology

import (
	"sort"

	"github.com/sigreer/devrm/internal/device"
)

// Relationships maps each multipath alias to the disks backing it
type Relationships map[device.ID]device.Set

// Add records disks as members of alias, creating the alias if needed
func (r Relationships) Add(alias device.ID, disks ...device.ID) {
	members, ok := r[alias]
	if !ok {
		members = device.NewSet()
		r[alias] = members
	}
	members.Add(disks...)
}

// HasAlias reports whether alias is known to multipath
func (r Relationships) HasAlias(alias device.ID) bool {
	_, ok := r[alias]
	return ok
}

// Members returns a copy of the alias member set (empty if unknown)
func (r Relationships) Members(alias device.ID) device.Set {
	members, ok := r[alias]
	if !ok {
		return device.NewSet()
	}
	return members.Clone()
}

// Aliases returns all known aliases in sorted order
func (r Relationships) Aliases() []device.ID {
	aliases := make([]device.ID, 0, len(r))
	for alias := range r {
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i] < aliases[j] })
	return aliases
}

// AliasesOf returns every alias that has disk as a member, sorted
func (r Relationships) AliasesOf(disk device.ID) []device.ID {
	var aliases []device.ID
	for _, alias := range r.Aliases() {
		if r[alias].Has(disk) {
			aliases = append(aliases, alias)
		}
	}
	return aliases
}
