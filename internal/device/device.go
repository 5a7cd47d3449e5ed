package device

import (
	"sort"
	"strings"
)

// ID names a block device or multipath alias by its kernel or map name (sdg, testvol2)
type ID string

func (id ID) String() string {
	return string(id)
}

// Path returns the /dev node for the ID
func (id ID) Path() string {
	return "/dev/" + string(id)
}

// MapperPath returns the /dev/mapper node for an alias
func (id ID) MapperPath() string {
	return "/dev/mapper/" + string(id)
}

// PathKind describes what a /dev path refers to
type PathKind int

const (
	KindUnknown PathKind = iota
	KindDisk
	KindMapper
)

// FromDevPath classifies a device path.
//
//	/dev/sda2            -> sda, KindDisk
//	/dev/nvme0n1p1       -> nvme0n1, KindDisk
//	/dev/mapper/testvol1 -> testvol1, KindMapper
//
// Disk paths are reduced to their base device so that a mounted partition
// protects the whole disk.
func FromDevPath(path string) (ID, PathKind) {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/dev/") {
		return "", KindUnknown
	}
	rest := strings.TrimPrefix(path, "/dev/")

	if strings.HasPrefix(rest, "mapper/") {
		name := strings.TrimPrefix(rest, "mapper/")
		if name == "" || name == "control" || strings.Contains(name, "/") {
			return "", KindUnknown
		}
		return ID(name), KindMapper
	}

	// /dev/disk/by-*, /dev/md/name and friends are not bare devices
	if rest == "" || strings.Contains(rest, "/") {
		return "", KindUnknown
	}
	return BaseDevice(rest), KindDisk
}

// BaseDevice strips a partition suffix from a kernel device name
func BaseDevice(name string) ID {
	// nvme0n1p1 -> nvme0n1, mmcblk0p2 -> mmcblk0
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		if idx := strings.LastIndex(name, "p"); idx > 0 && idx < len(name)-1 && allDigits(name[idx+1:]) {
			return ID(name[:idx])
		}
		return ID(name)
	}

	// dm-3, md127, loop0: the number is part of the name
	if strings.HasPrefix(name, "dm-") || strings.HasPrefix(name, "md") || strings.HasPrefix(name, "loop") {
		return ID(name)
	}

	// sda1 -> sda, xvdb3 -> xvdb
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == 0 {
		return ID(name)
	}
	return ID(name[:i])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Set is an unordered collection of device IDs
type Set map[ID]struct{}

// NewSet builds a set from IDs
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// SetOf builds a set from plain names
func SetOf(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(ID(n))
	}
	return s
}

func (s Set) Add(ids ...ID) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Remove(ids ...ID) {
	for _, id := range ids {
		delete(s, id)
	}
}

func (s Set) Len() int {
	return len(s)
}

// Union adds every member of o to s
func (s Set) Union(o Set) {
	for id := range o {
		s[id] = struct{}{}
	}
}

// Intersect returns a new set holding IDs present in both
func (s Set) Intersect(o Set) Set {
	out := make(Set)
	for id := range s {
		if o.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Minus returns a new set holding IDs of s not in o
func (s Set) Minus(o Set) Set {
	out := make(Set)
	for id := range s {
		if !o.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Overlaps reports whether the sets share any ID
func (s Set) Overlaps(o Set) bool {
	for id := range s {
		if o.Has(id) {
			return true
		}
	}
	return false
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the IDs in lexical order
func (s Set) Sorted() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Strings returns the IDs as sorted plain strings
func (s Set) Strings() []string {
	ids := s.Sorted()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// String joins the sorted IDs with spaces
func (s Set) String() string {
	return strings.Join(s.Strings(), " ")
}
