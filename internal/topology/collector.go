package topology

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sigreer/devrm/internal/device"
)

// Reason describes why a device is protected
type Reason string

const (
	ReasonMount  Reason = "mount"
	ReasonLVM    Reason = "lvm"
	ReasonMDRaid Reason = "mdraid"
	ReasonZFS    Reason = "zfs"
)

// Extra protection sources selectable in config
const (
	SourceMDRaid = "mdraid"
	SourceZFS    = "zfs"
)

// Snapshot is the live device topology at the time of collection
type Snapshot struct {
	Relationships Relationships
	Protected     device.Set
	Reasons       map[device.ID][]Reason
	// MapNodes maps a kernel dm node (dm-2) to the alias it carries, either
	// directly or through a map stacked on it (kpartx partition, LV)
	MapNodes map[device.ID]device.ID
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Relationships: make(Relationships),
		Protected:     device.NewSet(),
		Reasons:       make(map[device.ID][]Reason),
		MapNodes:      make(map[device.ID]device.ID),
	}
}

// Protect marks ids as protected for reason
func (s *Snapshot) Protect(reason Reason, ids ...device.ID) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.Protected.Add(id)
		if !hasReason(s.Reasons[id], reason) {
			s.Reasons[id] = append(s.Reasons[id], reason)
		}
	}
}

func hasReason(reasons []Reason, r Reason) bool {
	for _, existing := range reasons {
		if existing == r {
			return true
		}
	}
	return false
}

// ProtectPath classifies a /dev path and protects what it refers to.
// A mapper path of a known alias (or of one of its partitions), or the dm
// node of one, also protects the alias and its member disks.
func (s *Snapshot) ProtectPath(reason Reason, path string) {
	id, kind := device.FromDevPath(path)
	switch kind {
	case device.KindDisk:
		s.Protect(reason, id)
		if alias, ok := s.MapNodes[id]; ok {
			s.Protect(reason, alias)
			s.Protect(reason, s.Relationships[alias].Sorted()...)
		}
	case device.KindMapper:
		s.Protect(reason, id)
		if alias, ok := s.aliasForMapperName(id); ok {
			s.Protect(reason, alias)
			s.Protect(reason, s.Relationships[alias].Sorted()...)
		}
	}
}

// aliasForMapperName matches testvol2, testvol2p1, testvol2-part1 and testvol21
func (s *Snapshot) aliasForMapperName(name device.ID) (device.ID, bool) {
	if s.Relationships.HasAlias(name) {
		return name, true
	}
	n := string(name)
	for _, alias := range s.Relationships.Aliases() {
		a := string(alias)
		if !strings.HasPrefix(n, a) {
			continue
		}
		suffix := strings.TrimPrefix(n, a)
		suffix = strings.TrimPrefix(suffix, "-part")
		suffix = strings.TrimPrefix(suffix, "p")
		if isDigits(suffix) {
			return alias, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
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

// Options configures a Collector
type Options struct {
	// FilesystemTypes restricts which mounts protect their source device
	FilesystemTypes []string
	// ExtraSources enables additional protection sources (mdraid, zfs)
	ExtraSources []string
	// SysfsRoot is where dm slaves are looked up, /sys if empty
	SysfsRoot string
}

// Collector queries the host for multipath, mount and volume-manager state
type Collector struct {
	runner Runner
	fs     afero.Fs
	opts   Options
	log    zerolog.Logger
}

// NewCollector creates a Collector. fs is used for /proc and sysfs reads.
func NewCollector(runner Runner, fs afero.Fs, opts Options, log zerolog.Logger) *Collector {
	if len(opts.FilesystemTypes) == 0 {
		opts.FilesystemTypes = DefaultFilesystemTypes
	}
	if opts.SysfsRoot == "" {
		opts.SysfsRoot = "/sys"
	}
	return &Collector{
		runner: runner,
		fs:     fs,
		opts:   opts,
		log:    log.With().Str("component", "topology").Logger(),
	}
}

// Collect builds a fresh snapshot. It never fails: a query that is
// unavailable or errors contributes nothing.
func (c *Collector) Collect() *Snapshot {
	snap := NewSnapshot()

	// Relationships first: mount and PV classification needs the alias map
	for _, alias := range c.Aliases() {
		snap.Relationships.Add(alias)
		out := c.query("multipath", "-ll", string(alias))
		for _, p := range ParseMembers(out) {
			snap.Relationships.Add(alias, p.Device)
		}
		if node := ParseMapNode(out); node != "" {
			snap.MapNodes[node] = alias
		}
		c.log.Debug().Str("alias", string(alias)).Strs("members", snap.Relationships[alias].Strings()).Msg("multipath device")
	}

	for _, src := range ParseMountSources(c.query("findmnt", findmntArgs(c.opts.FilesystemTypes)...)) {
		c.protectPath(snap, ReasonMount, src)
	}

	for _, pv := range ParsePhysicalVolumes(c.query("pvs", pvsArgs...)) {
		c.protectPath(snap, ReasonLVM, pv)
	}

	if c.sourceEnabled(SourceMDRaid) {
		for _, arr := range ParseMDStat(c.readFile(MDStatPath)) {
			for _, member := range arr.Members {
				c.protectPath(snap, ReasonMDRaid, member)
			}
		}
	}

	if c.sourceEnabled(SourceZFS) {
		for _, dev := range ParseZpoolDevices(c.query("zpool", zpoolStatusArgs...)) {
			c.protectPath(snap, ReasonZFS, dev)
		}
	}

	c.log.Debug().Int("aliases", len(snap.Relationships)).Strs("protected", snap.Protected.Strings()).Msg("topology collected")
	return snap
}

// protectPath is Snapshot.ProtectPath with dm nodes traced to their alias first
func (c *Collector) protectPath(snap *Snapshot, reason Reason, path string) {
	if id, kind := device.FromDevPath(path); kind == device.KindDisk && isDMNode(id) {
		c.traceMapNode(snap, id)
	}
	snap.ProtectPath(reason, path)
}

// traceMapNode follows <sysfs>/block/<node>/slaves down to a multipath map
// and records the alias for node. zpool status -L and /proc/mdstat name
// devices by dm node, including partitions and LVs on top of a map.
func (c *Collector) traceMapNode(snap *Snapshot, node device.ID) {
	if _, ok := snap.MapNodes[node]; ok {
		return
	}

	seen := device.NewSet(node)
	queue := []device.ID{node}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entries, err := afero.ReadDir(c.fs, filepath.Join(c.opts.SysfsRoot, "block", string(cur), "slaves"))
		if err != nil {
			continue
		}
		for _, e := range entries {
			slave := device.ID(e.Name())
			if alias, ok := snap.MapNodes[slave]; ok {
				snap.MapNodes[node] = alias
				c.log.Debug().Str("node", string(node)).Str("alias", string(alias)).Msg("dm node stacked on multipath device")
				return
			}
			if isDMNode(slave) && !seen.Has(slave) {
				seen.Add(slave)
				queue = append(queue, slave)
			}
		}
	}
}

func isDMNode(id device.ID) bool {
	return strings.HasPrefix(string(id), "dm-") && isDigits(strings.TrimPrefix(string(id), "dm-"))
}

// Aliases lists the multipath aliases currently known to the host
func (c *Collector) Aliases() []device.ID {
	return ParseAliases(c.query("multipath", "-l", "-v", "1"))
}

func (c *Collector) sourceEnabled(name string) bool {
	for _, s := range c.opts.ExtraSources {
		if s == name {
			return true
		}
	}
	return false
}

// query runs a host command, mapping any failure to empty output
func (c *Collector) query(name string, args ...string) string {
	out, err := c.runner.Run(name, args...)
	if err != nil {
		c.log.Debug().Err(err).Str("cmd", name).Msg("query unavailable, treating as empty")
		return ""
	}
	return string(out)
}

func (c *Collector) readFile(path string) string {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("read unavailable, treating as empty")
		return ""
	}
	return string(data)
}
