package sysblock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/sigreer/devrm/internal/device"
)

// DefaultRoot is the sysfs mount point
const DefaultRoot = "/sys"

// DefaultPrefixes selects SCSI disks; floppy, cdrom and dm devices are excluded
var DefaultPrefixes = []string{"sd"}

// Disk is a block device as seen in sysfs (no process spawning, no drive wake)
type Disk struct {
	Name   device.ID
	Size   *int64  // bytes, from size (in 512-byte sectors)
	Model  *string // from device/model
	Vendor *string // from device/vendor
	State  *string // from device/state (running, offline, etc.)
}

// HumanSize formats the disk size, or "?" when unknown
func (d *Disk) HumanSize() string {
	if d.Size == nil {
		return "?"
	}
	return humanize.IBytes(uint64(*d.Size))
}

// Description is a one-line summary for prompts: "sdg 20 GiB COMPELNT Compellent Vol"
func (d *Disk) Description() string {
	parts := []string{string(d.Name), d.HumanSize()}
	if d.Vendor != nil {
		parts = append(parts, *d.Vendor)
	}
	if d.Model != nil {
		parts = append(parts, *d.Model)
	}
	if d.State != nil && *d.State != "running" {
		parts = append(parts, "("+*d.State+")")
	}
	return strings.Join(parts, " ")
}

// Reader reads block device data from a sysfs tree
type Reader struct {
	fs       afero.Fs
	root     string
	prefixes []string
}

// NewReader creates a Reader rooted at root (usually /sys)
func NewReader(fs afero.Fs, root string, prefixes []string) *Reader {
	if root == "" {
		root = DefaultRoot
	}
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	return &Reader{fs: fs, root: root, prefixes: prefixes}
}

// BlockDir returns the sysfs directory of a block device
func (r *Reader) BlockDir(name device.ID) string {
	return filepath.Join(r.root, "block", string(name))
}

// List returns the names of candidate disks under <root>/block
func (r *Reader) List() device.Set {
	disks := device.NewSet()

	entries, err := afero.ReadDir(r.fs, filepath.Join(r.root, "block"))
	if err != nil {
		return disks
	}

	for _, entry := range entries {
		name := entry.Name()
		if r.matches(name) {
			disks.Add(device.ID(name))
		}
	}

	return disks
}

func (r *Reader) matches(name string) bool {
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Get gathers data for a single device; nil if it has no device directory
func (r *Reader) Get(name device.ID) *Disk {
	blockPath := r.BlockDir(name)
	devicePath := filepath.Join(blockPath, "device")

	if _, err := r.fs.Stat(devicePath); os.IsNotExist(err) {
		return nil
	}

	disk := &Disk{Name: name}

	// Size in 512-byte sectors
	if sectors, ok := r.readString(filepath.Join(blockPath, "size")); ok {
		if n, err := strconv.ParseInt(sectors, 10, 64); err == nil {
			size := n * 512
			disk.Size = &size
		}
	}

	if model, ok := r.readString(filepath.Join(devicePath, "model")); ok {
		disk.Model = &model
	}
	if vendor, ok := r.readString(filepath.Join(devicePath, "vendor")); ok {
		disk.Vendor = &vendor
	}
	if state, ok := r.readString(filepath.Join(devicePath, "state")); ok {
		disk.State = &state
	}

	return disk
}

// GetAll returns details for each ID, skipping ones that are gone
func (r *Reader) GetAll(names device.Set) []*Disk {
	var disks []*Disk
	for _, name := range names.Sorted() {
		if d := r.Get(name); d != nil {
			disks = append(disks, d)
		}
	}
	return disks
}

func (r *Reader) readString(path string) (string, bool) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return "", false
	}
	s := strings.TrimSpace(string(data))
	return s, s != ""
}
