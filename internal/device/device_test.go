package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromDevPath(t *testing.T) {
	tests := []struct {
		path string
		id   ID
		kind PathKind
	}{
		{"/dev/sda2", "sda", KindDisk},
		{"/dev/sdz", "sdz", KindDisk},
		{"  /dev/sdb1  ", "sdb", KindDisk},
		{"/dev/xvdb3", "xvdb", KindDisk},
		{"/dev/nvme0n1p1", "nvme0n1", KindDisk},
		{"/dev/nvme0n1", "nvme0n1", KindDisk},
		{"/dev/mmcblk0p2", "mmcblk0", KindDisk},
		{"/dev/dm-3", "dm-3", KindDisk},
		{"/dev/md127", "md127", KindDisk},
		{"/dev/mapper/testvol2", "testvol2", KindMapper},
		{"/dev/mapper/vgROOT-lvROOT", "vgROOT-lvROOT", KindMapper},
		{"/dev/mapper/control", "", KindUnknown},
		{"/dev/disk/by-id/wwn-0x5000", "", KindUnknown},
		{"tmpfs", "", KindUnknown},
		{"", "", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, kind := FromDevPath(tt.path)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestBaseDevice(t *testing.T) {
	assert.Equal(t, ID("sda"), BaseDevice("sda12"))
	assert.Equal(t, ID("nvme1n1"), BaseDevice("nvme1n1"))
	assert.Equal(t, ID("loop7"), BaseDevice("loop7"))
	assert.Equal(t, ID("123"), BaseDevice("123"))
}

func TestSetOperations(t *testing.T) {
	a := SetOf("sdg", "sdh", "testvol2")
	b := SetOf("sdh", "sdz")

	assert.True(t, a.Has("sdg"))
	assert.False(t, a.Has("sdz"))
	assert.Equal(t, []string{"sdh"}, a.Intersect(b).Strings())
	assert.Equal(t, []string{"sdg", "testvol2"}, a.Minus(b).Strings())
	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(SetOf("sda")))

	c := a.Clone()
	c.Union(b)
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 3, a.Len(), "clone must not alias the original")

	c.Remove("sdg", "sdz")
	assert.Equal(t, "sdh testvol2", c.String())

	c.Add("")
	assert.Equal(t, 2, c.Len(), "empty IDs are ignored")
}

func TestSortedIsStable(t *testing.T) {
	s := SetOf("sdj", "sdg", "sdi", "sdh")
	assert.Equal(t, []ID{"sdg", "sdh", "sdi", "sdj"}, s.Sorted())
}
