package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/devrm/internal/device"
	"github.com/sigreer/devrm/internal/topology"
)

func testRelationships() topology.Relationships {
	rel := make(topology.Relationships)
	rel.Add("testvol1", "sdc", "sdd", "sde", "sdf")
	rel.Add("testvol2", "sdg", "sdh", "sdi", "sdj")
	return rel
}

// testvol1 is mounted, sda carries the root filesystem
func testProtected() device.Set {
	return device.SetOf("sda", "testvol1", "sdc", "sdd", "sde", "sdf")
}

func TestResolveExpandsSiblings(t *testing.T) {
	res := Resolve(NewRequest([]string{"sdg"}, nil), testRelationships(), testProtected(), Options{Verbose: true})

	assert.Equal(t, "testvol2", res.Aliases.String())
	assert.Equal(t, "sdg sdh sdi sdj", res.Disks.String())
	assert.Equal(t, 0, res.Blocked.Len())
	require.Len(t, res.Expansions, 1)
	assert.Equal(t, device.ID("sdg"), res.Expansions[0].Disk)
	assert.Equal(t, "sdh sdi sdj", res.Expansions[0].Added.String())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Disk sdg is a part of the multipath device testvol2")
}

func TestResolveBlocksMountedAlias(t *testing.T) {
	res := Resolve(NewRequest(nil, []string{"testvol1"}), testRelationships(), testProtected(), Options{Verbose: true})

	assert.True(t, res.Empty())
	assert.Equal(t, 0, res.Aliases.Len())
	assert.Equal(t, 0, res.Disks.Len())
	assert.True(t, res.Blocked.Has("testvol1"))
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "Refusing to delete the following protected devices:")
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "testvol1")
}

func TestResolvePlainDiskUnchanged(t *testing.T) {
	res := Resolve(NewRequest([]string{"sdz"}, nil), testRelationships(), testProtected(), Options{Verbose: true})

	assert.Equal(t, "sdz", res.Disks.String())
	assert.Equal(t, 0, res.Aliases.Len())
	assert.Empty(t, res.Warnings)
}

func TestResolveSinglePathOfProtectedDeviceIsBlocked(t *testing.T) {
	res := Resolve(NewRequest([]string{"sdd"}, nil), testRelationships(), testProtected(), Options{})

	assert.True(t, res.Empty())
	assert.Equal(t, "sdc sdd sde sdf testvol1", res.Blocked.String())
	assert.Empty(t, res.Warnings, "warnings are only collected when verbose")
}

func TestResolveBestEffortKeepsUnprotected(t *testing.T) {
	req := NewRequest([]string{"sda", "sdz"}, []string{"testvol1", "testvol2"})
	res := Resolve(req, testRelationships(), testProtected(), Options{})

	assert.Equal(t, "testvol2", res.Aliases.String())
	assert.Equal(t, "sdg sdh sdi sdj sdz", res.Disks.String())
	assert.Equal(t, "sda sdc sdd sde sdf testvol1", res.Blocked.String())
}

func TestResolveAliasMaterializesMembers(t *testing.T) {
	res := Resolve(NewRequest(nil, []string{"testvol2"}), testRelationships(), device.NewSet(), Options{})

	assert.Equal(t, "testvol2", res.Aliases.String())
	assert.Equal(t, "sdg sdh sdi sdj", res.Disks.String())
	assert.Empty(t, res.Expansions)
}

func TestResolveAliasWithProtectedMemberIsBlocked(t *testing.T) {
	// sdh alone is an LVM PV: the whole of testvol2 must survive
	protected := device.SetOf("sdh")
	res := Resolve(NewRequest(nil, []string{"testvol2"}), testRelationships(), protected, Options{})

	assert.True(t, res.Empty())
	assert.Equal(t, "sdg sdh sdi sdj testvol2", res.Blocked.String())
}

func TestResolveDoesNotMutateRequest(t *testing.T) {
	req := NewRequest([]string{"sdg"}, nil)
	Resolve(req, testRelationships(), testProtected(), Options{})

	assert.Equal(t, "sdg", req.Disks.String())
	assert.Equal(t, 0, req.Aliases.Len())
}

func TestResolveTransitiveExpansion(t *testing.T) {
	// sdk is shared by two maps (misconfigured host); both come along
	rel := testRelationships()
	rel.Add("mpatha", "sdk", "sdl")
	rel.Add("mpathb", "sdl", "sdm")

	res := Resolve(NewRequest([]string{"sdk"}, nil), rel, device.NewSet(), Options{Verbose: true})

	assert.Equal(t, "mpatha mpathb", res.Aliases.String())
	assert.Equal(t, "sdk sdl sdm", res.Disks.String())
	assert.Len(t, res.Warnings, 2)
}

func TestResolveNilInputs(t *testing.T) {
	res := Resolve(Request{}, nil, nil, Options{})
	assert.True(t, res.Empty())
	assert.Equal(t, 0, res.Blocked.Len())
}

// Requesting any member of an unprotected alias yields the whole alias
func TestSiblingExpansionCompleteness(t *testing.T) {
	rel := testRelationships()
	for _, alias := range rel.Aliases() {
		for _, disk := range rel[alias].Sorted() {
			res := Resolve(Request{Disks: device.NewSet(disk)}, rel, device.NewSet(), Options{})
			assert.True(t, res.Aliases.Has(alias), "%s should pull in %s", disk, alias)
			for member := range rel[alias] {
				assert.True(t, res.Disks.Has(member), "%s should pull in %s", disk, member)
			}
		}
	}
}

// No protected device is ever returned, however it was requested
func TestProtectionInvariant(t *testing.T) {
	rel := testRelationships()
	rel.Add("mpatha", "sdk", "sdl")

	all := device.SetOf("sda", "sdb", "sdk", "sdl", "sdz")
	for _, alias := range rel.Aliases() {
		all.Add(alias)
		all.Union(rel[alias])
	}

	for _, p := range all.Sorted() {
		protected := device.NewSet(p)
		for _, target := range all.Sorted() {
			var req Request
			if rel.HasAlias(target) {
				req = Request{Disks: device.NewSet(), Aliases: device.NewSet(target)}
			} else {
				req = Request{Disks: device.NewSet(target), Aliases: device.NewSet()}
			}
			res := Resolve(req, rel, protected, Options{})
			assert.False(t, res.Disks.Has(p), "protected %s returned as disk for request %s", p, target)
			assert.False(t, res.Aliases.Has(p), "protected %s returned as alias for request %s", p, target)
		}
	}
}

func TestValidate(t *testing.T) {
	disks := device.SetOf("sda", "sdg", "sdz")
	aliases := device.SetOf("testvol1", "testvol2")

	assert.NoError(t, Validate(NewRequest([]string{"sdg"}, []string{"testvol2"}), disks, aliases))
	assert.ErrorIs(t, Validate(NewRequest(nil, nil), disks, aliases), ErrNoDevices)

	err := Validate(NewRequest([]string{"sdq"}, nil), disks, aliases)
	var invalid *InvalidDeviceError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, KindDisk, invalid.Kind)
	assert.Equal(t, "sdq", invalid.Name)
	assert.Contains(t, err.Error(), "sda sdg sdz")

	err = Validate(NewRequest(nil, []string{"nosuch"}), disks, aliases)
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, KindAlias, invalid.Kind)
	assert.Contains(t, err.Error(), "testvol1 testvol2")

	err = Validate(NewRequest([]string{"sda"}, nil), device.NewSet(), aliases)
	assert.Contains(t, err.Error(), "(none)")
}
