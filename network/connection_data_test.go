package network

import (
	"testing"

	"github.com/modforged/forgenet/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConnectionData_Immutable checks the snapshot copies its inputs and its
// accessors copy their outputs.
func TestConnectionData_Immutable(t *testing.T) {
	mods := map[string]ModData{"moda": {DisplayName: "Mod A", Version: "1"}}
	channels := map[protocol.Name]string{protocol.MustName("moda:chan"): "1"}
	data := NewConnectionData(mods, channels)

	mods["modb"] = ModData{}
	channels[protocol.MustName("modb:chan")] = "1"
	assert.Len(t, data.ModIDs(), 1, "input mutation leaked into snapshot")
	assert.Len(t, data.Channels(), 1, "input mutation leaked into snapshot")

	data.Mods()["modc"] = ModData{}
	_, ok := data.Mod("modc")
	assert.False(t, ok, "output mutation leaked into snapshot")
}

// TestChannelMismatchData_FromServer checks that when the server's data
// failed validation on the client, mod versions resolve from the remote
// snapshot and the Present side reflects local channels.
func TestChannelMismatchData_FromServer(t *testing.T) {
	chanA := protocol.MustName("moda:chan")
	chanB := protocol.MustName("modb:chan")

	remote := NewConnectionData(
		map[string]ModData{"moda": {DisplayName: "Mod A", Version: "9"}},
		map[protocol.Name]string{chanA: "9"},
	)
	local := LocalInfo{
		Mods:     map[string]ModData{"moda": {DisplayName: "Mod A", Version: "1"}, "modb": {Version: "2"}},
		Channels: map[protocol.Name]string{chanA: "1", chanB: "2"},
	}
	mismatched := map[protocol.Name]VersionInfo{
		chanA: {Version: "9", Present: true}, // version conflict
		chanB: {},                            // missing on the server
	}

	data := ChannelMismatchData(mismatched, remote, true, local)
	require.True(t, data.HasMismatches())
	assert.True(t, data.FromServer)

	// present channel resolves to the server mod's version
	assert.Equal(t, VersionInfo{Version: "9", Present: true}, data.Mismatched[chanA])
	// missing channel stays absent rather than picking up a mod version
	assert.Equal(t, VersionInfo{}, data.Mismatched[chanB])

	// the counterpart view comes from the local side
	require.Contains(t, data.Present, chanA)
	assert.Equal(t, ModData{DisplayName: "Mod A", Version: "1"}, data.Present[chanA])
	assert.Equal(t, ModData{Version: "2"}, data.Present[chanB])
}

// TestChannelMismatchData_FromClient checks the mirrored resolution when the
// client's data failed validation on the server.
func TestChannelMismatchData_FromClient(t *testing.T) {
	chanA := protocol.MustName("moda:chan")

	remote := NewConnectionData(
		map[string]ModData{"moda": {Version: "3"}},
		map[protocol.Name]string{chanA: "3"},
	)
	local := LocalInfo{
		Mods:     map[string]ModData{"moda": {DisplayName: "Mod A", Version: "1"}},
		Channels: map[protocol.Name]string{chanA: "1"},
	}
	mismatched := map[protocol.Name]VersionInfo{chanA: {Version: "1", Present: true}}

	data := ChannelMismatchData(mismatched, remote, false, local)
	assert.False(t, data.FromServer)
	// mod version resolves from the local mod list
	assert.Equal(t, VersionInfo{Version: "1", Present: true}, data.Mismatched[chanA])
	// counterpart comes from the remote snapshot; a blank display name falls
	// back to the namespace
	assert.Equal(t, ModData{DisplayName: "moda", Version: "3"}, data.Present[chanA])
}

// TestRegistryMismatchData checks missing registry entries collapse to their
// owning namespaces and are always treated as client-detected.
func TestRegistryMismatchData(t *testing.T) {
	missing := map[protocol.Name][]protocol.Name{
		protocol.MustName("minecraft:block"): {
			protocol.MustName("moda:machine"),
			protocol.MustName("modb:widget"),
		},
	}
	remote := NewConnectionData(map[string]ModData{"moda": {DisplayName: "Mod A", Version: "9"}}, nil)
	local := LocalInfo{Mods: map[string]ModData{"moda": {Version: "1"}}}

	data := RegistryMismatchData(missing, remote, local)
	require.True(t, data.HasMismatches())
	assert.False(t, data.FromServer, "registry failures are always client-side")

	// locally installed namespace carries its version, the unknown one is absent
	assert.Equal(t, VersionInfo{Version: "1", Present: true}, data.Mismatched[protocol.NewName("moda", "")])
	assert.Equal(t, VersionInfo{}, data.Mismatched[protocol.NewName("modb", "")])

	// only namespaces the remote declared show on the present side
	assert.Contains(t, data.Present, protocol.NewName("moda", ""))
	assert.NotContains(t, data.Present, protocol.NewName("modb", ""))
}

// TestMismatchData_HasMismatches covers nil and empty receivers.
func TestMismatchData_HasMismatches(t *testing.T) {
	var nilData *MismatchData
	assert.False(t, nilData.HasMismatches())
	assert.False(t, (&MismatchData{}).HasMismatches())
}
