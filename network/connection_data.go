package network

import "github.com/modforged/forgenet/protocol"

// ModData is one remote mod's display name and version.
type ModData struct {
	DisplayName string
	Version     string
}

// VersionInfo is a version string that may be absent entirely: Present false
// means the entry does not exist on the remote side at all, which is distinct
// from an empty version string.
type VersionInfo struct {
	Version string
	Present bool
}

// ConnectionData is an immutable snapshot of the remote's declared mods and
// channels, attached to the connection during the handshake.
//
// The data is declared by the peer and is not authoritative; do not build
// anti-cheat on top of it.
type ConnectionData struct {
	mods     map[string]ModData
	channels map[protocol.Name]string
}

func NewConnectionData(mods map[string]ModData, channels map[protocol.Name]string) *ConnectionData {
	m := make(map[string]ModData, len(mods))
	for k, v := range mods {
		m[k] = v
	}
	c := make(map[protocol.Name]string, len(channels))
	for k, v := range channels {
		c[k] = v
	}
	return &ConnectionData{mods: m, channels: c}
}

// ModIDs returns the remote's declared mod identifiers.
func (d *ConnectionData) ModIDs() []string {
	out := make([]string, 0, len(d.mods))
	for id := range d.mods {
		out = append(out, id)
	}
	return out
}

// Mod returns the declared data for one mod id.
func (d *ConnectionData) Mod(id string) (ModData, bool) {
	m, ok := d.mods[id]
	return m, ok
}

// Mods returns a copy of the remote's declared mod data.
func (d *ConnectionData) Mods() map[string]ModData {
	out := make(map[string]ModData, len(d.mods))
	for k, v := range d.mods {
		out[k] = v
	}
	return out
}

// ChannelVersion returns the remote's declared version for a channel.
func (d *ConnectionData) ChannelVersion(name protocol.Name) (string, bool) {
	v, ok := d.channels[name]
	return v, ok
}

// Channels returns a copy of the remote's declared channel versions.
func (d *ConnectionData) Channels() map[protocol.Name]string {
	out := make(map[protocol.Name]string, len(d.channels))
	for k, v := range d.channels {
		out[k] = v
	}
	return out
}

// LocalInfo carries the local side's own mod and channel data into mismatch
// diagnostics, so they can be built without reaching back into global state.
type LocalInfo struct {
	Mods     map[string]ModData
	Channels map[protocol.Name]string
}

// MismatchData is the structured diagnostic attached to a connection when
// negotiation fails: the entries that failed validation, enriched with the
// inferred mod version from whichever side the data originated, plus the
// counterpart data from the non-originating side for side-by-side display.
type MismatchData struct {
	// Mismatched maps the failing channel (or synthetic mod name for
	// registry failures) to the version of the mod it belongs to. An absent
	// VersionInfo means the entry is missing on one side rather than
	// version-mismatched.
	Mismatched map[protocol.Name]VersionInfo

	// Present holds the same entries as seen from the side the mismatch data
	// did not originate from.
	Present map[protocol.Name]ModData

	// FromServer reports whether the mismatched data originated from data the
	// server sent. It does not say which side ran the failing check.
	FromServer bool
}

// HasMismatches reports whether any entry failed validation.
func (m *MismatchData) HasMismatches() bool {
	return m != nil && len(m.Mismatched) > 0
}

// ChannelMismatchData builds diagnostics from channels that failed version
// validation. mismatched carries the remote version per failing channel, or
// absence when the channel is missing on the remote. fromServer says whether
// the failing data was sent by the server.
func ChannelMismatchData(mismatched map[protocol.Name]VersionInfo, connData *ConnectionData, fromServer bool, local LocalInfo) *MismatchData {
	return &MismatchData{
		Mismatched: enhanceWithModVersion(mismatched, connData, fromServer, local),
		Present:    presentChannelData(mismatched, connData, fromServer, local),
		FromServer: fromServer,
	}
}

// RegistryMismatchData builds diagnostics from missing registry entries,
// keyed registry name to missing entry names. Registry checks only ever fail
// on the receiving client, so the data is always treated as client-detected.
func RegistryMismatchData(missing map[protocol.Name][]protocol.Name, connData *ConnectionData, local LocalInfo) *MismatchData {
	namespaces := make(map[string]struct{})
	for _, entries := range missing {
		for _, entry := range entries {
			namespaces[entry.Namespace()] = struct{}{}
		}
	}

	mismatched := make(map[protocol.Name]VersionInfo, len(namespaces))
	for ns := range namespaces {
		key := protocol.NewName(ns, "")
		if mod, ok := local.Mods[ns]; ok {
			mismatched[key] = VersionInfo{Version: mod.Version, Present: true}
		} else {
			mismatched[key] = VersionInfo{}
		}
	}

	present := make(map[protocol.Name]ModData)
	if connData != nil {
		for id, mod := range connData.mods {
			if _, ok := namespaces[id]; ok {
				present[protocol.NewName(id, "")] = mod
			}
		}
	}

	return &MismatchData{Mismatched: mismatched, Present: present, FromServer: false}
}

// enhanceWithModVersion resolves each mismatched channel to the version of
// the mod owning its namespace, read from whichever side the mismatch data
// originated from. Missing channels stay absent.
func enhanceWithModVersion(mismatched map[protocol.Name]VersionInfo, connData *ConnectionData, fromServer bool, local LocalInfo) map[protocol.Name]VersionInfo {
	modVersions := make(map[string]string)
	if fromServer {
		if connData != nil {
			for id, mod := range connData.mods {
				modVersions[id] = mod.Version
			}
		}
	} else {
		for id, mod := range local.Mods {
			modVersions[id] = mod.Version
		}
	}

	out := make(map[protocol.Name]VersionInfo, len(mismatched))
	for channel, info := range mismatched {
		if !info.Present {
			out[channel] = VersionInfo{}
			continue
		}
		version, ok := modVersions[channel.Namespace()]
		out[channel] = VersionInfo{Version: version, Present: ok}
	}
	return out
}

// presentChannelData gathers the non-originating side's view of the
// mismatched channels for comparison.
func presentChannelData(mismatched map[protocol.Name]VersionInfo, connData *ConnectionData, fromServer bool, local LocalInfo) map[protocol.Name]ModData {
	var channels map[protocol.Name]string
	if fromServer {
		channels = local.Channels
	} else if connData != nil {
		channels = connData.channels
	}

	out := make(map[protocol.Name]ModData)
	for channel := range channels {
		if _, ok := mismatched[channel]; !ok {
			continue
		}
		out[channel] = presentModForChannel(channel, connData, fromServer, local)
	}
	return out
}

func presentModForChannel(channel protocol.Name, connData *ConnectionData, fromServer bool, local LocalInfo) ModData {
	ns := channel.Namespace()
	if fromServer {
		if mod, ok := local.Mods[ns]; ok {
			return mod
		}
		return ModData{DisplayName: ns}
	}
	var mod ModData
	ok := false
	if connData != nil {
		mod, ok = connData.mods[ns]
	}
	if !ok {
		return ModData{DisplayName: ns}
	}
	if mod.DisplayName == "" {
		return ModData{DisplayName: ns, Version: mod.Version}
	}
	return mod
}
