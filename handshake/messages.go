package handshake

import (
	"fmt"
	"sort"

	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
)

// Message catalog for the login negotiation. All strings are bounded at 256
// bytes on the wire; map encodings sort their keys so the same state always
// produces the same bytes.

const maxWireString = 0x100

// ServerModList announces the server's mods, channel versions, synced
// registries and datapack registry keys. It is the first substantive login
// payload and must arrive before any registry snapshot.
//
// Wire:
//
//	VarInt count, UTF[count] mod ids
//	VarInt count, { UTF name, UTF version }[count] channels
//	VarInt count, UTF[count] registry names
//	VarInt count, UTF[count] datapack registry keys
type ServerModList struct {
	Mods               []string
	Channels           map[protocol.Name]string
	Registries         []protocol.Name
	DataPackRegistries []protocol.Name
}

func (m ServerModList) Encode(buf *protocol.Buffer) error {
	if err := writeStringList(buf, m.Mods); err != nil {
		return err
	}
	if err := writeChannelMap(buf, m.Channels); err != nil {
		return err
	}
	if err := writeNameList(buf, m.Registries); err != nil {
		return err
	}
	return writeNameList(buf, m.DataPackRegistries)
}

func DecodeServerModList(buf *protocol.Buffer) (ServerModList, error) {
	var m ServerModList
	var err error
	if m.Mods, err = readStringList(buf); err != nil {
		return m, fmt.Errorf("mod list: %w", err)
	}
	if m.Channels, err = readChannelMap(buf); err != nil {
		return m, fmt.Errorf("channel list: %w", err)
	}
	if m.Registries, err = readNameList(buf); err != nil {
		return m, fmt.Errorf("registry list: %w", err)
	}
	if m.DataPackRegistries, err = readNameList(buf); err != nil {
		return m, fmt.Errorf("datapack registry list: %w", err)
	}
	return m, nil
}

// ServerModData carries display names and versions for the server's mods,
// separate from ServerModList for historical reasons.
//
// Wire: VarInt count, { UTF id, UTF display name, UTF version }[count].
type ServerModData struct {
	Mods map[string]network.ModData
}

func (m ServerModData) Encode(buf *protocol.Buffer) error {
	ids := make([]string, 0, len(m.Mods))
	for id := range m.Mods {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	buf.WriteVarInt(len(ids))
	for _, id := range ids {
		mod := m.Mods[id]
		if err := buf.WriteUTF(id, maxWireString); err != nil {
			return err
		}
		if err := buf.WriteUTF(mod.DisplayName, maxWireString); err != nil {
			return err
		}
		if err := buf.WriteUTF(mod.Version, maxWireString); err != nil {
			return err
		}
	}
	return nil
}

func DecodeServerModData(buf *protocol.Buffer) (ServerModData, error) {
	count, err := buf.ReadVarInt()
	if err != nil {
		return ServerModData{}, err
	}
	mods := make(map[string]network.ModData, count)
	for i := 0; i < count; i++ {
		id, err := buf.ReadUTF(maxWireString)
		if err != nil {
			return ServerModData{}, err
		}
		display, err := buf.ReadUTF(maxWireString)
		if err != nil {
			return ServerModData{}, err
		}
		version, err := buf.ReadUTF(maxWireString)
		if err != nil {
			return ServerModData{}, err
		}
		mods[id] = network.ModData{DisplayName: display, Version: version}
	}
	return ServerModData{Mods: mods}, nil
}

// ClientModListReply answers ServerModList with the client's view. The
// registry map is reserved for registry caching and is always empty for now.
//
// Wire:
//
//	VarInt count, UTF[count] mod ids
//	VarInt count, { UTF name, UTF version }[count] channels
//	VarInt count, { UTF name, UTF hash }[count] registries
type ClientModListReply struct {
	Mods       []string
	Channels   map[protocol.Name]string
	Registries map[protocol.Name]string
}

func (m ClientModListReply) Encode(buf *protocol.Buffer) error {
	if err := writeStringList(buf, m.Mods); err != nil {
		return err
	}
	if err := writeChannelMap(buf, m.Channels); err != nil {
		return err
	}
	return writeChannelMap(buf, m.Registries)
}

func DecodeClientModListReply(buf *protocol.Buffer) (ClientModListReply, error) {
	var m ClientModListReply
	var err error
	if m.Mods, err = readStringList(buf); err != nil {
		return m, fmt.Errorf("mod list: %w", err)
	}
	if m.Channels, err = readChannelMap(buf); err != nil {
		return m, fmt.Errorf("channel list: %w", err)
	}
	if m.Registries, err = readChannelMap(buf); err != nil {
		return m, fmt.Errorf("registry list: %w", err)
	}
	return m, nil
}

// Acknowledge signals receipt and processing of the previous login payload.
// It has no body; the transaction index on the wire framing says which
// payload it answers.
type Acknowledge struct{}

func (Acknowledge) Encode(*protocol.Buffer) error { return nil }

func DecodeAcknowledge(*protocol.Buffer) (Acknowledge, error) { return Acknowledge{}, nil }

// RegistrySnapshot carries one registry's content blob so the client can
// rebuild the id mappings the server will use for the session.
//
// Wire: UTF name, bool has-snapshot, raw snapshot bytes to end of payload.
type RegistrySnapshot struct {
	Name protocol.Name
	// Snapshot is nil when the presence flag is false.
	Snapshot []byte
}

func (m RegistrySnapshot) Encode(buf *protocol.Buffer) error {
	buf.WriteName(m.Name)
	buf.WriteBool(m.Snapshot != nil)
	if m.Snapshot != nil {
		buf.WriteBytes(m.Snapshot)
	}
	return nil
}

func DecodeRegistrySnapshot(buf *protocol.Buffer) (RegistrySnapshot, error) {
	name, err := buf.ReadName()
	if err != nil {
		return RegistrySnapshot{}, err
	}
	has, err := buf.ReadBool()
	if err != nil {
		return RegistrySnapshot{}, err
	}
	m := RegistrySnapshot{Name: name}
	if has {
		m.Snapshot = append([]byte(nil), buf.ReadRemaining()...)
	}
	return m, nil
}

// ConfigData synchronizes one server config file to the client. The file is
// held in memory and never written to disk.
//
// Wire: UTF file name, VarInt count, byte[count] data.
type ConfigData struct {
	FileName string
	Data     []byte
}

func (m ConfigData) Encode(buf *protocol.Buffer) error {
	if err := buf.WriteUTF(m.FileName, 0); err != nil {
		return err
	}
	buf.WriteByteArray(m.Data)
	return nil
}

func DecodeConfigData(buf *protocol.Buffer) (ConfigData, error) {
	name, err := buf.ReadUTF(0)
	if err != nil {
		return ConfigData{}, err
	}
	data, err := buf.ReadByteArray()
	if err != nil {
		return ConfigData{}, err
	}
	return ConfigData{FileName: name, Data: data}, nil
}

// ChannelMismatch tells the client which of its channels the server
// rejected, so the client can render a proper discrepancy table instead of a
// bare error string. Channels missing on the client entirely carry an empty
// version.
//
// Wire: VarInt count, { UTF name, UTF version }[count].
type ChannelMismatch struct {
	Data map[protocol.Name]string
}

func (m ChannelMismatch) Encode(buf *protocol.Buffer) error {
	return writeChannelMap(buf, m.Data)
}

func DecodeChannelMismatch(buf *protocol.Buffer) (ChannelMismatch, error) {
	data, err := readChannelMap(buf)
	if err != nil {
		return ChannelMismatch{}, err
	}
	return ChannelMismatch{Data: data}, nil
}

func writeStringList(buf *protocol.Buffer, list []string) error {
	buf.WriteVarInt(len(list))
	for _, s := range list {
		if err := buf.WriteUTF(s, maxWireString); err != nil {
			return err
		}
	}
	return nil
}

func readStringList(buf *protocol.Buffer) ([]string, error) {
	count, err := buf.ReadVarInt()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := buf.ReadUTF(maxWireString)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func writeNameList(buf *protocol.Buffer, list []protocol.Name) error {
	buf.WriteVarInt(len(list))
	for _, n := range list {
		buf.WriteName(n)
	}
	return nil
}

func readNameList(buf *protocol.Buffer) ([]protocol.Name, error) {
	count, err := buf.ReadVarInt()
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Name, 0, count)
	for i := 0; i < count; i++ {
		n, err := buf.ReadName()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func writeChannelMap(buf *protocol.Buffer, m map[protocol.Name]string) error {
	names := make([]protocol.Name, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })
	buf.WriteVarInt(len(names))
	for _, n := range names {
		buf.WriteName(n)
		if err := buf.WriteUTF(m[n], maxWireString); err != nil {
			return err
		}
	}
	return nil
}

func readChannelMap(buf *protocol.Buffer) (map[protocol.Name]string, error) {
	count, err := buf.ReadVarInt()
	if err != nil {
		return nil, err
	}
	out := make(map[protocol.Name]string, count)
	for i := 0; i < count; i++ {
		n, err := buf.ReadName()
		if err != nil {
			return nil, err
		}
		v, err := buf.ReadUTF(maxWireString)
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}
