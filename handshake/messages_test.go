package handshake

import (
	"bytes"
	"testing"

	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
)

// TestServerModList_RoundTrip checks the four-section layout survives the
// wire, including empty sections.
func TestServerModList_RoundTrip(t *testing.T) {
	msg := ServerModList{
		Mods: []string{"moda", "modb"},
		Channels: map[protocol.Name]string{
			protocol.MustName("moda:chan"): "1",
			protocol.MustName("modb:chan"): "2.0",
		},
		Registries:         []protocol.Name{protocol.MustName("minecraft:block")},
		DataPackRegistries: nil,
	}

	buf := protocol.NewBuffer()
	if err := msg.Encode(buf); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeServerModList(protocol.BufferFrom(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Mods) != 2 || got.Mods[0] != "moda" || got.Mods[1] != "modb" {
		t.Errorf("mods = %v", got.Mods)
	}
	if got.Channels[protocol.MustName("modb:chan")] != "2.0" {
		t.Errorf("channels = %v", got.Channels)
	}
	if len(got.Registries) != 1 || got.Registries[0].String() != "minecraft:block" {
		t.Errorf("registries = %v", got.Registries)
	}
	if len(got.DataPackRegistries) != 0 {
		t.Errorf("datapack registries = %v, want empty", got.DataPackRegistries)
	}
}

// TestServerModList_Deterministic checks map ordering cannot change the wire
// bytes.
func TestServerModList_Deterministic(t *testing.T) {
	msg := ServerModList{
		Channels: map[protocol.Name]string{
			protocol.MustName("modc:c"): "3",
			protocol.MustName("moda:a"): "1",
			protocol.MustName("modb:b"): "2",
		},
	}

	first := protocol.NewBuffer()
	if err := msg.Encode(first); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again := protocol.NewBuffer()
		if err := msg.Encode(again); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first.Bytes(), again.Bytes()) {
			t.Fatal("channel map encoding is not deterministic")
		}
	}
}

// TestServerModData_RoundTrip checks mod metadata survives the wire.
func TestServerModData_RoundTrip(t *testing.T) {
	msg := ServerModData{Mods: map[string]network.ModData{
		"moda": {DisplayName: "Mod A", Version: "1.2"},
		"modb": {DisplayName: "", Version: "0.1"},
	}}

	buf := protocol.NewBuffer()
	if err := msg.Encode(buf); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeServerModData(protocol.BufferFrom(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Mods["moda"] != (network.ModData{DisplayName: "Mod A", Version: "1.2"}) {
		t.Errorf("moda = %+v", got.Mods["moda"])
	}
	if got.Mods["modb"].Version != "0.1" {
		t.Errorf("modb = %+v", got.Mods["modb"])
	}
}

// TestAcknowledge_EmptyBody checks the acknowledgement has no payload bytes.
func TestAcknowledge_EmptyBody(t *testing.T) {
	buf := protocol.NewBuffer()
	if err := (Acknowledge{}).Encode(buf); err != nil {
		t.Fatal(err)
	}
	if len(buf.Bytes()) != 0 {
		t.Errorf("acknowledge body = %x, want empty", buf.Bytes())
	}
}

// TestRegistrySnapshot_RoundTrip checks both the present and absent snapshot
// encodings, preserving the nil/empty distinction.
func TestRegistrySnapshot_RoundTrip(t *testing.T) {
	name := protocol.MustName("minecraft:item")

	with := RegistrySnapshot{Name: name, Snapshot: []byte{0xDE, 0xAD}}
	buf := protocol.NewBuffer()
	if err := with.Encode(buf); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRegistrySnapshot(protocol.BufferFrom(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != name || !bytes.Equal(got.Snapshot, []byte{0xDE, 0xAD}) {
		t.Errorf("decoded = %+v", got)
	}

	without := RegistrySnapshot{Name: name}
	buf = protocol.NewBuffer()
	if err := without.Encode(buf); err != nil {
		t.Fatal(err)
	}
	got, err = DecodeRegistrySnapshot(protocol.BufferFrom(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Snapshot != nil {
		t.Errorf("absent snapshot decoded as %v, want nil", got.Snapshot)
	}
}

// TestConfigData_RoundTrip checks config payload framing.
func TestConfigData_RoundTrip(t *testing.T) {
	msg := ConfigData{FileName: "moda-server.toml", Data: []byte("key = true\n")}
	buf := protocol.NewBuffer()
	if err := msg.Encode(buf); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeConfigData(protocol.BufferFrom(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.FileName != msg.FileName || !bytes.Equal(got.Data, msg.Data) {
		t.Errorf("decoded = %+v", got)
	}
}

// TestChannelMismatch_RoundTrip checks absent client channels encode as an
// empty version string and survive the trip.
func TestChannelMismatch_RoundTrip(t *testing.T) {
	msg := ChannelMismatch{Data: map[protocol.Name]string{
		protocol.MustName("moda:chan"): "2",
		protocol.MustName("modb:chan"): "", // missing on the client
	}}
	buf := protocol.NewBuffer()
	if err := msg.Encode(buf); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeChannelMismatch(protocol.BufferFrom(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got.Data[protocol.MustName("moda:chan")] != "2" {
		t.Errorf("decoded = %v", got.Data)
	}
	if v, ok := got.Data[protocol.MustName("modb:chan")]; !ok || v != "" {
		t.Errorf("absent marker lost: %q, %v", v, ok)
	}
}

// TestMessages_TruncatedInput checks decoders error instead of panicking on
// short buffers.
func TestMessages_TruncatedInput(t *testing.T) {
	full := protocol.NewBuffer()
	msg := ServerModList{
		Mods:     []string{"moda"},
		Channels: map[protocol.Name]string{protocol.MustName("moda:chan"): "1"},
	}
	if err := msg.Encode(full); err != nil {
		t.Fatal(err)
	}

	wire := full.Bytes()
	for cut := 0; cut < len(wire); cut++ {
		if _, err := DecodeServerModList(protocol.BufferFrom(wire[:cut])); err == nil {
			t.Errorf("truncation at %d decoded without error", cut)
		}
	}
}
