package network

import "github.com/modforged/forgenet/protocol"

const (
	// NetVersion is the extension-protocol version flag this build speaks.
	// It rides in the intention packet's hostname field and marks a peer as
	// modded.
	NetVersion = "FML3"

	// NetMarker prefixes every version flag we will recognise as ours.
	NetMarker = "FML"

	// NoVersion marks a connection whose peer never declared a version flag.
	NoVersion = "NONE"
)

var (
	// HandshakeChannelName carries the login negotiation messages.
	HandshakeChannelName = protocol.NewName("fml", "handshake")

	// PlayChannelName carries the framework's own gameplay messages.
	PlayChannelName = protocol.NewName("fml", "play")

	// RegisterChannelName and UnregisterChannelName are the legacy
	// channel-presence channels defined by the host community.
	RegisterChannelName   = protocol.NewName("minecraft", "register")
	UnregisterChannelName = protocol.NewName("minecraft", "unregister")
)

// ConnectionType distinguishes an unmodified peer from one running this
// framework. Version predicates may treat the two differently.
type ConnectionType int

const (
	ConnectionVanilla ConnectionType = iota
	ConnectionModded
)

func (t ConnectionType) String() string {
	if t == ConnectionModded {
		return "modded"
	}
	return "vanilla"
}

// ConnectionTypeFor derives the connection type from the version flag the
// peer declared during connection intention.
func ConnectionTypeFor(versionFlag string) ConnectionType {
	if len(versionFlag) >= len(NetMarker) && versionFlag[:len(NetMarker)] == NetMarker {
		return ConnectionModded
	}
	return ConnectionVanilla
}
