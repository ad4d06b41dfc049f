package network

import (
	"errors"
	"fmt"

	"github.com/modforged/forgenet/metrics"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog/log"
)

// Entry points the patched host calls into: payload delivery, login ticking
// and login-channel attachment.

// ErrIllegalPacket reports a packet arriving on a side or direction it was
// never meant for; the connection has already been closed when it is
// returned.
var ErrIllegalPacket = errors.New("illegal packet received, terminating connection")

// OnCustomPayload routes an inbound packet to the channel it names. Returns
// whether a listener marked it handled; packets for unknown channels are
// ignored and unhandled.
func OnCustomPayload(reg *Registry, pkt *protocol.Packet, conn *Connection) bool {
	instance, ok := reg.Find(pkt.Channel)
	if !ok {
		return false
	}
	direction, ok := pkt.Direction()
	if !ok {
		return false
	}
	if direction.ReceptionSide() != conn.LocalSide() {
		metrics.ProtocolViolations.Inc()
		conn.Disconnect("Illegal packet received, terminating connection")
		return false
	}
	return instance.Dispatch(direction, pkt, conn)
}

// OnLoginReply handles a serverbound login reply, whose wire framing carries
// only a transaction index. The channel name is resolved from the handshake's
// pending-acknowledgement map before ordinary dispatch.
func OnLoginReply(reg *Registry, pkt *protocol.Packet, conn *Connection) bool {
	negotiator := conn.Negotiator()
	if negotiator == nil {
		log.Warn().Int("index", pkt.Index).Msg("login reply with no active negotiation")
		return false
	}
	channel, ok := negotiator.ResolveIndexedReply(pkt.Index)
	if !ok {
		return false
	}
	fixed := &protocol.Packet{Kind: pkt.Kind, Channel: channel, Index: pkt.Index, Data: pkt.Data}
	return OnCustomPayload(reg, fixed, conn)
}

// ValidatePacketDirection enforces a message's declared expected direction
// against the direction it actually arrived on. A mismatch closes the
// connection and is fatal for the packet.
func ValidatePacketDirection(actual protocol.Direction, expected *protocol.Direction, conn *Connection) error {
	if expected == nil || actual == *expected {
		return nil
	}
	metrics.ProtocolViolations.Inc()
	conn.Disconnect("Illegal packet received, terminating connection")
	return fmt.Errorf("%w: got %s, expected %s", ErrIllegalPacket, actual, *expected)
}

// TickNegotiation drives the connection's login handshake one step and
// reports whether login may progress to the next phase. Connections without
// a negotiator (already completed) report true.
func TickNegotiation(conn *Connection) bool {
	negotiator := conn.Negotiator()
	if negotiator == nil {
		return true
	}
	return negotiator.Tick()
}

// RegisterServerLoginChannel records the client's declared version flag and
// attaches every channel's attributes, on the server, when the intention
// packet arrives.
func RegisterServerLoginChannel(reg *Registry, conn *Connection, versionFlag string) {
	conn.SetNetVersion(versionFlag)
	typ := ConnectionTypeFor(versionFlag)
	for _, instance := range reg.Instances() {
		instance.AttachAttributes(protocol.LoginToClient, conn, typ)
	}
}

// RegisterClientLoginChannel attaches channel attributes on the client. The
// server has not identified itself yet, so its type reads as vanilla here.
func RegisterClientLoginChannel(reg *Registry, conn *Connection) {
	conn.SetNetVersion(NoVersion)
	for _, instance := range reg.Instances() {
		instance.AttachAttributes(protocol.LoginToServer, conn, ConnectionVanilla)
	}
}

// IsVanillaConnection reports whether the peer never declared the framework's
// version flag.
func IsVanillaConnection(conn *Connection) bool {
	return conn.Type() == ConnectionVanilla
}
