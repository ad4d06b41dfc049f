package protocol

// PacketKind is the concrete host wire packet a channel message rides in.
// Play payloads use the custom-payload packets; login payloads use the
// query/reply pair, which is the only place a transaction index exists on
// the wire.
type PacketKind int

const (
	KindPlayServerbound PacketKind = iota
	KindPlayClientbound
	KindLoginServerbound
	KindLoginClientbound
)

var packetKindNames = [...]string{"play-serverbound", "play-clientbound", "login-serverbound", "login-clientbound"}

func (k PacketKind) String() string {
	if k < KindPlayServerbound || k > KindLoginClientbound {
		return "unknown"
	}
	return packetKindNames[k]
}

// Packet is the framework's view of a host wire packet: payload bytes tagged
// with the channel they belong to and, for login packets, the transaction
// index identifying the request/response pair.
//
// Serverbound login replies carry no channel name on the wire; the handshake
// resolves it from the transaction index before dispatch.
type Packet struct {
	Kind    PacketKind
	Channel Name
	Index   int
	Data    *Buffer
}

// Direction returns the abstract direction for this packet's kind.
func (p *Packet) Direction() (Direction, bool) {
	return DirectionFor(p.Kind)
}
