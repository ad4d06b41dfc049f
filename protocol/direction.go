package protocol

// Side identifies one end of a connection.
type Side int

const (
	SideClient Side = iota
	SideServer
)

func (s Side) String() string {
	if s == SideClient {
		return "client"
	}
	return "server"
}

// Direction is one of the four flows a channel message can travel. Each value
// is bound to exactly one concrete wire packet kind, and to the direction that
// carries its reply.
type Direction int

const (
	PlayToServer Direction = iota
	PlayToClient
	LoginToServer
	LoginToClient
)

var directionNames = [...]string{"play-to-server", "play-to-client", "login-to-server", "login-to-client"}

func (d Direction) String() string {
	if d < PlayToServer || d > LoginToClient {
		return "unknown"
	}
	return directionNames[d]
}

// otherWay indexes the reply direction for each value, fixed at definition.
var otherWay = [...]Direction{PlayToClient, PlayToServer, LoginToClient, LoginToServer}

// Reply returns the direction carrying responses to messages sent this way.
func (d Direction) Reply() Direction {
	return otherWay[d]
}

// OriginationSide returns the side that sends messages in this direction.
func (d Direction) OriginationSide() Side {
	switch d {
	case PlayToServer, LoginToServer:
		return SideClient
	default:
		return SideServer
	}
}

// ReceptionSide returns the side that receives messages in this direction.
func (d Direction) ReceptionSide() Side {
	return d.Reply().OriginationSide()
}

// IsLogin reports whether this direction belongs to the login phase.
func (d Direction) IsLogin() bool {
	return d == LoginToServer || d == LoginToClient
}

var packetKinds = [...]PacketKind{KindPlayServerbound, KindPlayClientbound, KindLoginServerbound, KindLoginClientbound}

// PacketKindFor returns the concrete wire packet kind bound to this direction.
func (d Direction) PacketKindFor() PacketKind {
	return packetKinds[d]
}

// BuildPacket constructs the direction-appropriate concrete packet. The
// transaction index is only meaningful for login directions and is dropped
// for play packets.
func (d Direction) BuildPacket(data *Buffer, channel Name, index int) *Packet {
	p := &Packet{Kind: d.PacketKindFor(), Channel: channel, Data: data}
	if d.IsLogin() {
		p.Index = index
	}
	return p
}

// DirectionFor is the reverse lookup from concrete wire packet kind to
// abstract direction, used when decoding an inbound packet of unknown
// provenance.
func DirectionFor(kind PacketKind) (Direction, bool) {
	for d, k := range packetKinds {
		if k == kind {
			return Direction(d), true
		}
	}
	return 0, false
}
