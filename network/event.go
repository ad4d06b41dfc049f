package network

import (
	"github.com/modforged/forgenet/protocol"
)

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	// EventPayload is an ordinary gameplay message arriving on a channel.
	EventPayload EventKind = iota
	// EventLoginPayload is a login-phase message arriving on a channel.
	EventLoginPayload
	// EventRegistrationChange signals the remote announced or withdrew
	// interest in this channel via the legacy presence protocol.
	EventRegistrationChange
	// EventGatherLoginPayloads solicits the channel's login payloads when a
	// handshake session is constructed.
	EventGatherLoginPayloads
)

// RegistrationChange says which way a presence announcement went.
type RegistrationChange int

const (
	ChannelRegistered RegistrationChange = iota
	ChannelUnregistered
)

// Event is the tagged variant dispatched to channel listeners. Exactly the
// fields relevant to Kind are populated.
type Event struct {
	Kind    EventKind
	Payload *protocol.Buffer
	Context *Context
	Change  RegistrationChange
	Gather  *LoginPayloadGather
}

// LoginPayload is one handshake-phase message gathered from a channel and
// queued for transmission to an incoming peer.
type LoginPayload struct {
	Data          *protocol.Buffer
	ChannelName   protocol.Name
	Context       string
	NeedsResponse bool
}

// LoginPayloadGather collects login payloads from every channel during
// handshake construction.
type LoginPayloadGather struct {
	collected *[]LoginPayload
	local     bool
}

func NewLoginPayloadGather(into *[]LoginPayload, local bool) *LoginPayloadGather {
	return &LoginPayloadGather{collected: into, local: local}
}

// Add queues a payload that requires an acknowledgement from the peer.
func (g *LoginPayloadGather) Add(data *protocol.Buffer, channel protocol.Name, context string) {
	g.AddWithResponse(data, channel, context, true)
}

// AddWithResponse queues a payload, stating whether the peer must reply.
func (g *LoginPayloadGather) AddWithResponse(data *protocol.Buffer, channel protocol.Name, context string, needsResponse bool) {
	*g.collected = append(*g.collected, LoginPayload{
		Data:          data,
		ChannelName:   channel,
		Context:       context,
		NeedsResponse: needsResponse,
	})
}

// IsLocal reports whether the connection being negotiated is in-process.
func (g *LoginPayloadGather) IsLocal() bool { return g.local }

// Context accompanies every dispatched message: the connection it arrived on,
// the direction it travelled, and the login transaction index (meaningless
// outside the login phase). Listeners mark the event handled through it.
type Context struct {
	conn        *Connection
	direction   protocol.Direction
	transaction int
	handled     bool
}

func NewContext(conn *Connection, direction protocol.Direction, transaction int) *Context {
	return &Context{conn: conn, direction: direction, transaction: transaction}
}

func (c *Context) Connection() *Connection    { return c.conn }
func (c *Context) Direction() protocol.Direction { return c.direction }
func (c *Context) Transaction() int           { return c.transaction }

// SetHandled marks the message consumed; Dispatch reports this flag.
func (c *Context) SetHandled(handled bool) { c.handled = handled }
func (c *Context) Handled() bool           { return c.handled }

// SendReply builds a packet on the paired direction, reusing this message's
// transaction index, and sends it back over the connection.
func (c *Context) SendReply(channel protocol.Name, data *protocol.Buffer) {
	pkt := c.direction.Reply().BuildPacket(data, channel, c.transaction)
	c.conn.Send(pkt)
}

// EnqueueWork hands fn to the receiving side's simulation work queue and
// returns a channel closed once it has run. This is the sanctioned hand-off
// for listeners that must touch simulation state.
func (c *Context) EnqueueWork(fn func()) <-chan struct{} {
	return c.conn.WorkQueueFor(c.direction.ReceptionSide()).Submit(fn)
}
