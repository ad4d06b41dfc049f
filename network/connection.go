package network

import (
	"sync"

	"github.com/google/uuid"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Transport is the host's connection primitive. The host delivers inbound
// packets on its own processing thread and accepts outbound packets and
// disconnect requests through this interface.
type Transport interface {
	Send(pkt *protocol.Packet)
	Disconnect(reason string)
}

// LoginNegotiator is the per-connection handshake attached during the login
// phase. Tick is driven once per login-state poll; ResolveIndexedReply maps a
// login reply's transaction index back to the channel that asked for it.
type LoginNegotiator interface {
	Tick() bool
	ResolveIndexedReply(index int) (protocol.Name, bool)
}

// Connection is the framework's per-connection state, riding alongside the
// host's own connection object. All fields beyond the transport are the
// typed attribute context populated during login.
type Connection struct {
	id        uuid.UUID
	transport Transport
	localSide protocol.Side
	memory    bool
	logger    zerolog.Logger

	queues [2]WorkQueue // indexed by protocol.Side

	mu           sync.Mutex
	closed       bool
	closeReason  string
	netVersion   string
	negotiator   LoginNegotiator
	data         *ConnectionData
	mismatch     *MismatchData
	channelList  *ChannelList
	channelAttrs map[string]any
}

// NewConnection wraps a host transport. localSide says which end of the
// connection this process is. Work queues default to inline execution.
func NewConnection(transport Transport, localSide protocol.Side) *Connection {
	id := uuid.New()
	return &Connection{
		id:          id,
		transport:   transport,
		localSide:   localSide,
		logger:      log.With().Str("com", "connection").Str("conn_id", id.String()).Logger(),
		queues:      [2]WorkQueue{InlineQueue{}, InlineQueue{}},
		netVersion:  NoVersion,
		channelList: NewChannelList(),
	}
}

func (c *Connection) ID() uuid.UUID            { return c.id }
func (c *Connection) LocalSide() protocol.Side { return c.localSide }
func (c *Connection) Logger() zerolog.Logger   { return c.logger }

// IsMemoryConnection reports whether both ends live in this process, in which
// case some login payloads (registry snapshots, config sync) are skipped.
func (c *Connection) IsMemoryConnection() bool { return c.memory }

// SetMemoryConnection marks this as an in-process connection. Call before
// login begins.
func (c *Connection) SetMemoryConnection(v bool) { c.memory = v }

// SetWorkQueue installs the simulation work queue for a logical side.
func (c *Connection) SetWorkQueue(side protocol.Side, q WorkQueue) {
	c.queues[side] = q
}

// WorkQueueFor returns the simulation work queue for a logical side.
func (c *Connection) WorkQueueFor(side protocol.Side) WorkQueue {
	return c.queues[side]
}

// Send forwards a packet to the host transport. Packets sent after the
// connection closed are dropped.
func (c *Connection) Send(pkt *protocol.Packet) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.logger.Debug().Str("channel", pkt.Channel.String()).Msg("dropping packet on closed connection")
		return
	}
	c.transport.Send(pkt)
}

// Disconnect forcibly closes the connection with a human-readable reason.
func (c *Connection) Disconnect(reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeReason = reason
	c.mu.Unlock()
	c.logger.Warn().Str("reason", reason).Msg("disconnecting")
	c.transport.Disconnect(reason)
}

// Closed reports whether Disconnect has been called, and with what reason.
func (c *Connection) Closed() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeReason
}

// NetVersion returns the peer's declared extension-protocol version flag.
func (c *Connection) NetVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.netVersion
}

func (c *Connection) SetNetVersion(v string) {
	c.mu.Lock()
	c.netVersion = v
	c.mu.Unlock()
}

// Type derives the peer kind from the declared version flag.
func (c *Connection) Type() ConnectionType {
	return ConnectionTypeFor(c.NetVersion())
}

// Negotiator returns the login handshake attached to this connection, nil
// once the handshake completed and cleared itself.
func (c *Connection) Negotiator() LoginNegotiator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negotiator
}

func (c *Connection) SetNegotiator(n LoginNegotiator) {
	c.mu.Lock()
	c.negotiator = n
	c.mu.Unlock()
}

// Data returns the snapshot of the remote's declared mods and channels, nil
// until the handshake recorded one.
func (c *Connection) Data() *ConnectionData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

func (c *Connection) SetData(d *ConnectionData) {
	c.mu.Lock()
	c.data = d
	c.mu.Unlock()
}

// AppendData merges new mod or channel data into the existing snapshot,
// keeping whichever half the old snapshot already had.
func (c *Connection) AppendData(mods map[string]ModData, channels map[protocol.Name]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = NewConnectionData(mods, channels)
		return
	}
	oldMods, oldChannels := c.data.mods, c.data.channels
	if len(oldMods) > 0 {
		mods = oldMods
	}
	if len(oldChannels) > 0 {
		channels = oldChannels
	}
	c.data = NewConnectionData(mods, channels)
}

// Mismatch returns the negotiation failure diagnostics, nil unless the
// handshake terminated with a mismatch.
func (c *Connection) Mismatch() *MismatchData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mismatch
}

func (c *Connection) SetMismatch(m *MismatchData) {
	c.mu.Lock()
	c.mismatch = m
	c.mu.Unlock()
}

// Channels returns the legacy presence channel list for this connection.
func (c *Connection) Channels() *ChannelList {
	return c.channelList
}

// Attr returns the channel attribute stored under key.
func (c *Connection) Attr(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelAttrs[key]
}

// SetAttrIfAbsent stores a channel attribute unless one already exists, and
// returns the value now present.
func (c *Connection) SetAttrIfAbsent(key string, value any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channelAttrs == nil {
		c.channelAttrs = make(map[string]any)
	}
	if existing, ok := c.channelAttrs[key]; ok {
		return existing
	}
	c.channelAttrs[key] = value
	return value
}
