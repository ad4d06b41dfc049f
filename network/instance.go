package network

import (
	"sync"

	"github.com/modforged/forgenet/metrics"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// VersionTest is a version-acceptance predicate. present is false when the
// remote does not carry the channel at all, in which case version is empty.
type VersionTest func(typ ConnectionType, version string, present bool) bool

// AttributeFactory creates a per-connection attribute instance when the
// channel attaches to a new connection.
type AttributeFactory func(direction protocol.Direction, conn *Connection, typ ConnectionType) any

// Listener receives every event dispatched on a channel. Listeners run
// synchronously on the dispatching goroutine; panics are logged and
// swallowed so one listener cannot take down dispatch.
type Listener func(ev *Event)

// Instance is a single named channel: its version validators, per-connection
// attribute factories and ordered listener list.
type Instance struct {
	name       protocol.Name
	version    string
	clientTest VersionTest
	serverTest VersionTest
	attributes map[string]AttributeFactory
	logger     zerolog.Logger

	mu        sync.Mutex
	listeners []Listener
}

func newInstance(name protocol.Name, version string, clientTest, serverTest VersionTest, attributes map[string]AttributeFactory) *Instance {
	return &Instance{
		name:       name,
		version:    version,
		clientTest: clientTest,
		serverTest: serverTest,
		attributes: attributes,
		logger:     log.With().Str("com", "channel").Str("channel", name.String()).Logger(),
	}
}

func (i *Instance) Name() protocol.Name { return i.name }

// Version returns the channel's protocol version, fixed at creation.
func (i *Instance) Version() string { return i.version }

// AddListener appends a listener. Invocation order across listeners is
// unspecified but every listener completes before Dispatch returns.
func (i *Instance) AddListener(l Listener) {
	i.mu.Lock()
	i.listeners = append(i.listeners, l)
	i.mu.Unlock()
}

func (i *Instance) snapshotListeners() []Listener {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Listener, len(i.listeners))
	copy(out, i.listeners)
	return out
}

func (i *Instance) post(ev *Event) {
	for _, l := range i.snapshotListeners() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					i.logger.Error().Interface("panic", r).Msg("channel listener panicked")
				}
			}()
			l(ev)
		}()
	}
}

// Dispatch delivers an inbound packet to this channel's listeners and reports
// whether any listener marked it handled.
func (i *Instance) Dispatch(direction protocol.Direction, pkt *protocol.Packet, conn *Connection) bool {
	ctx := NewContext(conn, direction, pkt.Index)
	kind := EventPayload
	if direction.IsLogin() {
		kind = EventLoginPayload
	}
	i.post(&Event{Kind: kind, Payload: pkt.Data, Context: ctx})
	metrics.PayloadsDispatched.WithLabelValues(i.name.String(), direction.String()).Inc()
	return ctx.Handled()
}

// DispatchGatherLogin asks the channel for its login payloads.
func (i *Instance) DispatchGatherLogin(collected *[]LoginPayload, local bool) {
	i.post(&Event{Kind: EventGatherLoginPayloads, Gather: NewLoginPayloadGather(collected, local)})
}

// DispatchRegistrationChange notifies the channel that the remote announced
// or withdrew it through the legacy presence protocol.
func (i *Instance) DispatchRegistrationChange(ctx *Context, change RegistrationChange) {
	i.post(&Event{Kind: EventRegistrationChange, Context: ctx, Change: change})
}

// TryServerVersionOnClient applies the client-side predicate to the version
// the server declared, or to absence when the server lacks the channel.
func (i *Instance) TryServerVersionOnClient(typ ConnectionType, version string, present bool) bool {
	return i.clientTest(typ, version, present)
}

// TryClientVersionOnServer applies the server-side predicate to the version
// the client declared.
func (i *Instance) TryClientVersionOnServer(typ ConnectionType, version string, present bool) bool {
	return i.serverTest(typ, version, present)
}

// AttachAttributes populates the connection with this channel's attributes,
// keeping any value already present under the same key.
func (i *Instance) AttachAttributes(direction protocol.Direction, conn *Connection, typ ConnectionType) {
	for key, factory := range i.attributes {
		conn.SetAttrIfAbsent(key, factory(direction, conn, typ))
	}
}

// IsRemotePresent reports whether the remote declared this channel, either in
// the handshake connection data or through the legacy presence protocol. The
// two sources are independent; a peer may speak one, both or neither.
func (i *Instance) IsRemotePresent(conn *Connection) bool {
	if data := conn.Data(); data != nil {
		if _, ok := data.ChannelVersion(i.name); ok {
			return true
		}
	}
	return conn.Channels().RemoteContains(i.name)
}
