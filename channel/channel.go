// Package channel layers a typed, discriminator-indexed message codec on top
// of a network instance, so extensions can exchange message structs instead
// of raw buffers.
package channel

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loginPacketGen produces login messages (with a context label) to queue for
// an incoming peer; local says whether the peer is in-process.
type loginPacketGen func(local bool) []loginEntry

type loginEntry struct {
	context string
	message any
}

// Channel owns one network instance's typed message traffic: registration,
// serialization, login-payload gathering and send helpers.
type Channel struct {
	instance *network.Instance
	codec    *indexedCodec
	logger   zerolog.Logger

	mu            sync.Mutex
	loginPackets  []loginPacketGen
	needsResponse map[reflect.Type]bool

	registrationChanged func(change network.RegistrationChange, ctx *network.Context)
}

// New wires a Channel onto an instance. The channel listens for payload,
// login and gather events; decoded messages reach their registered consumers
// synchronously on the dispatching goroutine.
func New(instance *network.Instance) *Channel {
	ch := &Channel{
		instance:      instance,
		codec:         newIndexedCodec(instance.Name()),
		logger:        log.With().Str("com", "channel").Str("channel", instance.Name().String()).Logger(),
		needsResponse: make(map[reflect.Type]bool),
	}
	instance.AddListener(ch.onEvent)
	return ch
}

// OnRegistrationChange installs a callback for legacy presence announcements
// naming this channel.
func (ch *Channel) OnRegistrationChange(fn func(change network.RegistrationChange, ctx *network.Context)) {
	ch.registrationChanged = fn
}

// Instance returns the underlying network instance.
func (ch *Channel) Instance() *network.Instance { return ch.instance }

// Name returns the channel name.
func (ch *Channel) Name() protocol.Name { return ch.instance.Name() }

func (ch *Channel) onEvent(ev *network.Event) {
	switch ev.Kind {
	case network.EventPayload, network.EventLoginPayload:
		_ = ch.codec.consume(ev.Payload, ev.Context)
	case network.EventGatherLoginPayloads:
		ch.gatherLoginPayloads(ev.Gather)
	case network.EventRegistrationChange:
		if ch.registrationChanged != nil {
			ch.registrationChanged(ev.Change, ev.Context)
		}
	}
}

func (ch *Channel) gatherLoginPayloads(gather *network.LoginPayloadGather) {
	ch.mu.Lock()
	gens := make([]loginPacketGen, len(ch.loginPackets))
	copy(gens, ch.loginPackets)
	ch.mu.Unlock()

	for _, gen := range gens {
		for _, entry := range gen(gather.IsLocal()) {
			buf := protocol.NewBuffer()
			if err := ch.codec.build(entry.message, buf); err != nil {
				ch.logger.Error().Err(err).Str("context", entry.context).Msg("failed to encode login payload")
				continue
			}
			needs, ok := ch.needsResponseFor(entry.message)
			if !ok {
				needs = true
			}
			gather.AddWithResponse(buf, ch.instance.Name(), entry.context, needs)
		}
	}
}

func (ch *Channel) needsResponseFor(msg any) (bool, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	v, ok := ch.needsResponse[reflect.TypeOf(msg)]
	return v, ok
}

// EncodeMessage serializes a registered message into target.
func (ch *Channel) EncodeMessage(msg any, target *protocol.Buffer) error {
	return ch.codec.build(msg, target)
}

func (ch *Channel) toBuffer(msg any) (*protocol.Buffer, error) {
	buf := protocol.NewBuffer()
	if err := ch.codec.build(msg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// SendTo encodes a message and sends it over the connection in a play
// direction. Login messages have their own transaction-indexed path through
// the handshake and must not be sent this way.
func (ch *Channel) SendTo(msg any, conn *network.Connection, direction protocol.Direction) error {
	if direction.IsLogin() {
		return fmt.Errorf("send on channel %s: direction must be play-to-client or play-to-server, got %s", ch.Name(), direction)
	}
	buf, err := ch.toBuffer(msg)
	if err != nil {
		return err
	}
	conn.Send(direction.BuildPacket(buf, ch.instance.Name(), 0))
	return nil
}

// Reply encodes a message and sends it back on the paired direction, reusing
// the inbound message's transaction index.
func (ch *Channel) Reply(msg any, ctx *network.Context) error {
	buf, err := ch.toBuffer(msg)
	if err != nil {
		return err
	}
	ctx.SendReply(ch.instance.Name(), buf)
	return nil
}

// IsRemotePresent reports whether the remote side declared this channel.
func (ch *Channel) IsRemotePresent(conn *network.Connection) bool {
	return ch.instance.IsRemotePresent(conn)
}
