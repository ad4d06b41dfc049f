package channel

import (
	"fmt"
	"reflect"

	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
)

// LoginPacket is one login message produced by a generator, labelled for
// handshake logging.
type LoginPacket[M any] struct {
	Context string
	Message M
}

// MessageBuilder registers one message type on a channel. A type registered
// without a decoder cannot be received; one without an encoder cannot be
// sent.
type MessageBuilder[M any] struct {
	ch        *Channel
	id        int
	encoder   func(M, *protocol.Buffer) error
	decoder   func(*protocol.Buffer) (M, error)
	consumer  func(M, *network.Context)
	direction *protocol.Direction
	loginGen  func(local bool) []LoginPacket[M]
	markLogin bool
	noReply   bool
}

// Message starts registration of type M under the given discriminator.
func Message[M any](ch *Channel, id int) *MessageBuilder[M] {
	return &MessageBuilder[M]{ch: ch, id: id}
}

// Encoder sets the function writing M to a buffer. Encoding happens at send
// time on the sending goroutine.
func (b *MessageBuilder[M]) Encoder(fn func(M, *protocol.Buffer) error) *MessageBuilder[M] {
	b.encoder = fn
	return b
}

// Decoder sets the function reading M from a buffer. Decoding happens on the
// network processing goroutine; it must not touch simulation state.
func (b *MessageBuilder[M]) Decoder(fn func(*protocol.Buffer) (M, error)) *MessageBuilder[M] {
	b.decoder = fn
	return b
}

// Consumer sets the function invoked with each decoded message.
func (b *MessageBuilder[M]) Consumer(fn func(M, *network.Context)) *MessageBuilder[M] {
	b.consumer = fn
	return b
}

// Direction declares the only direction this message may arrive on. Arrival
// on any other direction disconnects the peer; use it to prevent spoofing.
func (b *MessageBuilder[M]) Direction(d protocol.Direction) *MessageBuilder[M] {
	b.direction = &d
	return b
}

// MarkAsLoginPacket queues one zero-value M for every new handshake session.
func (b *MessageBuilder[M]) MarkAsLoginPacket() *MessageBuilder[M] {
	b.markLogin = true
	return b
}

// LoginPacketGenerator queues the generator's messages for every new
// handshake session.
func (b *MessageBuilder[M]) LoginPacketGenerator(fn func(local bool) []LoginPacket[M]) *MessageBuilder[M] {
	b.loginGen = fn
	return b
}

// NoResponse marks the login packet as not expecting an acknowledgement.
func (b *MessageBuilder[M]) NoResponse() *MessageBuilder[M] {
	b.noReply = true
	return b
}

// Add completes registration.
func (b *MessageBuilder[M]) Add() error {
	typ := reflect.TypeOf((*M)(nil)).Elem()

	var encode func(any, *protocol.Buffer) error
	if b.encoder != nil {
		enc := b.encoder
		encode = func(msg any, buf *protocol.Buffer) error { return enc(msg.(M), buf) }
	}
	var decode func(*protocol.Buffer) (any, error)
	if b.decoder != nil {
		dec := b.decoder
		decode = func(buf *protocol.Buffer) (any, error) { return dec(buf) }
	}
	consume := func(any, *network.Context) {}
	if b.consumer != nil {
		cons := b.consumer
		consume = func(msg any, ctx *network.Context) { cons(msg.(M), ctx) }
	}

	if err := b.ch.codec.register(b.id, typ, encode, decode, consume, b.direction); err != nil {
		return fmt.Errorf("register message on channel %s: %w", b.ch.Name(), err)
	}

	b.ch.mu.Lock()
	defer b.ch.mu.Unlock()
	b.ch.needsResponse[typ] = !b.noReply
	if b.markLogin {
		label := typ.Name()
		b.ch.loginPackets = append(b.ch.loginPackets, func(bool) []loginEntry {
			var zero M
			return []loginEntry{{context: label, message: zero}}
		})
	}
	if b.loginGen != nil {
		gen := b.loginGen
		b.ch.loginPackets = append(b.ch.loginPackets, func(local bool) []loginEntry {
			packets := gen(local)
			entries := make([]loginEntry, 0, len(packets))
			for _, p := range packets {
				entries = append(entries, loginEntry{context: p.Context, message: p.Message})
			}
			return entries
		})
	}
	return nil
}
