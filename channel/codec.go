package channel

import (
	"fmt"
	"reflect"

	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Wire format per message: [1 byte discriminator][payload bytes].

type handler struct {
	index     byte
	typ       reflect.Type
	encode    func(msg any, buf *protocol.Buffer) error
	decode    func(buf *protocol.Buffer) (any, error)
	consume   func(msg any, ctx *network.Context)
	direction *protocol.Direction
}

// indexedCodec maps a one-byte discriminator to a message handler, and the
// message's runtime type back to the same handler for the sending side.
//
// Duplicate discriminators or types fail registration. The original silently
// overwrote the prior entry; that risks silent protocol corruption, so this
// implementation fails loudly instead.
type indexedCodec struct {
	byIndex map[byte]*handler
	byType  map[reflect.Type]*handler
	channel protocol.Name
	logger  zerolog.Logger
}

func newIndexedCodec(channel protocol.Name) *indexedCodec {
	return &indexedCodec{
		byIndex: make(map[byte]*handler),
		byType:  make(map[reflect.Type]*handler),
		channel: channel,
		logger:  log.With().Str("com", "codec").Str("channel", channel.String()).Logger(),
	}
}

// register stores a handler under its discriminator, masked to 8 bits, and
// under its message type. A nil decoder makes the type send-only; a nil
// encoder makes it receive-only.
func (c *indexedCodec) register(index int, typ reflect.Type,
	encode func(any, *protocol.Buffer) error,
	decode func(*protocol.Buffer) (any, error),
	consume func(any, *network.Context),
	direction *protocol.Direction,
) error {
	discriminator := byte(index & 0xFF)
	if _, ok := c.byIndex[discriminator]; ok {
		return fmt.Errorf("discriminator %d already registered on channel %s", discriminator, c.channel)
	}
	if _, ok := c.byType[typ]; ok {
		return fmt.Errorf("message type %s already registered on channel %s", typ, c.channel)
	}
	h := &handler{
		index:     discriminator,
		typ:       typ,
		encode:    encode,
		decode:    decode,
		consume:   consume,
		direction: direction,
	}
	c.byIndex[discriminator] = h
	c.byType[typ] = h
	return nil
}

// build serializes a message into target, discriminator first. Unregistered
// types are an error; a registered type without an encoder writes nothing.
func (c *indexedCodec) build(msg any, target *protocol.Buffer) error {
	h, ok := c.byType[reflect.TypeOf(msg)]
	if !ok {
		c.logger.Error().Str("type", fmt.Sprintf("%T", msg)).Msg("attempted to send unregistered message type")
		return fmt.Errorf("unregistered message type %T on channel %s", msg, c.channel)
	}
	if h.encode == nil {
		return nil
	}
	target.WriteByte(h.index)
	return h.encode(msg, target)
}

// consume decodes an inbound payload and invokes its consumer. Transient
// problems (empty buffer, unknown discriminator, missing decoder, decode
// failure) are logged and dropped without error; only a direction violation
// is fatal, and it has already disconnected the connection by the time it is
// returned.
func (c *indexedCodec) consume(payload *protocol.Buffer, ctx *network.Context) error {
	if payload == nil || !payload.Readable() {
		c.logger.Error().Msg("received empty payload")
		return nil
	}
	discriminator, err := payload.ReadByte()
	if err != nil {
		c.logger.Error().Err(err).Msg("unreadable payload")
		return nil
	}
	h, ok := c.byIndex[discriminator]
	if !ok {
		c.logger.Error().Uint8("discriminator", discriminator).Msg("received invalid discriminator byte")
		return nil
	}
	if err := network.ValidatePacketDirection(ctx.Direction(), h.direction, ctx.Connection()); err != nil {
		c.logger.Error().Err(err).Uint8("discriminator", discriminator).Msg("packet direction violation")
		return err
	}
	if h.decode == nil {
		// send-only type showed up on the receiving side; drop it
		return nil
	}
	msg, err := h.decode(payload)
	if err != nil {
		c.logger.Error().Err(err).Uint8("discriminator", discriminator).Msg("failed to decode message")
		return nil
	}
	h.consume(msg, ctx)
	return nil
}

// find returns the handler for a message's runtime type.
func (c *indexedCodec) find(msg any) (*handler, bool) {
	h, ok := c.byType[reflect.TypeOf(msg)]
	return h, ok
}
