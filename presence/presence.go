// Package presence implements the legacy register/unregister channel
// messages, a best-effort way for each side to announce which channel names
// it listens to. It predates the login handshake and stays independent of it,
// for interoperability with peers that only speak this protocol.
//
// The wire format is bare: a null-separated list of UTF-8 strings, no length
// prefixes, no headers. The channel the message arrives on decides whether it
// is a register or unregister action. Strings that do not parse as namespaced
// identifiers are logged and skipped; the community convention of forcing
// namespaces keeps unrelated mod loaders from colliding.
package presence

import (
	"strings"

	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("com", "presence").Logger()

// AddChannels announces names over the connection, sending only those not
// previously announced.
func AddChannels(conn *network.Connection, names map[protocol.Name]struct{}, direction protocol.Direction) {
	added := conn.Channels().AddLocal(names)
	data := protocol.BufferFrom(encodeNames(added))
	conn.Send(direction.BuildPacket(data, network.RegisterChannelName, 0))
}

// SendLocalChannels announces every registered channel outside the host's own
// namespace, which is exempt from announcement.
func SendLocalChannels(reg *network.Registry, conn *network.Connection, direction protocol.Direction) {
	names := make(map[protocol.Name]struct{})
	for name := range reg.Versions() {
		if name.Namespace() == protocol.DefaultNamespace {
			continue
		}
		names[name] = struct{}{}
	}
	AddChannels(conn, names, direction)
}

// NewChannels registers the register/unregister channels with the registry
// and wires their listeners. Call once during initialization.
func NewChannels(reg *network.Registry) error {
	registerInstance, err := network.NewChannel(network.RegisterChannelName).
		Version(network.NetVersion).
		AnyVersion().
		Build(reg)
	if err != nil {
		return err
	}
	registerInstance.AddListener(func(ev *network.Event) {
		if ev.Kind == network.EventPayload || ev.Kind == network.EventLoginPayload {
			handleRegister(reg, ev)
		}
	})

	unregisterInstance, err := network.NewChannel(network.UnregisterChannelName).
		Version(network.NetVersion).
		AnyVersion().
		Build(reg)
	if err != nil {
		return err
	}
	unregisterInstance.AddListener(func(ev *network.Event) {
		if ev.Kind == network.EventPayload || ev.Kind == network.EventLoginPayload {
			handleUnregister(reg, ev)
		}
	})
	return nil
}

func handleRegister(reg *network.Registry, ev *network.Event) {
	names := decodeNames(ev.Payload)
	added := ev.Context.Connection().Channels().AddRemote(names)
	fireChange(reg, ev.Context, added, network.ChannelRegistered)
	ev.Context.SetHandled(true)
}

func handleUnregister(reg *network.Registry, ev *network.Event) {
	names := decodeNames(ev.Payload)
	ev.Context.Connection().Channels().RemoveRemote(names)
	fireChange(reg, ev.Context, names, network.ChannelUnregistered)
	ev.Context.SetHandled(true)
}

func fireChange(reg *network.Registry, ctx *network.Context, names map[protocol.Name]struct{}, change network.RegistrationChange) {
	for name := range names {
		if instance, ok := reg.Find(name); ok {
			instance.DispatchRegistrationChange(ctx, change)
		}
	}
}

func encodeNames(names map[protocol.Name]struct{}) []byte {
	var out []byte
	for name := range names {
		out = append(out, name.String()...)
		out = append(out, 0)
	}
	return out
}

// decodeNames parses a null-separated name list, dropping anything that is
// not a valid namespaced identifier.
func decodeNames(payload *protocol.Buffer) map[protocol.Name]struct{} {
	names := make(map[protocol.Name]struct{})
	if payload == nil {
		return names
	}
	all := payload.ReadRemaining()
	// a trailing separator is conventional but not required
	for _, raw := range strings.Split(string(all), "\x00") {
		if raw == "" {
			continue
		}
		name, err := protocol.ParseName(raw)
		if err != nil {
			logger.Warn().Str("name", raw).Msg("invalid channel name received, ignoring")
			continue
		}
		names[name] = struct{}{}
	}
	return names
}
