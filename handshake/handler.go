package handshake

import (
	"fmt"
	"strings"
	"sync"

	"github.com/modforged/forgenet/metrics"
	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog"
)

// Handler is one connection's login negotiation. It is created when the
// connection enters the login phase, ticked once per login-state poll, and
// clears itself from the connection once every payload requiring a response
// has been acknowledged.
//
// The server gathers every channel's login payloads up front and streams
// them one per tick, each indexed by the login packet's transaction id, the
// only request/response tracking the wire provides.
type Handler struct {
	svc       *Service
	direction protocol.Direction
	conn      *network.Connection
	logger    zerolog.Logger

	mu                  sync.Mutex
	messageList         []network.LoginPayload
	sentMessages        map[int]protocol.Name
	packetPosition      int
	registrySnapshots   map[protocol.Name][]byte
	registriesToReceive map[protocol.Name]struct{}
	negotiationStarted  bool
	pendingChecks       []<-chan error
	completed           bool
}

func (s *Service) newHandler(direction protocol.Direction, conn *network.Connection, typ network.ConnectionType) *Handler {
	// entering login ends the registration phase for good
	s.env.Registry.Lock()

	h := &Handler{
		svc:          s,
		direction:    direction,
		conn:         conn,
		logger:       conn.Logger().With().Str("com", "handshake").Logger(),
		sentMessages: make(map[int]protocol.Name),
	}
	if typ == network.ConnectionVanilla {
		h.logger.Debug().Msg("starting new vanilla connection")
	} else {
		local := conn.IsMemoryConnection()
		h.messageList = s.gatherLoginPayloads(direction, local)
		h.logger.Debug().Bool("local", local).Int("messages", len(h.messageList)).Msg("starting new modded connection")
	}
	conn.SetNegotiator(h)
	return h
}

// gatherLoginPayloads solicits every channel for login payloads. Only the
// server-to-client direction carries any.
func (s *Service) gatherLoginPayloads(direction protocol.Direction, local bool) []network.LoginPayload {
	if direction != protocol.LoginToClient {
		return nil
	}
	var collected []network.LoginPayload
	for _, instance := range s.env.Registry.Instances() {
		instance.DispatchGatherLogin(&collected, local)
	}
	return collected
}

// Tick advances the negotiation one step: sends at most one payload, reaps
// finished asynchronous pre-checks and reports whether login may move on.
// The completion boundary deliberately allows the cursor to sit one short of
// the payload list; peers depend on the historical timing, so it is kept
// rather than fixed (see the boundary test).
func (h *Handler) Tick() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.completed {
		return true
	}

	if !h.negotiationStarted {
		if hook := h.svc.env.OnNegotiationStart; hook != nil {
			h.pendingChecks = append(h.pendingChecks, hook(h.conn)...)
		}
		h.negotiationStarted = true
	}

	if h.packetPosition < len(h.messageList) {
		message := h.messageList[h.packetPosition]
		h.logger.Debug().
			Str("context", message.Context).
			Str("channel", message.ChannelName.String()).
			Int("sequence", h.packetPosition).
			Msg("sending ticking packet")
		if message.NeedsResponse {
			h.sentMessages[h.packetPosition] = message.ChannelName
		}
		h.conn.Send(protocol.LoginToClient.BuildPacket(message.Data, message.ChannelName, h.packetPosition))
		h.packetPosition++
	}

	remaining := h.pendingChecks[:0]
	for _, check := range h.pendingChecks {
		select {
		case err := <-check:
			if err != nil {
				h.logger.Error().Err(err).Msg("error during negotiation")
			}
		default:
			remaining = append(remaining, check)
		}
	}
	h.pendingChecks = remaining

	if len(h.sentMessages) == 0 && h.packetPosition >= len(h.messageList)-1 && len(h.pendingChecks) == 0 {
		h.completed = true
		h.conn.SetNegotiator(nil)
		metrics.HandshakesCompleted.Inc()
		h.logger.Debug().Msg("handshake complete")
		return true
	}
	return false
}

// ResolveIndexedReply maps an inbound reply's transaction index back to the
// channel whose payload asked for it, removing it from the pending set.
func (h *Handler) ResolveIndexedReply(index int) (protocol.Name, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	channel, ok := h.sentMessages[index]
	if !ok {
		h.logger.Error().Int("index", index).Msg("received unexpected index in reply")
		return protocol.Name{}, false
	}
	delete(h.sentMessages, index)
	h.logger.Debug().Int("index", index).Str("channel", channel.String()).Msg("received indexed reply")
	return channel, true
}

// PendingAcknowledgements returns how many sent payloads still await a reply.
func (h *Handler) PendingAcknowledgements() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sentMessages)
}

func handlerFrom(ctx *network.Context) (*Handler, bool) {
	h, ok := ctx.Connection().Negotiator().(*Handler)
	return h, ok
}

// handleServerModList runs on the client when the server announces its mods
// and channels. Any channel rejecting the server's version terminates the
// connection with mismatch diagnostics attached.
func (s *Service) handleServerModList(msg ServerModList, ctx *network.Context) {
	h, ok := handlerFrom(ctx)
	if !ok {
		return
	}
	h.logger.Debug().Str("mods", strings.Join(msg.Mods, ", ")).Msg("logging into server")
	mismatched := s.validateChannels(msg.Channels, true)
	ctx.SetHandled(true)

	// connection data must exist before mismatch diagnostics can be built
	placeholder := make(map[string]network.ModData, len(msg.Mods))
	for _, id := range msg.Mods {
		placeholder[id] = network.ModData{}
	}
	conn := ctx.Connection()
	conn.AppendData(placeholder, msg.Channels)

	if len(mismatched) > 0 {
		h.logger.Error().Msg("terminating connection with server, mismatched mod list")
		metrics.NegotiationMismatches.WithLabelValues("channels").Inc()
		conn.SetMismatch(network.ChannelMismatchData(mismatched, conn.Data(), true, s.localInfo()))
		conn.Disconnect("Connection closed - mismatched mod channel list")
		return
	}

	var missingDataPack []string
	for _, key := range msg.DataPackRegistries {
		if !s.env.GameRegistries.HasDataPackRegistry(key) {
			h.logger.Error().Str("registry", key.String()).Msg("missing required datapack registry")
			missingDataPack = append(missingDataPack, key.String())
		}
	}
	if len(missingDataPack) > 0 {
		metrics.NegotiationMismatches.WithLabelValues("datapack_registries").Inc()
		conn.Disconnect(fmt.Sprintf("Connection closed - missing required datapack registries: %s", strings.Join(missingDataPack, ", ")))
		return
	}

	if err := s.channel.Reply(ClientModListReply{
		Mods:       s.env.Mods.IDs(),
		Channels:   s.env.Registry.Versions(),
		Registries: map[protocol.Name]string{}, // registry caching not implemented
	}, ctx); err != nil {
		h.logger.Error().Err(err).Msg("failed to send mod list reply")
		return
	}

	h.logger.Debug().Msg("accepted server connection")
	// mark the connection modded so later code knows packets flowed
	conn.SetNetVersion(network.NetVersion)

	h.mu.Lock()
	h.registriesToReceive = make(map[protocol.Name]struct{}, len(msg.Registries))
	for _, name := range msg.Registries {
		h.registriesToReceive[name] = struct{}{}
	}
	h.registrySnapshots = make(map[protocol.Name][]byte)
	expecting := len(h.registriesToReceive)
	h.mu.Unlock()
	h.logger.Debug().Int("count", expecting).Msg("expecting registries")
}

// handleServerModData runs on the client, recording the server's display
// names and versions.
func (s *Service) handleServerModData(msg ServerModData, ctx *network.Context) {
	ctx.Connection().SetData(network.NewConnectionData(msg.Mods, nil))
	ctx.SetHandled(true)
}

// handleClientModListReply runs on the server. Channels that reject the
// client's version produce a mismatch notice back to the client before the
// disconnect, so its UI can show what went wrong.
func (s *Service) handleClientModListReply(msg ClientModListReply, ctx *network.Context) {
	h, ok := handlerFrom(ctx)
	if !ok {
		return
	}
	h.logger.Debug().Str("mods", strings.Join(msg.Mods, ", ")).Msg("received client connection")
	mismatched := s.validateChannels(msg.Channels, false)

	placeholder := make(map[string]network.ModData, len(msg.Mods))
	for _, id := range msg.Mods {
		placeholder[id] = network.ModData{}
	}
	conn := ctx.Connection()
	conn.SetData(network.NewConnectionData(placeholder, msg.Channels))
	ctx.SetHandled(true)

	if len(mismatched) > 0 {
		h.logger.Error().Msg("terminating connection with client, mismatched mod list")
		metrics.NegotiationMismatches.WithLabelValues("channels").Inc()
		notice := make(map[protocol.Name]string, len(mismatched))
		for name, info := range mismatched {
			notice[name] = info.Version
		}
		if err := s.channel.Reply(ChannelMismatch{Data: notice}, ctx); err != nil {
			h.logger.Error().Err(err).Msg("failed to send mismatch notice")
		}
		conn.Disconnect("Connection closed - mismatched mod channel list")
		return
	}
	h.logger.Debug().Msg("accepted client connection mod list")
}

// handleChannelMismatch runs on the client when the server rejected our
// channel versions.
func (s *Service) handleChannelMismatch(msg ChannelMismatch, ctx *network.Context) {
	if len(msg.Data) == 0 {
		return
	}
	h, ok := handlerFrom(ctx)
	if !ok {
		return
	}
	names := make([]string, 0, len(msg.Data))
	mismatched := make(map[protocol.Name]network.VersionInfo, len(msg.Data))
	for name, version := range msg.Data {
		names = append(names, name.String())
		mismatched[name] = network.VersionInfo{Version: version, Present: version != ""}
	}
	h.logger.Error().Strs("channels", names).Msg("channels rejected their client side version number")
	h.logger.Error().Msg("terminating connection with server, mismatched mod list")
	metrics.NegotiationMismatches.WithLabelValues("channels").Inc()
	ctx.SetHandled(true)
	conn := ctx.Connection()
	conn.SetMismatch(network.ChannelMismatchData(mismatched, conn.Data(), false, s.localInfo()))
	conn.Disconnect("Connection closed - mismatched mod channel list")
}

// handleRegistrySnapshot accumulates snapshots on the client; once every
// expected registry arrived, the whole set is injected before the
// acknowledgement goes out.
func (s *Service) handleRegistrySnapshot(msg RegistrySnapshot, ctx *network.Context) {
	h, ok := handlerFrom(ctx)
	if !ok {
		return
	}
	h.logger.Debug().Str("registry", msg.Name.String()).Msg("received registry packet")
	h.mu.Lock()
	delete(h.registriesToReceive, msg.Name)
	if h.registrySnapshots == nil {
		h.registrySnapshots = make(map[protocol.Name][]byte)
	}
	h.registrySnapshots[msg.Name] = msg.Snapshot
	allReceived := len(h.registriesToReceive) == 0
	h.mu.Unlock()

	continueHandshake := true
	if allReceived {
		continueHandshake = h.injectRegistries(ctx)
	}
	// the acknowledgement is withheld until the message is fully processed
	ctx.SetHandled(true)
	if !continueHandshake {
		h.logger.Error().Msg("connection closed, not continuing handshake")
		return
	}
	if err := s.channel.Reply(Acknowledge{}, ctx); err != nil {
		h.logger.Error().Err(err).Msg("failed to acknowledge registry packet")
	}
}

// injectRegistries hands the accumulated snapshots to the simulation thread
// and blocks until it finishes. This is the protocol's only blocking point:
// a one-shot rendezvous, not a general lock.
func (h *Handler) injectRegistries(ctx *network.Context) bool {
	h.mu.Lock()
	snapshots := h.registrySnapshots
	h.mu.Unlock()

	var missing map[protocol.Name][]protocol.Name
	h.logger.Debug().Msg("waiting for registries to load")
	done := ctx.EnqueueWork(func() {
		h.logger.Debug().Msg("injecting registry snapshot from server")
		missing = h.svc.env.GameRegistries.InjectSnapshots(snapshots)
		h.logger.Debug().Msg("snapshot injected")
	})
	<-done

	if len(missing) == 0 {
		h.logger.Debug().Msg("registry load complete, continuing handshake")
		return true
	}
	for reg, entries := range missing {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.String())
		}
		h.logger.Error().Str("registry", reg.String()).Strs("entries", names).Msg("missing registry data for connection")
	}
	metrics.NegotiationMismatches.WithLabelValues("registries").Inc()
	conn := ctx.Connection()
	conn.SetMismatch(network.RegistryMismatchData(missing, conn.Data(), h.svc.localInfo()))
	conn.Disconnect("Failed to synchronize registry data from server, closing connection")
	return false
}

// handleClientAck runs on the server for each acknowledged payload. The
// pending-map bookkeeping already happened when the reply's index was
// resolved to this channel.
func (s *Service) handleClientAck(_ Acknowledge, ctx *network.Context) {
	if h, ok := handlerFrom(ctx); ok {
		h.logger.Debug().Msg("received acknowledgement from client")
	}
	ctx.SetHandled(true)
}

// handleConfigData runs on the client, storing a synced server config file.
func (s *Service) handleConfigData(msg ConfigData, ctx *network.Context) {
	s.env.Configs.Receive(msg.FileName, msg.Data)
	ctx.SetHandled(true)
	if err := s.channel.Reply(Acknowledge{}, ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to acknowledge config sync")
	}
}

// validateChannels tests an incoming name→version map against every
// registered channel's predicate, returning the channels that rejected it.
func (s *Service) validateChannels(incoming map[protocol.Name]string, testS2C bool) map[protocol.Name]network.VersionInfo {
	origin := "client"
	if testS2C {
		origin = "server"
	}
	results := make(map[protocol.Name]network.VersionInfo)
	for _, instance := range s.env.Registry.Instances() {
		version, present := incoming[instance.Name()]
		var accepted bool
		if testS2C {
			accepted = instance.TryServerVersionOnClient(network.ConnectionModded, version, present)
		} else {
			accepted = instance.TryClientVersionOnServer(network.ConnectionModded, version, present)
		}
		s.logger.Debug().
			Str("channel", instance.Name().String()).
			Str("version", version).
			Str("origin", origin).
			Bool("accepted", accepted).
			Msg("channel version test")
		if !accepted {
			results[instance.Name()] = network.VersionInfo{Version: version, Present: present}
		}
	}
	if len(results) > 0 {
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name.String())
		}
		s.logger.Error().Strs("channels", names).Str("origin", origin).Msg("channels rejected version number")
	}
	return results
}

func (s *Service) localInfo() network.LocalInfo {
	return network.LocalInfo{
		Mods:     s.env.Mods.Data(),
		Channels: s.env.Registry.Versions(),
	}
}
