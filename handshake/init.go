package handshake

import (
	"fmt"

	"github.com/modforged/forgenet/channel"
	"github.com/modforged/forgenet/config"
	"github.com/modforged/forgenet/mods"
	"github.com/modforged/forgenet/network"
	"github.com/modforged/forgenet/protocol"
	"github.com/modforged/forgenet/registry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Env supplies the service with everything the negotiation exchanges:
// the channel registry, the mod list, the synced game registries and the
// server configs to push. OnNegotiationStart, when set, is called once per
// handshake and may return asynchronous pre-checks the handshake waits on.
type Env struct {
	Registry           *network.Registry
	Mods               *mods.List
	GameRegistries     *registry.Manager
	Configs            *config.Sync
	OnNegotiationStart func(conn *network.Connection) []<-chan error
}

// Service owns the fml:handshake channel and creates a Handler per
// connection entering login.
type Service struct {
	env     Env
	channel *channel.Channel
	logger  zerolog.Logger
}

// NewService builds the handshake channel and registers its message catalog.
// The discriminators are wire protocol; they never change between releases.
func NewService(env Env) (*Service, error) {
	instance, err := network.NewChannel(network.HandshakeChannelName).
		Version(network.NetVersion).
		AnyVersion().
		Build(env.Registry)
	if err != nil {
		return nil, fmt.Errorf("build handshake channel: %w", err)
	}

	s := &Service{
		env:     env,
		channel: channel.New(instance),
		logger:  log.With().Str("com", "handshake").Logger(),
	}

	if err := channel.Message[Acknowledge](s.channel, 99).
		Encoder(Acknowledge.Encode).
		Decoder(DecodeAcknowledge).
		Consumer(s.handleClientAck).
		Direction(protocol.LoginToServer).
		Add(); err != nil {
		return nil, err
	}
	if err := channel.Message[ServerModData](s.channel, 5).
		Encoder(ServerModData.Encode).
		Decoder(DecodeServerModData).
		Consumer(s.handleServerModData).
		Direction(protocol.LoginToClient).
		LoginPacketGenerator(s.modDataPayloads).
		NoResponse().
		Add(); err != nil {
		return nil, err
	}
	if err := channel.Message[ServerModList](s.channel, 1).
		Encoder(ServerModList.Encode).
		Decoder(DecodeServerModList).
		Consumer(s.handleServerModList).
		Direction(protocol.LoginToClient).
		LoginPacketGenerator(s.modListPayloads).
		Add(); err != nil {
		return nil, err
	}
	if err := channel.Message[ClientModListReply](s.channel, 2).
		Encoder(ClientModListReply.Encode).
		Decoder(DecodeClientModListReply).
		Consumer(s.handleClientModListReply).
		Direction(protocol.LoginToServer).
		Add(); err != nil {
		return nil, err
	}
	if err := channel.Message[RegistrySnapshot](s.channel, 3).
		Encoder(RegistrySnapshot.Encode).
		Decoder(DecodeRegistrySnapshot).
		Consumer(s.handleRegistrySnapshot).
		Direction(protocol.LoginToClient).
		LoginPacketGenerator(s.registryPayloads).
		Add(); err != nil {
		return nil, err
	}
	if err := channel.Message[ConfigData](s.channel, 4).
		Encoder(ConfigData.Encode).
		Decoder(DecodeConfigData).
		Consumer(s.handleConfigData).
		Direction(protocol.LoginToClient).
		LoginPacketGenerator(s.configPayloads).
		Add(); err != nil {
		return nil, err
	}
	if err := channel.Message[ChannelMismatch](s.channel, 6).
		Encoder(ChannelMismatch.Encode).
		Decoder(DecodeChannelMismatch).
		Consumer(s.handleChannelMismatch).
		Direction(protocol.LoginToClient).
		Add(); err != nil {
		return nil, err
	}

	return s, nil
}

// Channel exposes the underlying handshake channel, mainly for tests.
func (s *Service) Channel() *channel.Channel { return s.channel }

// StartServer begins negotiating with a connecting client. The version flag
// is the one parsed from the client's intention hostname; a non-modded flag
// yields a vanilla session with nothing to exchange.
func (s *Service) StartServer(conn *network.Connection, versionFlag string) *Handler {
	network.RegisterServerLoginChannel(s.env.Registry, conn, versionFlag)
	return s.newHandler(protocol.LoginToClient, conn, network.ConnectionTypeFor(versionFlag))
}

// StartClient begins a client-side session. The client sends no unsolicited
// login payloads; its handler only resolves indexed replies.
func (s *Service) StartClient(conn *network.Connection) *Handler {
	network.RegisterClientLoginChannel(s.env.Registry, conn)
	return s.newHandler(protocol.LoginToServer, conn, network.ConnectionVanilla)
}

func (s *Service) modListPayloads(bool) []channel.LoginPacket[ServerModList] {
	return []channel.LoginPacket[ServerModList]{{
		Context: "ServerModList",
		Message: ServerModList{
			Mods:               s.env.Mods.IDs(),
			Channels:           s.env.Registry.Versions(),
			Registries:         s.env.GameRegistries.SyncedNames(),
			DataPackRegistries: s.env.GameRegistries.DataPackRegistries(),
		},
	}}
}

func (s *Service) modDataPayloads(bool) []channel.LoginPacket[ServerModData] {
	return []channel.LoginPacket[ServerModData]{{
		Context: "ServerModData",
		Message: ServerModData{Mods: s.env.Mods.Data()},
	}}
}

// registryPayloads emits one snapshot per synced registry. Local connections
// share memory with the server and skip the sync entirely.
func (s *Service) registryPayloads(local bool) []channel.LoginPacket[RegistrySnapshot] {
	packets := s.env.GameRegistries.GeneratePackets(local)
	out := make([]channel.LoginPacket[RegistrySnapshot], 0, len(packets))
	for _, p := range packets {
		out = append(out, channel.LoginPacket[RegistrySnapshot]{
			Context: p.Name.String(),
			Message: RegistrySnapshot{Name: p.Name, Snapshot: p.Data},
		})
	}
	return out
}

func (s *Service) configPayloads(local bool) []channel.LoginPacket[ConfigData] {
	files := s.env.Configs.SyncConfigs(local)
	out := make([]channel.LoginPacket[ConfigData], 0, len(files))
	for _, f := range files {
		out = append(out, channel.LoginPacket[ConfigData]{
			Context: "Config " + f.Name,
			Message: ConfigData{FileName: f.Name, Data: f.Data},
		})
	}
	return out
}
