package network

import (
	"errors"
	"fmt"
	"sync"

	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrRegistryLocked is returned when a channel is created after login
	// negotiation has begun.
	ErrRegistryLocked = errors.New("channel registration is locked")

	// ErrDuplicateChannel is returned when a channel name is registered twice.
	ErrDuplicateChannel = errors.New("channel already registered")
)

// Registry is the process-wide directory of channels. It has two phases: an
// open registration phase at mod-initialization time, and a locked read-only
// phase entered once login negotiation begins. Reads after Lock are safe
// under concurrent access; the map is only ever mutated under the lock during
// the open phase.
type Registry struct {
	mu        sync.RWMutex
	locked    bool
	instances map[protocol.Name]*Instance
	ordered   []*Instance
	logger    zerolog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[protocol.Name]*Instance),
		logger:    log.With().Str("com", "registry").Logger(),
	}
}

// Lock is the one-way transition out of the registration phase. No channel
// may be created afterwards.
func (r *Registry) Lock() {
	r.mu.Lock()
	r.locked = true
	r.mu.Unlock()
}

func (r *Registry) create(name protocol.Name, version string, clientTest, serverTest VersionTest, attributes map[string]AttributeFactory) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		r.logger.Error().Str("channel", name.String()).Msg("attempted to register channel after registry phase ended")
		return nil, fmt.Errorf("create channel %s: %w", name, ErrRegistryLocked)
	}
	if _, ok := r.instances[name]; ok {
		r.logger.Error().Str("channel", name.String()).Msg("channel already registered")
		return nil, fmt.Errorf("create channel %s: %w", name, ErrDuplicateChannel)
	}
	instance := newInstance(name, version, clientTest, serverTest, attributes)
	r.instances[name] = instance
	r.ordered = append(r.ordered, instance)
	return instance, nil
}

// Find returns the channel registered under name, if any.
func (r *Registry) Find(name protocol.Name) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.instances[name]
	return i, ok
}

// Instances returns the registered channels in registration order.
func (r *Registry) Instances() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instance, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Versions returns a snapshot of channel name to protocol version, the shape
// every handshake message carries.
func (r *Registry) Versions() map[protocol.Name]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[protocol.Name]string, len(r.instances))
	for name, i := range r.instances {
		out[name] = i.version
	}
	return out
}

// ListIncompatiblePeers returns the names of channels whose validator rejects
// a peer lacking the channel entirely (an unmodified remote). testServerSide
// selects which predicate runs: true tests the server's absent version on the
// client, false tests the client's absent version on the server.
func (r *Registry) ListIncompatiblePeers(testServerSide bool) []string {
	var rejected []string
	for _, i := range r.Instances() {
		var accepted bool
		if testServerSide {
			accepted = i.TryServerVersionOnClient(ConnectionVanilla, "", false)
		} else {
			accepted = i.TryClientVersionOnServer(ConnectionVanilla, "", false)
		}
		r.logger.Debug().Str("channel", i.name.String()).Bool("accepted", accepted).Msg("vanilla acceptance test")
		if !accepted {
			rejected = append(rejected, i.name.String())
		}
	}
	if len(rejected) > 0 {
		r.logger.Error().Strs("channels", rejected).Msg("channels rejected vanilla connections")
	}
	return rejected
}

// AcceptsVanillaClients reports whether every channel tolerates an unmodified
// client connecting to this server.
func (r *Registry) AcceptsVanillaClients() bool {
	return len(r.ListIncompatiblePeers(false)) == 0
}

// CanConnectToVanillaServer reports whether every channel tolerates this
// client joining an unmodified server.
func (r *Registry) CanConnectToVanillaServer() bool {
	return len(r.ListIncompatiblePeers(true)) == 0
}
