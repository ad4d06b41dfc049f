// Package registry holds the local game registries whose contents are
// synchronized to clients during login, so both sides agree on the compact
// integer ids used by all later traffic.
package registry

import (
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/modforged/forgenet/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// json is a drop-in replacement for encoding/json with better performance
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the wire representation of one registry's contents.
type Snapshot struct {
	Entries map[string]int32 `json:"entries"`
}

// SnapshotData pairs a registry name with its encoded snapshot blob, ready to
// ride in a login payload.
type SnapshotData struct {
	Name protocol.Name
	Data []byte
}

// GameRegistry is one named id table.
type GameRegistry struct {
	name    protocol.Name
	mu      sync.Mutex
	entries map[protocol.Name]int32
	nextID  int32
}

func (r *GameRegistry) Name() protocol.Name { return r.name }

// Register adds an entry, assigning the next free id, and returns it.
func (r *GameRegistry) Register(entry protocol.Name) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.entries[entry]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.entries[entry] = id
	return id
}

// ID returns the id assigned to an entry.
func (r *GameRegistry) ID(entry protocol.Name) (int32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.entries[entry]
	return id, ok
}

// Len returns the number of entries.
func (r *GameRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *GameRegistry) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make(map[string]int32, len(r.entries))
	for name, id := range r.entries {
		entries[name.String()] = id
	}
	return Snapshot{Entries: entries}
}

// inject overwrites local ids with those from the snapshot and returns the
// snapshot entries this side does not know at all.
func (r *GameRegistry) inject(snap Snapshot) []protocol.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	var missing []protocol.Name
	for raw, id := range snap.Entries {
		name, err := protocol.ParseName(raw)
		if err != nil {
			missing = append(missing, protocol.NewName("invalid", "invalid"))
			continue
		}
		if _, ok := r.entries[name]; !ok {
			missing = append(missing, name)
			continue
		}
		r.entries[name] = id
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
	return missing
}

// Manager tracks every local registry and the custom datapack registries
// whose presence is checked during login.
type Manager struct {
	mu         sync.Mutex
	registries map[protocol.Name]*GameRegistry
	ordered    []*GameRegistry
	dataPack   []protocol.Name
	logger     zerolog.Logger
}

func NewManager() *Manager {
	return &Manager{
		registries: make(map[protocol.Name]*GameRegistry),
		logger:     log.With().Str("com", "registries").Logger(),
	}
}

// Create adds an empty registry under name, or returns the existing one.
func (m *Manager) Create(name protocol.Name) *GameRegistry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.registries[name]; ok {
		return r
	}
	r := &GameRegistry{name: name, entries: make(map[protocol.Name]int32)}
	m.registries[name] = r
	m.ordered = append(m.ordered, r)
	return r
}

// Get returns the registry under name.
func (m *Manager) Get(name protocol.Name) (*GameRegistry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registries[name]
	return r, ok
}

// SyncedNames lists the registries whose snapshots are sent to clients, in
// creation order.
func (m *Manager) SyncedNames() []protocol.Name {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.Name, 0, len(m.ordered))
	for _, r := range m.ordered {
		out = append(out, r.name)
	}
	return out
}

// AddDataPackRegistry declares a custom datapack registry key that clients
// must know about. The data itself travels over mod-defined packets.
func (m *Manager) AddDataPackRegistry(key protocol.Name) {
	m.mu.Lock()
	m.dataPack = append(m.dataPack, key)
	m.mu.Unlock()
}

// DataPackRegistries lists the declared custom datapack registry keys.
func (m *Manager) DataPackRegistries() []protocol.Name {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.Name, len(m.dataPack))
	copy(out, m.dataPack)
	return out
}

// HasDataPackRegistry reports whether a datapack registry key is known.
func (m *Manager) HasDataPackRegistry(key protocol.Name) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.dataPack {
		if k == key {
			return true
		}
	}
	return false
}

// GeneratePackets encodes every synced registry into a snapshot blob for the
// handshake. In-process connections skip the sync entirely.
func (m *Manager) GeneratePackets(local bool) []SnapshotData {
	if local {
		return nil
	}
	m.mu.Lock()
	ordered := make([]*GameRegistry, len(m.ordered))
	copy(ordered, m.ordered)
	m.mu.Unlock()

	out := make([]SnapshotData, 0, len(ordered))
	for _, r := range ordered {
		data, err := json.Marshal(r.snapshot())
		if err != nil {
			// map[string]int32 always marshals; keep the registry out of the
			// handshake rather than sending a broken blob
			m.logger.Error().Err(err).Str("registry", r.name.String()).Msg("failed to encode registry snapshot")
			continue
		}
		out = append(out, SnapshotData{Name: r.name, Data: data})
	}
	return out
}

// InjectSnapshots applies received snapshots to local registries and returns
// the entries missing on this side, keyed by registry name. An empty result
// means the session may proceed.
func (m *Manager) InjectSnapshots(snapshots map[protocol.Name][]byte) map[protocol.Name][]protocol.Name {
	missing := make(map[protocol.Name][]protocol.Name)
	for name, blob := range snapshots {
		reg, ok := m.Get(name)
		if !ok {
			m.logger.Error().Str("registry", name.String()).Msg("snapshot for unknown registry")
			missing[name] = []protocol.Name{name}
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return map[protocol.Name][]protocol.Name{name: {name}}
		}
		if lost := reg.inject(snap); len(lost) > 0 {
			missing[name] = lost
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return missing
}
