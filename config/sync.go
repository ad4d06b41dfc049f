// Package config tracks the server-side config files synchronized to clients
// during login, and loads the framework's own YAML configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// File is one tracked config file ready to be sent during the handshake.
type File struct {
	Name string
	Data []byte
}

// Sync tracks server config files and holds files received from a server.
// Received files are kept in memory only; they must never be written to disk,
// and should be parsed with the same suspicion as any remote data.
type Sync struct {
	mu       sync.Mutex
	tracked  map[string][]byte
	received map[string][]byte
	logger   zerolog.Logger
}

func NewSync() *Sync {
	return &Sync{
		tracked:  make(map[string][]byte),
		received: make(map[string][]byte),
		logger:   log.With().Str("com", "config-sync").Logger(),
	}
}

// Track registers a config file's contents for synchronization to clients.
func (s *Sync) Track(name string, data []byte) {
	s.mu.Lock()
	s.tracked[name] = data
	s.mu.Unlock()
}

// TrackFile reads a config file from disk and registers it under its base
// name.
func (s *Sync) TrackFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	s.Track(filepath.Base(path), data)
	return nil
}

// SyncConfigs returns every tracked file for login-payload gathering, in
// stable name order. In-process connections share config state already and
// get nothing.
func (s *Sync) SyncConfigs(local bool) []File {
	if local {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tracked))
	for name := range s.tracked {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]File, 0, len(names))
	for _, name := range names {
		out = append(out, File{Name: name, Data: s.tracked[name]})
	}
	return out
}

// Receive stores a file sent by the server.
func (s *Sync) Receive(name string, data []byte) {
	s.logger.Debug().Str("file", name).Int("bytes", len(data)).Msg("received synced config")
	s.mu.Lock()
	s.received[name] = data
	s.mu.Unlock()
}

// Received returns a file previously sent by the server.
func (s *Sync) Received(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.received[name]
	return data, ok
}
