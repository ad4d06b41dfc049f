// Package mods tracks the locally installed extensions whose identity is
// exchanged during login negotiation.
package mods

import (
	"fmt"

	"github.com/modforged/forgenet/config"
	"github.com/modforged/forgenet/network"
)

// Mod is one installed extension's identity.
type Mod struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Version     string `yaml:"version"`
}

// Manifest is the on-disk YAML shape of the local mod list.
type Manifest struct {
	Mods []Mod `yaml:"mods"`
}

// List is the local mod set, fixed after initialization.
type List struct {
	ordered []Mod
	byID    map[string]Mod
}

// NewList builds a list from mods in declaration order. Duplicate ids fail:
// two mods cannot claim the same identity.
func NewList(mods ...Mod) (*List, error) {
	l := &List{byID: make(map[string]Mod, len(mods))}
	for _, m := range mods {
		if m.ID == "" {
			return nil, fmt.Errorf("mod with empty id")
		}
		if _, ok := l.byID[m.ID]; ok {
			return nil, fmt.Errorf("duplicate mod id %q", m.ID)
		}
		l.byID[m.ID] = m
		l.ordered = append(l.ordered, m)
	}
	return l, nil
}

// Load reads the mod manifest from a YAML file.
func Load(path string) (*List, error) {
	manifest, err := config.LoadConfig[Manifest](path)
	if err != nil {
		return nil, fmt.Errorf("load mod manifest: %w", err)
	}
	return NewList(manifest.Mods...)
}

// IDs returns the mod identifiers in declaration order.
func (l *List) IDs() []string {
	out := make([]string, 0, len(l.ordered))
	for _, m := range l.ordered {
		out = append(out, m.ID)
	}
	return out
}

// Get returns one mod by id.
func (l *List) Get(id string) (Mod, bool) {
	m, ok := l.byID[id]
	return m, ok
}

// Contains reports whether a mod id is installed.
func (l *List) Contains(id string) bool {
	_, ok := l.byID[id]
	return ok
}

// Data returns the mod set in the shape the handshake and mismatch
// diagnostics consume.
func (l *List) Data() map[string]network.ModData {
	out := make(map[string]network.ModData, len(l.ordered))
	for _, m := range l.ordered {
		out[m.ID] = network.ModData{DisplayName: m.DisplayName, Version: m.Version}
	}
	return out
}
