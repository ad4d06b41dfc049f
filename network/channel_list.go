package network

import (
	"sync"

	"github.com/modforged/forgenet/protocol"
)

// ChannelList tracks the legacy channel-presence state of one connection:
// names we have announced locally and names the remote has announced to us.
// It is one of the two sources Instance.IsRemotePresent consults; peers that
// only speak the presence protocol never appear in the handshake data.
type ChannelList struct {
	mu     sync.Mutex
	local  map[protocol.Name]struct{}
	remote map[protocol.Name]struct{}
}

func NewChannelList() *ChannelList {
	return &ChannelList{
		local:  make(map[protocol.Name]struct{}),
		remote: make(map[protocol.Name]struct{}),
	}
}

// AddLocal records names as announced by this side and returns the subset
// that was not already known, preserving the "send only the diff" outbound
// rule.
func (l *ChannelList) AddLocal(names map[protocol.Name]struct{}) map[protocol.Name]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := make(map[protocol.Name]struct{})
	for n := range names {
		if _, ok := l.local[n]; !ok {
			l.local[n] = struct{}{}
			added[n] = struct{}{}
		}
	}
	return added
}

// AddRemote records names announced by the remote and returns the newly seen
// subset.
func (l *ChannelList) AddRemote(names map[protocol.Name]struct{}) map[protocol.Name]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := make(map[protocol.Name]struct{})
	for n := range names {
		if _, ok := l.remote[n]; !ok {
			l.remote[n] = struct{}{}
			added[n] = struct{}{}
		}
	}
	return added
}

// RemoveRemote drops names the remote has withdrawn.
func (l *ChannelList) RemoveRemote(names map[protocol.Name]struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for n := range names {
		delete(l.remote, n)
	}
}

// RemoteContains reports whether the remote announced the given channel.
func (l *ChannelList) RemoteContains(name protocol.Name) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.remote[name]
	return ok
}

// RemoteChannels returns a snapshot of the remote-announced names.
func (l *ChannelList) RemoteChannels() []protocol.Name {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]protocol.Name, 0, len(l.remote))
	for n := range l.remote {
		out = append(out, n)
	}
	return out
}

// LocalChannels returns a snapshot of the locally announced names.
func (l *ChannelList) LocalChannels() []protocol.Name {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]protocol.Name, 0, len(l.local))
	for n := range l.local {
		out = append(out, n)
	}
	return out
}
