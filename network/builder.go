package network

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modforged/forgenet/protocol"
)

// ChannelBuilder assembles a channel before it is registered. Misuse (setting
// the protocol version twice, version filters before a version, attribute
// keys outside the channel's namespace) is remembered and reported by Build;
// these are programming mistakes by the channel's author, never recoverable.
type ChannelBuilder struct {
	name       protocol.Name
	version    func() string
	clientTest VersionTest
	serverTest VersionTest
	attributes map[string]AttributeFactory
	err        error
}

// NewChannel starts a builder for the uniquely named channel.
func NewChannel(name protocol.Name) *ChannelBuilder {
	return &ChannelBuilder{name: name, attributes: make(map[string]AttributeFactory)}
}

func (b *ChannelBuilder) fail(err error) *ChannelBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Version sets the channel's protocol version string. May only be called once.
func (b *ChannelBuilder) Version(version string) *ChannelBuilder {
	return b.VersionFn(func() string { return version })
}

// VersionFn sets a producer for the protocol version, evaluated once when the
// channel is created. May only be called once.
func (b *ChannelBuilder) VersionFn(fn func() string) *ChannelBuilder {
	if b.version != nil {
		return b.fail(errors.New("protocol version may only be set once"))
	}
	b.version = fn
	return b
}

// AcceptedVersions installs the same predicate on both sides.
func (b *ChannelBuilder) AcceptedVersions(test VersionTest) *ChannelBuilder {
	return b.ClientAcceptedVersions(test).ServerAcceptedVersions(test)
}

// ClientAcceptedVersions installs the predicate run on the client against the
// server's declared version, or against absence.
func (b *ChannelBuilder) ClientAcceptedVersions(test VersionTest) *ChannelBuilder {
	b.clientTest = test
	return b
}

// ServerAcceptedVersions installs the predicate run on the server against the
// client's declared version, or against absence.
func (b *ChannelBuilder) ServerAcceptedVersions(test VersionTest) *ChannelBuilder {
	b.serverTest = test
	return b
}

// ExactVersionOnly accepts only a remote declaring exactly this channel's
// version, on both sides.
func (b *ChannelBuilder) ExactVersionOnly() *ChannelBuilder {
	if b.version == nil {
		return b.fail(errors.New("must set protocol version before setting version filter"))
	}
	version := b.version
	return b.AcceptedVersions(func(_ ConnectionType, v string, present bool) bool {
		return present && v == version()
	})
}

// ExactVersionOrMissing accepts an exact match or an absent remote channel,
// on both sides.
func (b *ChannelBuilder) ExactVersionOrMissing() *ChannelBuilder {
	return b.ExactVersionOrMissingServer().ExactVersionOrMissingClient()
}

// ExactVersionOrMissingServer sets the client-side test to accept an exact
// match from the server or a server lacking the channel.
func (b *ChannelBuilder) ExactVersionOrMissingServer() *ChannelBuilder {
	if b.version == nil {
		return b.fail(errors.New("must set protocol version before setting version filter"))
	}
	version := b.version
	return b.ClientAcceptedVersions(func(_ ConnectionType, v string, present bool) bool {
		return !present || v == version()
	})
}

// ExactVersionOrMissingClient sets the server-side test to accept an exact
// match from the client or a client lacking the channel.
func (b *ChannelBuilder) ExactVersionOrMissingClient() *ChannelBuilder {
	if b.version == nil {
		return b.fail(errors.New("must set protocol version before setting version filter"))
	}
	version := b.version
	return b.ServerAcceptedVersions(func(_ ConnectionType, v string, present bool) bool {
		return !present || v == version()
	})
}

// AnyVersion accepts every remote, including absent ones, on both sides.
func (b *ChannelBuilder) AnyVersion() *ChannelBuilder {
	return b.AcceptedVersions(func(ConnectionType, string, bool) bool { return true })
}

// Attribute registers a per-connection attribute factory. The key must begin
// with this channel's name to keep attribute namespaces from colliding.
func (b *ChannelBuilder) Attribute(key string, factory AttributeFactory) *ChannelBuilder {
	if !strings.HasPrefix(key, b.name.String()) {
		return b.fail(fmt.Errorf("invalid attribute key %q, must begin with %s", key, b.name))
	}
	b.attributes[key] = factory
	return b
}

// Build registers the channel with the registry and returns its instance.
func (b *ChannelBuilder) Build(reg *Registry) (*Instance, error) {
	if b.err != nil {
		return nil, fmt.Errorf("channel %s: %w", b.name, b.err)
	}
	if b.version == nil {
		return nil, fmt.Errorf("channel %s: protocol version not set", b.name)
	}
	if b.clientTest == nil || b.serverTest == nil {
		return nil, fmt.Errorf("channel %s: version predicates not set", b.name)
	}
	return reg.create(b.name, b.version(), b.clientTest, b.serverTest, b.attributes)
}
