package network

import (
	"strings"
	"testing"

	"github.com/modforged/forgenet/protocol"
)

// TestChannelBuilder_VersionSetOnce checks the second Version call poisons
// the builder and surfaces at Build.
func TestChannelBuilder_VersionSetOnce(t *testing.T) {
	reg := NewRegistry()
	_, err := NewChannel(protocol.MustName("moda:x")).
		Version("1").
		Version("2").
		AnyVersion().
		Build(reg)
	if err == nil || !strings.Contains(err.Error(), "only be set once") {
		t.Errorf("double Version: got %v, want set-once error", err)
	}
}

// TestChannelBuilder_FilterBeforeVersion checks version filters require a
// version to be set first.
func TestChannelBuilder_FilterBeforeVersion(t *testing.T) {
	reg := NewRegistry()
	_, err := NewChannel(protocol.MustName("moda:x")).
		ExactVersionOnly().
		Build(reg)
	if err == nil {
		t.Error("ExactVersionOnly before Version should fail at Build")
	}
}

// TestChannelBuilder_MissingPieces checks Build rejects incomplete builders.
func TestChannelBuilder_MissingPieces(t *testing.T) {
	reg := NewRegistry()
	if _, err := NewChannel(protocol.MustName("moda:x")).AnyVersion().Build(reg); err == nil {
		t.Error("Build without a version should fail")
	}
	if _, err := NewChannel(protocol.MustName("moda:y")).Version("1").Build(reg); err == nil {
		t.Error("Build without version predicates should fail")
	}
	if _, err := NewChannel(protocol.MustName("moda:z")).
		Version("1").
		ClientAcceptedVersions(func(ConnectionType, string, bool) bool { return true }).
		Build(reg); err == nil {
		t.Error("Build with only one predicate should fail")
	}
}

// TestChannelBuilder_AttributeKeyPrefix checks attribute keys must start with
// the channel name.
func TestChannelBuilder_AttributeKeyPrefix(t *testing.T) {
	reg := NewRegistry()
	factory := func(protocol.Direction, *Connection, ConnectionType) any { return struct{}{} }

	_, err := NewChannel(protocol.MustName("moda:x")).
		Version("1").AnyVersion().
		Attribute("other:key", factory).
		Build(reg)
	if err == nil {
		t.Error("attribute key outside channel namespace should fail")
	}

	if _, err := NewChannel(protocol.MustName("moda:y")).
		Version("1").AnyVersion().
		Attribute("moda:y:handler", factory).
		Build(reg); err != nil {
		t.Errorf("prefixed attribute key failed: %v", err)
	}
}

// TestChannelBuilder_ExactVersionPredicates checks the stock filters against
// present, mismatched and absent remote versions.
func TestChannelBuilder_ExactVersionPredicates(t *testing.T) {
	reg := NewRegistry()
	exact, err := NewChannel(protocol.MustName("moda:exact")).
		Version("2").ExactVersionOnly().Build(reg)
	if err != nil {
		t.Fatal(err)
	}
	tolerant, err := NewChannel(protocol.MustName("moda:tolerant")).
		Version("2").ExactVersionOrMissing().Build(reg)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		version      string
		present      bool
		wantExact    bool
		wantTolerant bool
	}{
		{"2", true, true, true},
		{"3", true, false, false},
		{"", false, false, true},
	}
	for _, c := range cases {
		if got := exact.TryServerVersionOnClient(ConnectionModded, c.version, c.present); got != c.wantExact {
			t.Errorf("exact(%q,%v) = %v, want %v", c.version, c.present, got, c.wantExact)
		}
		if got := tolerant.TryClientVersionOnServer(ConnectionModded, c.version, c.present); got != c.wantTolerant {
			t.Errorf("tolerant(%q,%v) = %v, want %v", c.version, c.present, got, c.wantTolerant)
		}
	}
}

// TestChannelBuilder_VersionFn checks the deferred version producer is
// evaluated at Build time.
func TestChannelBuilder_VersionFn(t *testing.T) {
	reg := NewRegistry()
	version := "pre"
	builder := NewChannel(protocol.MustName("moda:x")).
		VersionFn(func() string { return version }).
		AnyVersion()
	version = "final"

	instance, err := builder.Build(reg)
	if err != nil {
		t.Fatal(err)
	}
	if instance.Version() != "final" {
		t.Errorf("instance version = %q, want %q", instance.Version(), "final")
	}
}
