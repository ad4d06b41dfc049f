package network

import (
	"errors"
	"testing"

	"github.com/modforged/forgenet/protocol"
)

// TestRegistry_DuplicateChannel checks the second registration of a name
// fails with the sentinel error.
func TestRegistry_DuplicateChannel(t *testing.T) {
	reg := NewRegistry()
	name := protocol.MustName("moda:chan")

	if _, err := NewChannel(name).Version("1").AnyVersion().Build(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	_, err := NewChannel(name).Version("2").AnyVersion().Build(reg)
	if !errors.Is(err, ErrDuplicateChannel) {
		t.Errorf("duplicate registration: got %v, want ErrDuplicateChannel", err)
	}
}

// TestRegistry_Lock checks registration is refused once the registry is
// locked and that the lock is one-way.
func TestRegistry_Lock(t *testing.T) {
	reg := NewRegistry()
	reg.Lock()

	_, err := NewChannel(protocol.MustName("moda:late")).Version("1").AnyVersion().Build(reg)
	if !errors.Is(err, ErrRegistryLocked) {
		t.Errorf("registration after lock: got %v, want ErrRegistryLocked", err)
	}

	// locking again stays locked
	reg.Lock()
	if _, err := NewChannel(protocol.MustName("moda:later")).Version("1").AnyVersion().Build(reg); err == nil {
		t.Error("registration should still be refused after repeated Lock")
	}
}

// TestRegistry_InstancesOrder checks enumeration preserves registration order.
func TestRegistry_InstancesOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"modc:one", "moda:two", "modb:three"}
	for _, n := range names {
		if _, err := NewChannel(protocol.MustName(n)).Version("1").AnyVersion().Build(reg); err != nil {
			t.Fatalf("registration of %s failed: %v", n, err)
		}
	}

	instances := reg.Instances()
	if len(instances) != len(names) {
		t.Fatalf("got %d instances, want %d", len(instances), len(names))
	}
	for i, n := range names {
		if instances[i].Name().String() != n {
			t.Errorf("instance %d = %s, want %s", i, instances[i].Name(), n)
		}
	}
}

// TestRegistry_Versions checks the name-to-version snapshot.
func TestRegistry_Versions(t *testing.T) {
	reg := NewRegistry()
	if _, err := NewChannel(protocol.MustName("moda:x")).Version("3.1").AnyVersion().Build(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := NewChannel(protocol.MustName("modb:y")).Version("7").AnyVersion().Build(reg); err != nil {
		t.Fatal(err)
	}

	versions := reg.Versions()
	if len(versions) != 2 {
		t.Fatalf("got %d versions, want 2", len(versions))
	}
	if versions[protocol.MustName("moda:x")] != "3.1" || versions[protocol.MustName("modb:y")] != "7" {
		t.Errorf("versions snapshot wrong: %v", versions)
	}
}

// TestRegistry_ListIncompatiblePeers checks vanilla compatibility is judged
// per channel, with the absent version presented to each predicate.
func TestRegistry_ListIncompatiblePeers(t *testing.T) {
	reg := NewRegistry()

	// tolerates absent remotes on both sides
	if _, err := NewChannel(protocol.MustName("moda:x")).
		Version("1").ExactVersionOrMissing().Build(reg); err != nil {
		t.Fatal(err)
	}
	// requires an exact version, so vanilla peers are rejected
	if _, err := NewChannel(protocol.MustName("modb:y")).
		Version("1").ExactVersionOnly().Build(reg); err != nil {
		t.Fatal(err)
	}

	for _, serverSide := range []bool{true, false} {
		rejected := reg.ListIncompatiblePeers(serverSide)
		if len(rejected) != 1 || rejected[0] != "modb:y" {
			t.Errorf("ListIncompatiblePeers(%v) = %v, want [modb:y]", serverSide, rejected)
		}
	}
	if reg.AcceptsVanillaClients() {
		t.Error("registry with a strict channel should not accept vanilla clients")
	}
	if reg.CanConnectToVanillaServer() {
		t.Error("registry with a strict channel should not join vanilla servers")
	}
}

// TestRegistry_AllTolerant checks a registry of tolerant channels passes both
// vanilla compatibility checks.
func TestRegistry_AllTolerant(t *testing.T) {
	reg := NewRegistry()
	if _, err := NewChannel(protocol.MustName("moda:x")).Version("1").AnyVersion().Build(reg); err != nil {
		t.Fatal(err)
	}
	if !reg.AcceptsVanillaClients() || !reg.CanConnectToVanillaServer() {
		t.Error("tolerant registry should pass both vanilla checks")
	}
}
