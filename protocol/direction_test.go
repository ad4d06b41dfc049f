package protocol

import "testing"

// TestDirection_Reply checks the reply pairing stays within the same phase
// and inverts twice to the origin.
func TestDirection_Reply(t *testing.T) {
	cases := []struct {
		direction Direction
		reply     Direction
	}{
		{PlayToServer, PlayToClient},
		{PlayToClient, PlayToServer},
		{LoginToServer, LoginToClient},
		{LoginToClient, LoginToServer},
	}
	for _, c := range cases {
		if got := c.direction.Reply(); got != c.reply {
			t.Errorf("%v.Reply() = %v, want %v", c.direction, got, c.reply)
		}
		if got := c.direction.Reply().Reply(); got != c.direction {
			t.Errorf("%v.Reply().Reply() = %v, want original", c.direction, got)
		}
		if c.direction.IsLogin() != c.reply.IsLogin() {
			t.Errorf("%v and its reply disagree on login phase", c.direction)
		}
	}
}

// TestDirection_Sides checks origination and reception sides are opposite.
func TestDirection_Sides(t *testing.T) {
	cases := []struct {
		direction Direction
		origin    Side
	}{
		{PlayToServer, SideClient},
		{PlayToClient, SideServer},
		{LoginToServer, SideClient},
		{LoginToClient, SideServer},
	}
	for _, c := range cases {
		if got := c.direction.OriginationSide(); got != c.origin {
			t.Errorf("%v.OriginationSide() = %v, want %v", c.direction, got, c.origin)
		}
		if c.direction.OriginationSide() == c.direction.ReceptionSide() {
			t.Errorf("%v originates and receives on the same side", c.direction)
		}
	}
}

// TestDirection_PacketKindBinding checks the direction to packet kind
// mapping is a bijection.
func TestDirection_PacketKindBinding(t *testing.T) {
	seen := map[PacketKind]Direction{}
	for _, d := range []Direction{PlayToServer, PlayToClient, LoginToServer, LoginToClient} {
		kind := d.PacketKindFor()
		if prev, dup := seen[kind]; dup {
			t.Fatalf("kind %v bound to both %v and %v", kind, prev, d)
		}
		seen[kind] = d

		back, ok := DirectionFor(kind)
		if !ok || back != d {
			t.Errorf("DirectionFor(%v) = %v, %v; want %v", kind, back, ok, d)
		}
	}
}

// TestDirection_BuildPacket checks the transaction index is carried for login
// packets and dropped for play packets.
func TestDirection_BuildPacket(t *testing.T) {
	name := MustName("forge:test")
	data := NewBuffer()

	login := LoginToClient.BuildPacket(data, name, 7)
	if login.Index != 7 {
		t.Errorf("login packet index = %d, want 7", login.Index)
	}
	if d, ok := login.Direction(); !ok || d != LoginToClient {
		t.Errorf("login packet direction = %v, want %v", d, LoginToClient)
	}

	play := PlayToClient.BuildPacket(data, name, 7)
	if play.Index != 0 {
		t.Errorf("play packet kept transaction index %d", play.Index)
	}
}
