package protocol

import "testing"

// TestParseName covers namespace defaulting and character validation.
func TestParseName(t *testing.T) {
	cases := []struct {
		input     string
		namespace string
		path      string
		wantErr   bool
	}{
		{"fml:handshake", "fml", "handshake", false},
		{"register", "minecraft", "register", false},
		{":register", "minecraft", "register", false},
		{"forge:block/stone", "forge", "block/stone", false},
		{"mod_a:chan-1.2", "mod_a", "chan-1.2", false},
		{"FML:handshake", "", "", true},
		{"fml:Hand Shake", "", "", true},
		{"fml:", "", "", true},
		{"", "", "", true},
	}

	for _, c := range cases {
		got, err := ParseName(c.input)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseName(%q) succeeded, want error", c.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseName(%q) failed: %v", c.input, err)
			continue
		}
		if got.Namespace() != c.namespace || got.Path() != c.path {
			t.Errorf("ParseName(%q) = %s:%s, want %s:%s",
				c.input, got.Namespace(), got.Path(), c.namespace, c.path)
		}
	}
}

// TestName_IsZero checks the zero value is distinguishable from real names.
func TestName_IsZero(t *testing.T) {
	var zero Name
	if !zero.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if MustName("fml:play").IsZero() {
		t.Error("real name should not report IsZero")
	}
}
