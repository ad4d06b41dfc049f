package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TestSync_SyncConfigs checks tracked files come back in stable name order
// and in-process connections get nothing.
func TestSync_SyncConfigs(t *testing.T) {
	s := NewSync()
	s.Track("zeta-server.toml", []byte("b = 2"))
	s.Track("alpha-server.toml", []byte("a = 1"))

	if got := s.SyncConfigs(true); got != nil {
		t.Errorf("local connections should sync nothing, got %v", got)
	}

	files := s.SyncConfigs(false)
	want := []File{
		{Name: "alpha-server.toml", Data: []byte("a = 1")},
		{Name: "zeta-server.toml", Data: []byte("b = 2")},
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("SyncConfigs = %v, want %v", files, want)
	}
}

// TestSync_TrackOverwrite checks re-tracking a name replaces its contents.
func TestSync_TrackOverwrite(t *testing.T) {
	s := NewSync()
	s.Track("moda-server.toml", []byte("old"))
	s.Track("moda-server.toml", []byte("new"))

	files := s.SyncConfigs(false)
	if len(files) != 1 || string(files[0].Data) != "new" {
		t.Errorf("SyncConfigs = %v", files)
	}
}

// TestSync_TrackFile checks disk files are registered under their base name.
func TestSync_TrackFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moda-server.toml")
	if err := os.WriteFile(path, []byte("speed = 3"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSync()
	if err := s.TrackFile(path); err != nil {
		t.Fatal(err)
	}
	files := s.SyncConfigs(false)
	if len(files) != 1 || files[0].Name != "moda-server.toml" || string(files[0].Data) != "speed = 3" {
		t.Errorf("SyncConfigs = %v", files)
	}

	if err := s.TrackFile(filepath.Join(dir, "absent.toml")); err == nil {
		t.Error("missing file should fail")
	}
}

// TestSync_Receive checks received files stay in memory and are retrievable.
func TestSync_Receive(t *testing.T) {
	s := NewSync()
	if _, ok := s.Received("moda-server.toml"); ok {
		t.Error("nothing received yet")
	}
	s.Receive("moda-server.toml", []byte("speed = 3"))
	data, ok := s.Received("moda-server.toml")
	if !ok || string(data) != "speed = 3" {
		t.Errorf("Received = %q, %v", data, ok)
	}
}

// TestLoadConfig checks the YAML loader and its failure modes.
func TestLoadConfig(t *testing.T) {
	type settings struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("host: localhost\nport: 25565\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig[settings](path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "localhost" || cfg.Port != 25565 {
		t.Errorf("LoadConfig = %+v", cfg)
	}

	if _, err := LoadConfig[settings](filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte(":\t:::not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig[settings](bad); err == nil {
		t.Error("malformed yaml should fail")
	}
}
