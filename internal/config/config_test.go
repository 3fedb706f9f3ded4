package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testYAML = `
registrar:
  name: demo
  debug_default: true

lua:
  script_dir: ./scripts
  scripts:
    - ./extra/bootstrap.lua

inspector:
  enabled: true
  listen_addr: ":9190"

trace:
  metrics_enabled: true
  metrics_listen_addr: ":9191"
  stream_enabled: true
  stream_listen_addr: "${STREAM_ADDR}"

heartbeat:
  enabled: true
  schedule: "@every 10s"
  channel: heartbeat
`

func TestParseConfig(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Registrar.Name != "demo" {
		t.Errorf("registrar.name = %q, want demo", cfg.Registrar.Name)
	}
	if !cfg.Registrar.DebugDefault {
		t.Error("registrar.debug_default should be true")
	}
	if cfg.Inspector.ListenAddr != ":9190" {
		t.Errorf("inspector.listen_addr = %q, want :9190", cfg.Inspector.ListenAddr)
	}
	if !cfg.Heartbeat.Enabled || cfg.Heartbeat.Schedule != "@every 10s" || cfg.Heartbeat.Channel != "heartbeat" {
		t.Errorf("heartbeat = %+v", cfg.Heartbeat)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Registrar.Name != "conduitd" {
		t.Errorf("default registrar name = %q, want conduitd", cfg.Registrar.Name)
	}
	if cfg.Inspector.ListenAddr != ":9090" {
		t.Errorf("default inspector listen_addr = %q, want :9090", cfg.Inspector.ListenAddr)
	}
	if cfg.Trace.MetricsListenAddr != ":9091" {
		t.Errorf("default metrics listen_addr = %q, want :9091", cfg.Trace.MetricsListenAddr)
	}
	if cfg.Trace.StreamListenAddr != ":9092" {
		t.Errorf("default stream listen_addr = %q, want :9092", cfg.Trace.StreamListenAddr)
	}
	if cfg.Heartbeat.Schedule != "@every 30s" {
		t.Errorf("default heartbeat schedule = %q, want @every 30s", cfg.Heartbeat.Schedule)
	}
}

func TestEnvSubstitutionInTraceAddr(t *testing.T) {
	t.Setenv("STREAM_ADDR", ":7777")
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trace.StreamListenAddr != ":7777" {
		t.Errorf("stream_listen_addr = %q, want :7777", cfg.Trace.StreamListenAddr)
	}
}

func TestEnvSubstitutionPreservesUnsetVars(t *testing.T) {
	os.Unsetenv("STREAM_ADDR")
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Trace.StreamListenAddr != "${STREAM_ADDR}" {
		t.Errorf("unset env var should be preserved, got %q", cfg.Trace.StreamListenAddr)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")
	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_VAR}", "hello"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
		{"${NONEXISTENT}", "${NONEXISTENT}"},
		{"no vars here", "no vars here"},
		{"", ""},
	}
	for _, tt := range tests {
		got := expandEnv(tt.input)
		if got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("{{invalid yaml"))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Registrar.Name != "demo" {
		t.Errorf("registrar.name = %q, want demo", cfg.Registrar.Name)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScriptPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.lua", "b.lua", "ignore.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	cfg := &Config{Lua: LuaConfig{ScriptDir: dir, Scripts: []string{"/extra/one.lua"}}}

	paths, err := cfg.ScriptPaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v, want 3 entries", paths)
	}
	if paths[2] != "/extra/one.lua" {
		t.Errorf("explicit script should be last, got %v", paths)
	}
}

func TestScriptPathsMissingDir(t *testing.T) {
	cfg := &Config{Lua: LuaConfig{ScriptDir: "/does/not/exist"}}
	if _, err := cfg.ScriptPaths(); err == nil {
		t.Error("expected error for missing script dir")
	}
}
