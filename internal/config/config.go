// Package config loads the demo host process's YAML configuration: which
// registrar to stand up, whether debug tracing is on by default, where Lua
// scripts live, and the listen addresses for the inspector and trace-stream
// sinks.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of conduitd's config file.
type Config struct {
	Registrar RegistrarConfig `yaml:"registrar"`
	Lua       LuaConfig       `yaml:"lua"`
	Inspector InspectorConfig `yaml:"inspector"`
	Trace     TraceConfig     `yaml:"trace"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

// RegistrarConfig names the Registrar the host process stands up and
// whether every channel starts with its debug trace flag on.
type RegistrarConfig struct {
	Name         string `yaml:"name"`
	DebugDefault bool   `yaml:"debug_default"`
}

// LuaConfig points at the scripts the luabridge preloads at startup.
type LuaConfig struct {
	ScriptDir string   `yaml:"script_dir"` // env-expanded; all *.lua files here are run at startup
	Scripts   []string `yaml:"scripts"`    // explicit script paths, run after ScriptDir
}

// InspectorConfig configures the read-only gRPC diagnostics service.
type InspectorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// TraceConfig configures the optional metrics and live-stream sinks.
type TraceConfig struct {
	MetricsEnabled    bool   `yaml:"metrics_enabled"`
	MetricsListenAddr string `yaml:"metrics_listen_addr"`
	StreamEnabled     bool   `yaml:"stream_enabled"`
	StreamListenAddr  string `yaml:"stream_listen_addr"`
}

// HeartbeatConfig configures the cron-driven demo publisher.
type HeartbeatConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // robfig/cron spec: 5-field expression or a descriptor such as "@every 30s"
	Channel  string `yaml:"channel"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw YAML into a Config, applying defaults and env expansion.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Registrar.Name == "" {
		cfg.Registrar.Name = "conduitd"
	}
	cfg.Lua.ScriptDir = expandEnv(cfg.Lua.ScriptDir)
	for i, s := range cfg.Lua.Scripts {
		cfg.Lua.Scripts[i] = expandEnv(s)
	}
	if cfg.Inspector.ListenAddr == "" {
		cfg.Inspector.ListenAddr = ":9090"
	}
	if cfg.Trace.MetricsListenAddr == "" {
		cfg.Trace.MetricsListenAddr = ":9091"
	}
	cfg.Trace.StreamListenAddr = expandEnv(cfg.Trace.StreamListenAddr)
	if cfg.Trace.StreamListenAddr == "" {
		cfg.Trace.StreamListenAddr = ":9092"
	}
	if cfg.Heartbeat.Schedule == "" {
		cfg.Heartbeat.Schedule = "@every 30s"
	}
	return &cfg, nil
}

// ScriptPaths returns every *.lua file directly inside Lua.ScriptDir in
// sorted order, followed by the explicit Lua.Scripts paths.
func (c *Config) ScriptPaths() ([]string, error) {
	var paths []string
	if c.Lua.ScriptDir != "" {
		entries, err := os.ReadDir(c.Lua.ScriptDir)
		if err != nil {
			return nil, fmt.Errorf("reading lua script dir %s: %w", c.Lua.ScriptDir, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
				continue
			}
			paths = append(paths, filepath.Join(c.Lua.ScriptDir, e.Name()))
		}
	}
	return append(paths, c.Lua.Scripts...), nil
}
