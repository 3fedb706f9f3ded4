package luabridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conduitbus/conduit/pkg/conduit"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBridgeCallInvokesNativeChannel(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	greet := conduit.Lookup[string, string](r, "greet", "native")
	greet.SubscribeValue(func(name string) string { return "hello " + name }, "greeter", 0)

	b := New()
	defer b.Close()
	b.Publish("demo", r)

	dir := t.TempDir()
	script := writeScript(t, dir, "call.lua", `
result = registrars.demo.greet:call("world")
`)
	if err := b.DoFile(script); err != nil {
		t.Fatal(err)
	}
	got := b.state.GetGlobal("result")
	if got.String() != "hello world" {
		t.Errorf("result = %q, want %q", got.String(), "hello world")
	}
}

func TestBridgeHookRegistersDynamicSubscriber(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	ticks := conduit.Lookup[int, conduit.Void](r, "ticks", "native")

	b := New()
	defer b.Close()
	b.Publish("demo", r)

	dir := t.TempDir()
	script := writeScript(t, dir, "hook.lua", `
seen = 0
registrars.demo.ticks:hook(function(n) seen = n end, "lua-hook", 0)
`)
	if err := b.DoFile(script); err != nil {
		t.Fatal(err)
	}
	if ticks.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", ticks.Count())
	}

	ticks.Invoke(42)

	got := b.state.GetGlobal("seen")
	if got.String() != "42" {
		t.Errorf("seen = %q, want 42", got.String())
	}
}

func TestBridgeCallbacksListsLabels(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	ticks := conduit.Lookup[int, conduit.Void](r, "ticks", "native")
	ticks.SubscribeVoid(func(int) {}, "sub-a", 0)
	ticks.SubscribeVoid(func(int) {}, "sub-b", 0)

	b := New()
	defer b.Close()
	b.Publish("demo", r)

	dir := t.TempDir()
	script := writeScript(t, dir, "callbacks.lua", `
labels = registrars.demo.ticks:callbacks()
count = #labels
`)
	if err := b.DoFile(script); err != nil {
		t.Fatal(err)
	}
	if got := b.state.GetGlobal("count").String(); got != "2" {
		t.Errorf("count = %q, want 2", got)
	}
}

func TestBridgeCallbacksOnUnknownChannelReturnsEmptyTable(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	conduit.Lookup[int, conduit.Void](r, "ticks", "native")

	b := New()
	defer b.Close()
	b.Publish("demo", r)

	dir := t.TempDir()
	script := writeScript(t, dir, "callbacks_empty.lua", `
labels = registrars.demo.nonexistent:callbacks()
count = #labels
`)
	if err := b.DoFile(script); err != nil {
		t.Fatal(err)
	}
	if got := b.state.GetGlobal("count").String(); got != "0" {
		t.Errorf("count = %q, want 0", got)
	}
}

func TestBridgeSetDebugTogglesFlag(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	ticks := conduit.Lookup[int, conduit.Void](r, "ticks", "native")

	b := New()
	defer b.Close()
	b.Publish("demo", r)

	dir := t.TempDir()
	script := writeScript(t, dir, "set_debug.lua", `
registrars.demo.ticks:set_debug(true)
`)
	if err := b.DoFile(script); err != nil {
		t.Fatal(err)
	}
	if !ticks.Debug() {
		t.Error("Debug() should be true after set_debug(true)")
	}
}

func TestBridgeEraseRemovesSubscriberByOneIndexedPosition(t *testing.T) {
	r := conduit.NewRegistrar("demo")
	ticks := conduit.Lookup[int, conduit.Void](r, "ticks", "native")
	ticks.SubscribeVoid(func(int) {}, "sub-a", 0)
	ticks.SubscribeVoid(func(int) {}, "sub-b", 0)

	b := New()
	defer b.Close()
	b.Publish("demo", r)

	dir := t.TempDir()
	script := writeScript(t, dir, "erase.lua", `
registrars.demo.ticks:erase(1)
`)
	if err := b.DoFile(script); err != nil {
		t.Fatal(err)
	}
	if ticks.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", ticks.Count())
	}
	if ticks.Labels()[0] != "sub-b" {
		t.Errorf("remaining subscriber = %q, want sub-b", ticks.Labels()[0])
	}
}
