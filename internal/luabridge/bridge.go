// Package luabridge exposes Registrars to gopher-lua scripts: the scripting
// collaborator boundary described in spec §4.5/§6. A script reaches a
// channel through a well-known global table, registrars[name][channel],
// whose call/hook/callbacks/set_debug/erase methods are the only surface
// offered — everything goes through the dynamic invocation surface, never
// a typed Go handle.
package luabridge

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/conduitbus/conduit/pkg/conduit"
)

// Bridge owns one Lua state shared across every script it loads, so
// subscriptions a script installs with hook() stay live for the lifetime of
// the process, not just for the duration of DoFile.
type Bridge struct {
	state      *lua.LState
	registrars map[string]*conduit.Registrar
}

// New constructs a Bridge with an empty registrars table published as the
// global "registrars".
func New() *Bridge {
	b := &Bridge{
		state:      lua.NewState(),
		registrars: make(map[string]*conduit.Registrar),
	}
	b.state.SetGlobal("registrars", b.state.NewTable())
	return b
}

// Close releases the underlying Lua state.
func (b *Bridge) Close() { b.state.Close() }

// Publish makes r reachable from scripts as registrars[name]. Each channel
// already registered on r (by the native API) becomes accessible as
// registrars[name][channelName] the first time a script indexes it.
func (b *Bridge) Publish(name string, r *conduit.Registrar) {
	b.registrars[name] = r

	proxy := b.state.NewTable()
	mt := b.state.NewTable()
	b.state.SetField(mt, "__index", b.state.NewFunction(func(ls *lua.LState) int {
		_ = ls.CheckTable(1)
		channelName := ls.CheckString(2)
		ls.Push(b.channelProxy(name, channelName))
		return 1
	}))
	b.state.SetMetatable(proxy, mt)

	registrars := b.state.GetGlobal("registrars").(*lua.LTable)
	registrars.RawSetString(name, proxy)
}

// channelProxy builds the call/hook/callbacks/set_debug/erase table for one
// channel, closing over registrarName/channelName so every method call
// re-resolves the channel by name (channels are looked up fresh each call;
// nothing is cached beyond the proxy table itself).
func (b *Bridge) channelProxy(registrarName, channelName string) *lua.LTable {
	r := b.registrars[registrarName]
	proxy := b.state.NewTable()

	b.state.SetField(proxy, "call", b.state.NewFunction(func(ls *lua.LState) int {
		n := ls.GetTop()
		args := make([]any, 0, n-1)
		for i := 2; i <= n; i++ {
			args = append(args, luaToGo(ls.Get(i)))
		}
		rets, err := r.InvokeDynamic(channelName, "lua:"+registrarName, args)
		if err != nil {
			ls.RaiseError("%s", err.Error())
			return 0
		}
		for _, ret := range rets {
			ls.Push(goToLua(ls, ret))
		}
		return len(rets)
	}))

	b.state.SetField(proxy, "hook", b.state.NewFunction(func(ls *lua.LState) int {
		fn := ls.CheckFunction(2)
		label := ""
		if ls.GetTop() >= 3 {
			label = ls.CheckString(3)
		}
		group := 0
		if ls.GetTop() >= 4 {
			group = int(ls.CheckNumber(4))
		}
		assigned, err := r.SubscribeDynamic(channelName, b.luaCallback(fn), label, group)
		if err != nil {
			ls.RaiseError("%s", err.Error())
			return 0
		}
		ls.Push(lua.LString(assigned))
		return 1
	}))

	b.state.SetField(proxy, "callbacks", b.state.NewFunction(func(ls *lua.LState) int {
		tbl := ls.NewTable()
		r.Visit(func(name string, ch conduit.Handle) {
			if name != channelName {
				return
			}
			for _, label := range ch.Labels() {
				tbl.Append(lua.LString(label))
			}
		})
		ls.Push(tbl)
		return 1
	}))

	b.state.SetField(proxy, "set_debug", b.state.NewFunction(func(ls *lua.LState) int {
		flag := ls.CheckBool(2)
		r.Visit(func(name string, ch conduit.Handle) {
			if name == channelName {
				ch.SetDebug(flag)
			}
		})
		return 0
	}))

	b.state.SetField(proxy, "erase", b.state.NewFunction(func(ls *lua.LState) int {
		index := int(ls.CheckNumber(2)) - 1 // scripts are 1-indexed
		r.Visit(func(name string, ch conduit.Handle) {
			if name == channelName {
				ch.UnsubscribeAtDyn(index)
			}
		})
		return 0
	}))

	return proxy
}

// luaCallback adapts a Lua function into a conduit.DynamicFunc: Go values
// in, a Lua call, a Go value back out (spec §4.5 subscribe_dynamic).
func (b *Bridge) luaCallback(fn *lua.LFunction) conduit.DynamicFunc {
	return func(args []any) any {
		b.state.Push(fn)
		for _, a := range args {
			b.state.Push(goToLua(b.state, a))
		}
		if err := b.state.PCall(len(args), 1, nil); err != nil {
			return nil
		}
		ret := b.state.Get(-1)
		b.state.Pop(1)
		if ret == lua.LNil {
			return nil
		}
		return luaToGo(ret)
	}
}

// DoFile runs a script against the shared state; its hook() calls register
// subscribers that remain live after the function returns.
func (b *Bridge) DoFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("script path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("script %s: %w", abs, err)
	}
	if err := b.state.DoFile(abs); err != nil {
		return fmt.Errorf("running %s: %w", abs, err)
	}
	return nil
}

func luaToGo(v lua.LValue) any {
	switch v.Type() {
	case lua.LTString:
		return v.String()
	case lua.LTNumber:
		return float64(v.(lua.LNumber))
	case lua.LTBool:
		return bool(v.(lua.LBool))
	default:
		return nil
	}
}

func goToLua(ls *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case nil:
		return lua.LNil
	default:
		return lua.LString(fmt.Sprintf("%v", x))
	}
}
