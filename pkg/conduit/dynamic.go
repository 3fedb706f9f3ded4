package conduit

import "reflect"

// DynamicFunc is an externally-supplied, dynamically-typed callable, the
// shape scripting collaborators provide to subscribe_dynamic (spec §4.5).
// It receives the channel's parameters boxed as []any and returns a boxed
// result (nil for "no return").
type DynamicFunc func(args []any) any

// Handle is the type-erased handle a Registrar keeps in its
// directory: conduit.h's RegistryEntryBase, minus the scripting-language
// specific add_lua_callback/call_from_lua split (those live on top of
// InvokeDynamic/SubscribeDynamic here, language-agnostically).
type Handle interface {
	Name() string
	Count() int
	Labels() []string
	SetDebug(bool)
	Debug() bool
	TypeName() string
	aliasInto(target *Registrar)

	InvokeDynamic(source string, args []any) ([]any, error)
	SubscribeDynamic(fn DynamicFunc, label string, group int) string
	UnsubscribeDyn(label string)
	UnsubscribeAtDyn(index int)
}

func (c *Channel[Args, R]) UnsubscribeDyn(label string) { c.Unsubscribe(label) }
func (c *Channel[Args, R]) UnsubscribeAtDyn(index int)  { c.UnsubscribeAt(index) }

// InvokeDynamic implements the scripting call path (spec §4.5
// invoke_dynamic): converts args to Args by the conversion protocol in
// argsFromAny, invokes natively on success, and returns a
// ConversionFailure without invoking the channel on any failure (spec
// §7: "on any conversion failure, abort invocation").
func (c *Channel[Args, R]) InvokeDynamic(source string, args []any) ([]any, error) {
	typedArgs, err := argsFromAny[Args](c.name, args)
	if err != nil {
		return nil, err
	}
	rets := c.Invoke(typedArgs, source)
	out := make([]any, len(rets))
	for i, r := range rets {
		if v, ok := r.Get(); ok {
			out[i] = v
		}
	}
	return out, nil
}

// SubscribeDynamic wraps an externally-supplied callable as a native
// subscriber (spec §4.5 subscribe_dynamic). The wrapper boxes this
// channel's Args for the callable and, if its result is not convertible
// to R, discards it and stores an empty Optional[R] (spec: "the wrapper
// discards the return and stores an empty Optional<R>").
func (c *Channel[Args, R]) SubscribeDynamic(fn DynamicFunc, label string, group int) string {
	return c.Subscribe(func(a Args) Optional[R] {
		ret := fn(argsToAny(a))
		if ret == nil {
			return None[R]()
		}
		if v, ok := convertTo[R](ret); ok {
			return Some(v)
		}
		return None[R]()
	}, label, group)
}

// argsToAny boxes an Args value into one slot per logical parameter: a
// struct's fields in declaration order, or the value itself as a single
// slot for a one-parameter (non-struct) Args, or no slots for struct{}
// (see DESIGN.md for why Args is rendered this way).
func argsToAny(args any) []any {
	v := reflect.ValueOf(args)
	if v.Kind() == reflect.Struct {
		out := make([]any, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			out[i] = v.Field(i).Interface()
		}
		return out
	}
	return []any{args}
}

// argsFromAny is the inverse of argsToAny: the caller-supplied conversion
// protocol of spec §4.5, implemented via reflect's assignability and
// convertibility rules rather than a pluggable interface, since the pack's
// scripting bridge (gopher-lua) already hands over concrete Go values
// (string, float64, bool) that convert directly.
func argsFromAny[Args any](channelName string, boxed []any) (Args, error) {
	var zero Args
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		if len(boxed) != 1 {
			return zero, &ConversionFailure{ChannelName: channelName, ArgIndex: 0, Reason: "expected exactly one argument"}
		}
		v, ok := convertTo[Args](boxed[0])
		if !ok {
			return zero, &ConversionFailure{ChannelName: channelName, ArgIndex: 0, Reason: "incompatible type"}
		}
		return v, nil
	}
	if len(boxed) != t.NumField() {
		return zero, &ConversionFailure{ChannelName: channelName, ArgIndex: -1, Reason: "wrong argument count"}
	}
	out := reflect.New(t).Elem()
	for i := 0; i < t.NumField(); i++ {
		field := out.Field(i)
		val := reflect.ValueOf(boxed[i])
		if !val.IsValid() {
			continue
		}
		switch {
		case val.Type().AssignableTo(field.Type()):
			field.Set(val)
		case val.Type().ConvertibleTo(field.Type()):
			field.Set(val.Convert(field.Type()))
		default:
			return zero, &ConversionFailure{ChannelName: channelName, ArgIndex: i, Reason: "cannot convert " + val.Type().String() + " to " + field.Type().String()}
		}
	}
	return out.Interface().(Args), nil
}

// convertTo attempts to produce a T from a dynamically-typed value,
// mirroring the original's CanConvert/ReturnTypeTag machinery at runtime
// instead of compile time.
func convertTo[T any](v any) (T, bool) {
	var zero T
	if v == nil {
		return zero, false
	}
	if t, ok := v.(T); ok {
		return t, true
	}
	rv := reflect.ValueOf(v)
	rt := reflect.TypeFor[T]()
	if rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt).Interface().(T), true
	}
	return zero, false
}
