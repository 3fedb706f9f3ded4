package conduit

import (
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

// Registrar is a namespace mapping channel names to channels (spec §4.1).
// Channels live as long as the Registrar that owns them; a
// *ChannelInterface obtained from Lookup becomes dangling once its
// Registrar is discarded (spec R2) — Go's GC means "dangling" here just
// means "keeps the old Registrar and its channels alive", not a
// use-after-free, but callers should still not mix handles across
// unrelated registrars.
type Registrar struct {
	name      string
	directory map[string]*dirEntry
	interner  Interner

	// trace is where debug trace lines are written (spec §6 Diagnostics),
	// the replaceable-sink equivalent of conduit.h's detail::Debug::logger()
	// static std::ostream*.
	trace *log.Logger

	observers []InvokeObserver
}

// InvokeObserver is notified after every successful channel invocation,
// regardless of the channel's debug flag. internal/trace's prometheus sink
// is the only current observer; the hook exists so that collaborator can
// record per-channel counts and latencies without pkg/conduit importing
// prometheus itself.
type InvokeObserver func(channelName string, subscriberCount int, elapsed time.Duration)

// WithInvokeObserver registers obs to run after every invocation on any
// channel this registrar owns. Observers run in registration order, after
// all subscribers and resolves have returned. An invocation of a channel
// with no subscribers returns before observers run and is not reported.
func WithInvokeObserver(obs InvokeObserver) Option {
	return func(r *Registrar) { r.observers = append(r.observers, obs) }
}

type dirEntry struct {
	channel Handle
}

// Option configures a Registrar at construction.
type Option func(*Registrar)

// WithInterning opts a Registrar into a shared string-interning table for
// source labels (spec §2 Name interner), matching conduit.h's
// SOURCE_STRING_INTERNING build. Default is the zero-cost passthrough.
func WithInterning(i Interner) Option {
	return func(r *Registrar) { r.interner = i }
}

// WithLogger overrides where debug trace lines are written. Default logs to
// os.Stdout with no prefix or timestamp, since spec §6 mandates an exact
// line format that a log prefix would break.
func WithLogger(l *log.Logger) Option {
	return func(r *Registrar) { r.trace = l }
}

// NewRegistrar constructs a named, empty directory.
func NewRegistrar(name string, opts ...Option) *Registrar {
	r := &Registrar{
		name:      name,
		directory: make(map[string]*dirEntry),
		interner:  passthroughInterner{},
		trace:     log.New(os.Stdout, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the registrar's identifier, used to qualify channel names
// in diagnostics.
func (r *Registrar) Name() string { return r.name }

// Lookup finds or creates the named channel with signature R(Args) (spec
// §4.1 lookup). If the name is new, a channel is allocated and its
// signature becomes fixed (spec I3/R1); if it exists, the signature must
// match exactly or this call panics with a *FatalError naming both
// signatures (spec §7 TypeMismatch) — Go generics give us type identity
// for free via a type assertion, in place of the original's
// std::type_index comparison.
func Lookup[Args any, R any](r *Registrar, name string, source string) *ChannelInterface[Args, R] {
	if source == "" {
		source = uuid.NewString()
	}
	source = r.internLabel(source)
	if e, ok := r.directory[name]; ok {
		ch, ok := e.channel.(*Channel[Args, R])
		if !ok {
			fatalf("type-mismatch", "channel %q: registered %s, requested %s",
				name, e.channel.TypeName(), signatureName[Args, R]())
		}
		return &ChannelInterface[Args, R]{sourceLabel: source, channel: ch}
	}
	ch := newChannel[Args, R](name, r)
	r.directory[name] = &dirEntry{channel: ch}
	return &ChannelInterface[Args, R]{sourceLabel: source, channel: ch}
}

// Alias ensures a channel named name exists in other with the same
// signature as r's own channel of that name, then fuses the two so both
// share one subscriber sequence and one resolve sequence (spec §4.1
// alias, I4). Not transitive (spec explicitly calls this out: aliasing
// A-B then B-C does not alias A-C). Aliasing against a channel that
// doesn't yet exist locally is fatal (spec §7 UnknownChannel, alias path).
func (r *Registrar) Alias(other *Registrar, name string) {
	e, ok := r.directory[name]
	if !ok {
		fatalf("unknown-channel", "alias: channel %q does not exist in registrar %q", name, r.name)
	}
	e.channel.aliasInto(other)
}

// SetDebug toggles the trace flag on every owned channel.
func (r *Registrar) SetDebug(debug bool) {
	for _, e := range r.directory {
		e.channel.SetDebug(debug)
	}
}

// Visit invokes fn on each owned channel's erased handle, for
// enumeration (spec §4.1 visit).
func (r *Registrar) Visit(fn func(name string, ch Handle)) {
	for name, e := range r.directory {
		fn(name, e.channel)
	}
}

// ChannelNames returns the names of all owned channels.
func (r *Registrar) ChannelNames() []string {
	out := make([]string, 0, len(r.directory))
	for name := range r.directory {
		out = append(out, name)
	}
	return out
}

// InvokeDynamic is the registrar-level half of the dynamic invocation
// surface (spec §4.5): the scripting bridge doesn't hold typed channel
// handles, so it calls by name. Returns UnknownChannelError (soft, per
// spec §7) if the name is not registered.
func (r *Registrar) InvokeDynamic(name, source string, args []any) ([]any, error) {
	e, ok := r.directory[name]
	if !ok {
		return nil, &UnknownChannelError{Name: name}
	}
	return e.channel.InvokeDynamic(source, args)
}

// SubscribeDynamic is the registrar-level half of subscribe_dynamic
// (spec §4.5).
func (r *Registrar) SubscribeDynamic(name string, fn DynamicFunc, label string, group int) (string, error) {
	e, ok := r.directory[name]
	if !ok {
		return "", &UnknownChannelError{Name: name}
	}
	return e.channel.SubscribeDynamic(fn, label, group), nil
}

// UnsubscribeDynamic removes a dynamic subscriber by label.
func (r *Registrar) UnsubscribeDynamic(name, label string) error {
	e, ok := r.directory[name]
	if !ok {
		return &UnknownChannelError{Name: name}
	}
	e.channel.UnsubscribeDyn(label)
	return nil
}

func (r *Registrar) internLabel(s string) string {
	if _, passthrough := r.interner.(passthroughInterner); passthrough {
		return s
	}
	return r.interner.Lookup(r.interner.Intern(s))
}

// emitTrace writes the single diagnostic line spec §6 mandates:
// "<source-label> -> <registrar-name>.<channel-name>(<arg1>, <arg2>, …)".
func (r *Registrar) emitTrace(source, channelName string, args any) {
	r.trace.Printf("%s -> %s.%s(%s)", source, r.name, channelName, formatArgs(args))
}
