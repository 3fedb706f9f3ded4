package conduit

import (
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Channel is the dispatch engine for one typed signature (spec §3/§4.2).
// Args plays the role of the original's variadic parameter pack T...: a
// struct for multi-parameter signatures, or a single concrete type for a
// one-parameter signature, or struct{} for zero parameters (see
// DESIGN.md). R plays the role of the return type; use Void for a channel
// whose native signature has no meaningful return.
//
// Channel has no internal locking. The bus is single-threaded cooperative
// by contract (spec §1 Non-goals, §5): all dispatch happens on the
// caller's goroutine, and concurrent use of a single Channel from more
// than one goroutine is a misuse the type does not attempt to detect.
type Channel[Args any, R any] struct {
	name      string
	registrar *Registrar

	subs     *[]subscriber[Args, R]
	resolves *[]resolver[R]

	dispatchDepth int
	pendingUnsub  []int

	resolveDepth     int
	pendingUnresolve []int

	debug bool

	lastReturns []Optional[R]
}

type subscriber[Args any, R any] struct {
	invoke func(Args) Optional[R]
	label  string
	group  int
}

type resolver[R any] struct {
	invoke func([]Optional[R])
	label  string
	group  int
}

func newChannel[Args any, R any](name string, r *Registrar) *Channel[Args, R] {
	subs := make([]subscriber[Args, R], 0)
	resolves := make([]resolver[R], 0)
	return &Channel[Args, R]{
		name:      name,
		registrar: r,
		subs:      &subs,
		resolves:  &resolves,
	}
}

func isVoidReturn[R any]() bool {
	return reflect.TypeFor[R]() == reflect.TypeFor[Void]()
}

// Name returns the channel's immutable name (spec I3).
func (c *Channel[Args, R]) Name() string { return c.name }

// Count returns the number of currently-subscribed callables.
func (c *Channel[Args, R]) Count() int { return len(*c.subs) }

// Labels returns the labels of all current subscribers, in dispatch order.
func (c *Channel[Args, R]) Labels() []string {
	list := *c.subs
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.label
	}
	return out
}

// SetDebug toggles the trace flag.
func (c *Channel[Args, R]) SetDebug(v bool) { c.debug = v }

// Debug reports the current trace flag.
func (c *Channel[Args, R]) Debug() bool { return c.debug }

// TypeName renders this channel's signature for type-mismatch diagnostics.
func (c *Channel[Args, R]) TypeName() string { return signatureName[Args, R]() }

func signatureName[Args any, R any]() string {
	return reflect.TypeFor[R]().String() + "(" + reflect.TypeFor[Args]().String() + ")"
}

// Subscribe registers a subscriber whose return is already Optional[R]
// (conduit.h's ExactReturnTypeTag adapter). group orders the subscriber
// among its peers (spec §4.2.2): ascending by group, insertion order
// within a group. Subscribe is rejected (fatal, spec §7 ReentrancyViolation)
// while a dispatch walk over subs is in progress.
func (c *Channel[Args, R]) Subscribe(fn func(Args) Optional[R], label string, group int) string {
	if c.dispatchDepth > 0 {
		fatalf("reentrancy", "channel %q: subscribe called while dispatching", c.name)
	}
	if label == "" {
		label = uuid.NewString()
	}
	list := *c.subs
	idx := sort.Search(len(list), func(i int) bool { return list[i].group > group })
	list = append(list, subscriber[Args, R]{})
	copy(list[idx+1:], list[idx:])
	list[idx] = subscriber[Args, R]{invoke: fn, label: label, group: group}
	*c.subs = list
	return label
}

// SubscribeValue registers a subscriber that returns R directly
// (conduit.h's ConvertibleReturnTypeTag adapter): the value is wrapped
// into Some(v) automatically.
func (c *Channel[Args, R]) SubscribeValue(fn func(Args) R, label string, group int) string {
	return c.Subscribe(func(a Args) Optional[R] { return Some(fn(a)) }, label, group)
}

// SubscribeVoid registers a subscriber with no return value
// (conduit.h's OptionalNullTypeTag adapter): its slot in the aggregate is
// always an absent Optional[R].
func (c *Channel[Args, R]) SubscribeVoid(fn func(Args), label string, group int) string {
	return c.Subscribe(func(a Args) Optional[R] { fn(a); return None[R]() }, label, group)
}

// Unsubscribe removes the subscriber registered under label. A no-op if
// the label is not present. Removal during an in-progress dispatch is
// staged (spec §4.2.1/I2) and applied once the outermost walk exits.
// An empty label is a fatal misuse (spec §7 EmptyLabelRemoval).
func (c *Channel[Args, R]) Unsubscribe(label string) {
	if label == "" {
		fatalf("empty-label", "channel %q: unsubscribe called with empty label", c.name)
	}
	list := *c.subs
	for i := range list {
		if list[i].label == label {
			c.unsubscribeAt(i)
			return
		}
	}
}

// UnsubscribeAt removes the subscriber at index, subject to the same
// staging rule as Unsubscribe.
func (c *Channel[Args, R]) UnsubscribeAt(index int) {
	if index < 0 || index >= len(*c.subs) {
		return
	}
	c.unsubscribeAt(index)
}

func (c *Channel[Args, R]) unsubscribeAt(index int) {
	if c.dispatchDepth > 0 {
		c.pendingUnsub = append(c.pendingUnsub, index)
		return
	}
	c.removeSubsAt([]int{index})
}

func (c *Channel[Args, R]) removeSubsAt(indexes []int) {
	if len(indexes) == 0 {
		return
	}
	drop := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		drop[i] = true
	}
	list := *c.subs
	out := list[:0:0]
	for i, s := range list {
		if !drop[i] {
			out = append(out, s)
		}
	}
	*c.subs = out
}

// SubscribeResolve registers a resolve callback, run after every
// subscriber has returned, receiving the aggregate in full (spec §3
// Resolve, §4.2 step 6). Resolves are ordered identically to subscribers
// (ascending group, insertion order within a group). Only meaningful on a
// channel whose R is not Void; registering one on a Void channel is a
// fatal misuse since resolves never fire there (spec: "applicable only
// when R ≠ void").
func (c *Channel[Args, R]) SubscribeResolve(fn func([]Optional[R]), label string, group int) string {
	if isVoidReturn[R]() {
		fatalf("resolve-on-void", "channel %q: resolve is not applicable on a void channel", c.name)
	}
	if c.resolveDepth > 0 {
		fatalf("reentrancy", "channel %q: subscribe_resolve called while resolving", c.name)
	}
	if label == "" {
		label = uuid.NewString()
	}
	list := *c.resolves
	idx := sort.Search(len(list), func(i int) bool { return list[i].group > group })
	list = append(list, resolver[R]{})
	copy(list[idx+1:], list[idx:])
	list[idx] = resolver[R]{invoke: fn, label: label, group: group}
	*c.resolves = list
	return label
}

// UnsubscribeResolve removes the resolve callback registered under label.
func (c *Channel[Args, R]) UnsubscribeResolve(label string) {
	if label == "" {
		fatalf("empty-label", "channel %q: unsubscribe_resolve called with empty label", c.name)
	}
	list := *c.resolves
	for i := range list {
		if list[i].label == label {
			c.unsubscribeResolveAt(i)
			return
		}
	}
}

// UnsubscribeResolveAt removes the resolve callback at index.
func (c *Channel[Args, R]) UnsubscribeResolveAt(index int) {
	if index < 0 || index >= len(*c.resolves) {
		return
	}
	c.unsubscribeResolveAt(index)
}

func (c *Channel[Args, R]) unsubscribeResolveAt(index int) {
	if c.resolveDepth > 0 {
		c.pendingUnresolve = append(c.pendingUnresolve, index)
		return
	}
	c.removeResolvesAt([]int{index})
}

func (c *Channel[Args, R]) removeResolvesAt(indexes []int) {
	if len(indexes) == 0 {
		return
	}
	drop := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		drop[i] = true
	}
	list := *c.resolves
	out := list[:0:0]
	for i, r := range list {
		if !drop[i] {
			out = append(out, r)
		}
	}
	*c.resolves = out
}

// Invoke dispatches args through the current subscriber list and, when
// any resolves are registered, through the resolve list with the
// aggregated returns (spec §4.2). source is used only for the debug
// trace line (spec §6 Diagnostics); pass "" when none applies.
func (c *Channel[Args, R]) Invoke(args Args, source string) []Optional[R] {
	if len(*c.subs) == 0 {
		return nil
	}
	if c.debug {
		c.registrar.emitTrace(source, c.name, args)
	}

	observe := len(c.registrar.observers) > 0
	var start time.Time
	if observe {
		start = time.Now()
	}

	var rets []Optional[R]
	c.dispatchDepth++
	func() {
		defer func() {
			c.dispatchDepth--
			if c.dispatchDepth == 0 && len(c.pendingUnsub) > 0 {
				pending := c.pendingUnsub
				c.pendingUnsub = nil
				c.removeSubsAt(pending)
			}
		}()
		list := *c.subs
		c.lastReturns = c.lastReturns[:0]
		for i := range list {
			c.lastReturns = append(c.lastReturns, list[i].invoke(args))
		}
		rets = c.lastReturns
	}()

	if len(*c.resolves) > 0 {
		c.resolveDepth++
		func() {
			defer func() {
				c.resolveDepth--
				if c.resolveDepth == 0 && len(c.pendingUnresolve) > 0 {
					pending := c.pendingUnresolve
					c.pendingUnresolve = nil
					c.removeResolvesAt(pending)
				}
			}()
			list := *c.resolves
			for i := range list {
				list[i].invoke(rets)
			}
		}()
	}

	if observe {
		elapsed := time.Since(start)
		for _, obs := range c.registrar.observers {
			obs(c.name, len(rets), elapsed)
		}
	}

	return rets
}

// aliasInto fuses c's subscriber/resolve lists with the same-named
// channel in target, creating it there first if needed (spec §4.1
// alias; DESIGN.md documents the donor-ownership resolution). Donor
// entries are appended to c's lists, then the donor channel's list
// pointers are repointed at c's (now-combined) lists, so both channels
// observe one shared sequence from then on (spec I4).
func (c *Channel[Args, R]) aliasInto(target *Registrar) {
	donorCI := Lookup[Args, R](target, c.name, "")
	donor := donorCI.channel
	if donor == c {
		return
	}
	*c.subs = append(*c.subs, *donor.subs...)
	*c.resolves = append(*c.resolves, *donor.resolves...)
	donor.subs = c.subs
	donor.resolves = c.resolves
}
