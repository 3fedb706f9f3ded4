package conduit

// maxOptupleArity mirrors spec §7's OptupleArity limit: more than this many
// joined channels is a fatal construction error.
const maxOptupleArity = 64

// OptupleInput is one joined channel's contribution to an Optuple: how many
// value slots it occupies and how to bind/unbind the generated subscriber
// that feeds them (spec §4.4). Join builds one from a typed
// *ChannelInterface; the boxed core never needs to know Args/R itself,
// which is how a single Optuple joins channels of unrelated signatures —
// the heterogeneous storage conduit.h's OptupleImpl builds with
// placement-new and a compile-time index, here built with a slice of `any`
// and a runtime slot range per input.
type OptupleInput struct {
	paramCount int
	bind       func(deliver func(values []any)) func()
}

// Join wraps a channel handle as one Optuple input. Each invocation of the
// channel contributes its argument, whole, as one slot (spec's "parameter
// slots" are per joined channel's declared parameters; Join treats a
// channel's Args as a single logical value — callers needing a
// multi-parameter channel's fields as separate optuple slots can flatten
// them into their own callback before re-publishing, or drive NewOptuple
// directly with a custom OptupleInput).
func Join[Args any, R any](ci *ChannelInterface[Args, R]) OptupleInput {
	return OptupleInput{
		paramCount: 1,
		bind: func(deliver func(values []any)) func() {
			const label = "optuple"
			ci.channel.SubscribeVoid(func(a Args) {
				deliver([]any{a})
			}, label, 0)
			return func() { ci.Unsubscribe(label) }
		},
	}
}

// Optuple is the N-way join primitive of spec §4.4: it fires a user
// callback exactly once per cycle, at the moment every joined channel has
// delivered at least one value since the last reset, with each channel's
// most recent value.
type Optuple struct {
	data       []any
	starts     []int
	state      uint64
	targetMask uint64
	callback   func(values []any)
	response   func()
	cleanups   []func()
	closed     bool
	onFire     []func()
}

// Observe registers fn to run each time the optuple fires, after callback.
// Used by internal/trace's prometheus sink to count fires without this
// package importing prometheus.
func (o *Optuple) Observe(fn func()) { o.onFire = append(o.onFire, fn) }

// NewOptuple constructs and wires an Optuple over inputs. callback receives
// the concatenated values in the order inputs were supplied. response, if
// non-nil, is invoked after callback on every fire, before the optuple
// resets for its next cycle. Subscriptions are installed immediately; Close
// removes them (spec §4.4's chosen unsubscribe-on-destroy policy, see
// DESIGN.md).
func NewOptuple(callback func(values []any), response func(), inputs ...OptupleInput) *Optuple {
	if len(inputs) == 0 {
		fatalf("optuple-arity", "optuple: at least one channel is required")
	}
	if len(inputs) > maxOptupleArity {
		fatalf("optuple-arity", "optuple: %d channels exceeds the maximum of %d", len(inputs), maxOptupleArity)
	}

	o := &Optuple{callback: callback, response: response}
	total := 0
	o.starts = make([]int, len(inputs))
	for i, in := range inputs {
		o.starts[i] = total
		total += in.paramCount
	}
	o.data = make([]any, total)
	if len(inputs) == maxOptupleArity {
		o.targetMask = ^uint64(0)
	} else {
		o.targetMask = uint64(1)<<uint(len(inputs)) - 1
	}

	o.cleanups = make([]func(), len(inputs))
	for i, in := range inputs {
		index := i
		o.cleanups[i] = in.bind(func(values []any) {
			o.deliver(index, values)
		})
	}
	return o
}

// deliver implements the generated subscriber's three steps (spec §4.4):
// overwrite this input's slots, set its completion bit, and fire + reset
// once every bit is set.
func (o *Optuple) deliver(index int, values []any) {
	start := o.starts[index]
	for j, v := range values {
		o.data[start+j] = v
	}
	o.state |= 1 << uint(index)
	if o.state != o.targetMask {
		return
	}
	out := make([]any, len(o.data))
	copy(out, o.data)
	o.callback(out)
	if o.response != nil {
		o.response()
	}
	o.reset()
	for _, fn := range o.onFire {
		fn()
	}
}

func (o *Optuple) reset() {
	for i := range o.data {
		o.data[i] = nil
	}
	o.state = 0
}

// Reset discards partial progress: every constructed slot is cleared and
// the completion bitmask returns to 0, without firing the callback
// (spec §4.4 reset, P8).
func (o *Optuple) Reset() { o.reset() }

// Close unsubscribes the generated subscriber from every joined channel.
// Safe to call more than once.
func (o *Optuple) Close() {
	if o.closed {
		return
	}
	o.closed = true
	for _, c := range o.cleanups {
		c()
	}
}

// Merge2 through Merge6 are typed conveniences over NewOptuple for the
// common fixed-arity case (spec's native `merge(callback, [response?],
// channels…)` surface), sparing callers the []any unboxing NewOptuple
// otherwise requires. response may be nil, mirroring the original's
// response-less merge overload (conduit.h:757-773).

func Merge2[A1, R1, A2, R2 any](
	callback func(A1, A2),
	response func(),
	c1 *ChannelInterface[A1, R1],
	c2 *ChannelInterface[A2, R2],
) *Optuple {
	return NewOptuple(func(v []any) {
		callback(v[0].(A1), v[1].(A2))
	}, response, Join(c1), Join(c2))
}

func Merge3[A1, R1, A2, R2, A3, R3 any](
	callback func(A1, A2, A3),
	response func(),
	c1 *ChannelInterface[A1, R1],
	c2 *ChannelInterface[A2, R2],
	c3 *ChannelInterface[A3, R3],
) *Optuple {
	return NewOptuple(func(v []any) {
		callback(v[0].(A1), v[1].(A2), v[2].(A3))
	}, response, Join(c1), Join(c2), Join(c3))
}

func Merge4[A1, R1, A2, R2, A3, R3, A4, R4 any](
	callback func(A1, A2, A3, A4),
	response func(),
	c1 *ChannelInterface[A1, R1],
	c2 *ChannelInterface[A2, R2],
	c3 *ChannelInterface[A3, R3],
	c4 *ChannelInterface[A4, R4],
) *Optuple {
	return NewOptuple(func(v []any) {
		callback(v[0].(A1), v[1].(A2), v[2].(A3), v[3].(A4))
	}, response, Join(c1), Join(c2), Join(c3), Join(c4))
}

func Merge5[A1, R1, A2, R2, A3, R3, A4, R4, A5, R5 any](
	callback func(A1, A2, A3, A4, A5),
	response func(),
	c1 *ChannelInterface[A1, R1],
	c2 *ChannelInterface[A2, R2],
	c3 *ChannelInterface[A3, R3],
	c4 *ChannelInterface[A4, R4],
	c5 *ChannelInterface[A5, R5],
) *Optuple {
	return NewOptuple(func(v []any) {
		callback(v[0].(A1), v[1].(A2), v[2].(A3), v[3].(A4), v[4].(A5))
	}, response, Join(c1), Join(c2), Join(c3), Join(c4), Join(c5))
}

func Merge6[A1, R1, A2, R2, A3, R3, A4, R4, A5, R5, A6, R6 any](
	callback func(A1, A2, A3, A4, A5, A6),
	response func(),
	c1 *ChannelInterface[A1, R1],
	c2 *ChannelInterface[A2, R2],
	c3 *ChannelInterface[A3, R3],
	c4 *ChannelInterface[A4, R4],
	c5 *ChannelInterface[A5, R5],
	c6 *ChannelInterface[A6, R6],
) *Optuple {
	return NewOptuple(func(v []any) {
		callback(v[0].(A1), v[1].(A2), v[2].(A3), v[3].(A4), v[4].(A5), v[5].(A6))
	}, response, Join(c1), Join(c2), Join(c3), Join(c4), Join(c5), Join(c6))
}
