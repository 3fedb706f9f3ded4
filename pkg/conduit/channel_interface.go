package conduit

// ChannelInterface is a trivially-copyable handle binding a source label
// to a Channel (spec §3/§4.3). It carries no ownership: the underlying
// Channel is owned by the Registrar that created it.
type ChannelInterface[Args any, R any] struct {
	sourceLabel string
	channel     *Channel[Args, R]
}

// Invoke publishes args through the bound channel, using this handle's
// source label for the debug trace line (spec §4.3).
func (ci *ChannelInterface[Args, R]) Invoke(args Args) []Optional[R] {
	return ci.channel.Invoke(args, ci.sourceLabel)
}

// Subscribe registers fn on the bound channel under label and group
// (spec §4.3 subscribe, pass-through to Channel.Subscribe).
func (ci *ChannelInterface[Args, R]) Subscribe(fn func(Args) Optional[R], label string, group int) string {
	return ci.channel.Subscribe(fn, label, group)
}

// SubscribeValue is the pass-through to Channel.SubscribeValue.
func (ci *ChannelInterface[Args, R]) SubscribeValue(fn func(Args) R, label string, group int) string {
	return ci.channel.SubscribeValue(fn, label, group)
}

// SubscribeVoid is the pass-through to Channel.SubscribeVoid.
func (ci *ChannelInterface[Args, R]) SubscribeVoid(fn func(Args), label string, group int) string {
	return ci.channel.SubscribeVoid(fn, label, group)
}

// Unsubscribe is the pass-through to Channel.Unsubscribe.
func (ci *ChannelInterface[Args, R]) Unsubscribe(label string) {
	ci.channel.Unsubscribe(label)
}

// UnsubscribeIndex removes the subscriber at the given 0-indexed position
// (conduit.h's Channel::erase, carried forward per DESIGN.md/SPEC_FULL.md's
// supplemented erase-by-index feature). The Lua bridge's erase(index)
// channel method is 1-indexed and subtracts one before removing through the
// erased Handle.UnsubscribeAtDyn, which applies the same Channel.UnsubscribeAt.
func (ci *ChannelInterface[Args, R]) UnsubscribeIndex(index int) {
	ci.channel.UnsubscribeAt(index)
}

// SetSourceLabel replaces the handle's source label (spec §4.3
// set_source_label), re-interning through the owning registrar.
func (ci *ChannelInterface[Args, R]) SetSourceLabel(label string) *ChannelInterface[Args, R] {
	if ci.channel.registrar != nil {
		label = ci.channel.registrar.internLabel(label)
	}
	ci.sourceLabel = label
	return ci
}

// Name, Count, Labels, and Debug are pass-throughs (spec §4.3).
func (ci *ChannelInterface[Args, R]) Name() string     { return ci.channel.Name() }
func (ci *ChannelInterface[Args, R]) Count() int       { return ci.channel.Count() }
func (ci *ChannelInterface[Args, R]) Labels() []string { return ci.channel.Labels() }
func (ci *ChannelInterface[Args, R]) Debug() bool      { return ci.channel.Debug() }
func (ci *ChannelInterface[Args, R]) SetDebug(v bool)  { ci.channel.SetDebug(v) }

// Equal compares (source label, channel pointer) componentwise (spec
// §4.3 equality).
func (ci *ChannelInterface[Args, R]) Equal(other *ChannelInterface[Args, R]) bool {
	if other == nil {
		return false
	}
	return ci.sourceLabel == other.sourceLabel && ci.channel == other.channel
}
