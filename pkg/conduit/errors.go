package conduit

import "fmt"

// FatalError marks a programming error per spec §7: TypeMismatch,
// ReentrancyViolation, UnknownChannel (alias), EmptyLabelRemoval, and
// OptupleArity are all fatal-at-the-point-of-misuse, mirroring the
// original's BOTCH(cond, msg, ...) macro, which aborts the process with a
// diagnostic. Go has no "abort with message" primitive short of panic, so
// FatalError is always delivered via panic(*FatalError), never returned.
type FatalError struct {
	Kind string // e.g. "type-mismatch", "reentrancy", "unknown-channel"
	Msg  string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("conduit: %s: %s", e.Kind, e.Msg)
}

func fatalf(kind, format string, args ...any) {
	panic(&FatalError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// ConversionFailure is the soft error of spec §7: a dynamic-invoke argument
// could not be converted to the channel's parameter type. Unlike FatalError
// this is returned to the scripting caller, never panicked.
type ConversionFailure struct {
	ChannelName string
	ArgIndex    int
	Reason      string
}

func (e *ConversionFailure) Error() string {
	return fmt.Sprintf("conduit: %s: argument %d: %s", e.ChannelName, e.ArgIndex, e.Reason)
}

// UnknownChannelError is the soft error returned by the dynamic invoke path
// when the named channel does not exist (spec §7: "soft for dynamic invoke").
type UnknownChannelError struct {
	Name string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("conduit: unknown channel %q", e.Name)
}
