package conduit

import "sync"

// ReadyAction is one "on Registrar ready" action (spec §4.6): a callable
// taking the Registrar, paired with a label for diagnostics. Actions
// typically just call Lookup, which is idempotent (spec R1), so running
// the same action twice or running a set of them in an unspecified order
// across package-init boundaries is harmless.
type ReadyAction struct {
	Label string
	Run   func(r *Registrar)
}

// readyActions is the process-wide registry static init glue populates
// before main runs (conduit's analogue of translation-unit-order-independent
// static registration). Guarded by a mutex since package init can run
// concurrently across goroutines in rare embedder setups, though the
// common case is single-goroutine startup.
var (
	readyActionsMu sync.Mutex
	readyActions   []ReadyAction
)

// RegisterReadyAction adds an action to the global registry (spec §4.6).
// Intended to be called from package-level init() functions or equivalent
// startup code, before RunReadyActions is invoked.
func RegisterReadyAction(label string, fn func(r *Registrar)) {
	readyActionsMu.Lock()
	defer readyActionsMu.Unlock()
	readyActions = append(readyActions, ReadyAction{Label: label, Run: fn})
}

// RunReadyActions runs every registered action against r, in registration
// order (spec §4.6: "all registered actions run in registration order
// against the same Registrar"). Safe to call more than once; actions must
// be idempotent with respect to channel creation, same as the original.
func RunReadyActions(r *Registrar) {
	readyActionsMu.Lock()
	actions := make([]ReadyAction, len(readyActions))
	copy(actions, readyActions)
	readyActionsMu.Unlock()

	for _, a := range actions {
		a.Run(r)
	}
}
