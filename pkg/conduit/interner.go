package conduit

import "sync"

// Interner provides optional string->id mapping for cheap source
// attribution (spec §2's "Name interner", conduit.h's detail::Names under
// SOURCE_STRING_INTERNING). The default Registrar uses the plain-string
// passthrough variant (the original's #else branch): interning only pays
// off when source labels repeat across many invocations and the caller
// opts in by constructing a Registrar with WithInterning.
type Interner interface {
	Intern(s string) uint64
	Lookup(id uint64) string
}

// passthroughInterner is the zero-cost default: Intern always returns 0 and
// Lookup always returns "". Registrar.internLabel recognises this type and
// keeps the label string unchanged, so ChannelInterface carries a single
// label field regardless of which Interner a Registrar was built with.
type passthroughInterner struct{}

func (passthroughInterner) Intern(s string) uint64 { return 0 }
func (passthroughInterner) Lookup(id uint64) string { return "" }

// tableInterner is the opt-in variant mirroring SOURCE_STRING_INTERNING: a
// process-wide table of interned strings, id 0 reserved for "".
type tableInterner struct {
	mu      sync.Mutex
	byID    []string
	idByStr map[string]uint64
}

// NewTableInterner returns an Interner that assigns a stable uint64 to each
// distinct string the first time it is seen, matching
// detail::Names::get_id_for_string's linear-scan-then-append behavior.
func NewTableInterner() Interner {
	return &tableInterner{
		byID:    []string{""},
		idByStr: map[string]uint64{"": 0},
	}
}

func (t *tableInterner) Intern(s string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.idByStr[s]; ok {
		return id
	}
	id := uint64(len(t.byID))
	t.byID = append(t.byID, s)
	t.idByStr[s] = id
	return id
}

func (t *tableInterner) Lookup(id uint64) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.byID) {
		return ""
	}
	return t.byID[id]
}
