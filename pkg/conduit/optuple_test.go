package conduit

import "testing"

func TestOptuple_ArityLimitIsFatal(t *testing.T) {
	r := NewRegistrar("sim")
	inputs := make([]OptupleInput, 65)
	for i := range inputs {
		ci := Lookup[Void, Void](r, channelNameFor(i), "test")
		inputs[i] = Join(ci)
	}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic for 65 joined channels, got none")
		}
		if fe, ok := rec.(*FatalError); !ok || fe.Kind != "optuple-arity" {
			t.Fatalf("panic = %#v, want *FatalError{Kind: optuple-arity}", rec)
		}
	}()
	NewOptuple(func([]any) {}, nil, inputs...)
}

func TestOptuple_WithResponse(t *testing.T) {
	r := NewRegistrar("sim")
	a := Lookup[int, Void](r, "resp-a", "test")

	var order []string
	NewOptuple(func(v []any) {
		order = append(order, "callback")
	}, func() {
		order = append(order, "response")
	}, Join(a))

	a.Invoke(1)
	if len(order) != 2 || order[0] != "callback" || order[1] != "response" {
		t.Fatalf("order = %v, want [callback response]", order)
	}
}

func TestOptuple_CloseRemovesSubscription(t *testing.T) {
	r := NewRegistrar("sim")
	a := Lookup[int, Void](r, "close-a", "test")
	b := Lookup[string, Void](r, "close-b", "test")

	calls := 0
	o := Merge2(func(int, string) { calls++ }, nil, a, b)
	o.Close()

	a.Invoke(1)
	b.Invoke("x")
	if calls != 0 {
		t.Fatalf("calls = %d after Close, want 0", calls)
	}
	if a.Count() != 0 || b.Count() != 0 {
		t.Fatalf("a.Count()=%d b.Count()=%d after Close, want 0, 0", a.Count(), b.Count())
	}
}

func channelNameFor(i int) string {
	return "arity-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}
