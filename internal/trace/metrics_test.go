package trace

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/conduitbus/conduit/pkg/conduit"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsSinkObservesInvokes(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewMetricsSink(reg)

	r := conduit.NewRegistrar("demo", conduit.WithInvokeObserver(sink.AsInvokeObserver()))
	ci := conduit.Lookup[int, conduit.Void](r, "ticks", "")
	ci.SubscribeVoid(func(int) {}, "", 0)

	ci.Invoke(1)
	ci.Invoke(2)

	if got := counterValue(t, sink.invokesTotal, "ticks"); got != 2 {
		t.Errorf("invokes_total{channel=ticks} = %v, want 2", got)
	}
}

func TestMetricsSinkOptupleFires(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewMetricsSink(reg)

	r := conduit.NewRegistrar("demo")
	a := conduit.Lookup[int, conduit.Void](r, "a", "")
	b := conduit.Lookup[int, conduit.Void](r, "b", "")
	o := conduit.Merge2(func(int, int) {}, nil, a, b)
	sink.Track(o)

	a.Invoke(1)
	b.Invoke(2)

	m := &dto.Metric{}
	if err := sink.optupleFires.Write(m); err != nil {
		t.Fatal(err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("optuple_fires_total = %v, want 1", got)
	}
}
