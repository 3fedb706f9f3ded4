// Package trace adapts the conduit core's observability hooks (invoke
// observers, optuple fire callbacks, debug trace lines) onto two sinks the
// core itself never imports: Prometheus metrics and a live websocket tail.
package trace

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/conduitbus/conduit/pkg/conduit"
)

// MetricsSink counts channel invocations and optuple fires and times
// dispatch, one Prometheus metric family per concern rather than per
// channel (channel names are dynamic and unbounded, so they become a label,
// not a distinct metric).
type MetricsSink struct {
	invokesTotal   *prometheus.CounterVec
	subscriberFanout *prometheus.HistogramVec
	dispatchSeconds *prometheus.HistogramVec
	optupleFires   prometheus.Counter
}

// NewMetricsSink registers its collectors against reg (prometheus.NewRegistry()
// for an isolated registry, or prometheus.DefaultRegisterer for the global
// one scraped by most /metrics handlers).
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	factory := promauto.With(reg)
	return &MetricsSink{
		invokesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_channel_invokes_total",
			Help: "Total number of channel invocations, by channel name.",
		}, []string{"channel"}),
		subscriberFanout: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conduit_channel_subscriber_count",
			Help:    "Number of subscribers invoked per dispatch, by channel name.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"channel"}),
		dispatchSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conduit_channel_dispatch_seconds",
			Help:    "Wall time spent dispatching a channel invocation, by channel name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),
		optupleFires: factory.NewCounter(prometheus.CounterOpts{
			Name: "conduit_optuple_fires_total",
			Help: "Total number of optuple joins that completed and fired.",
		}),
	}
}

// Observe is a conduit.InvokeObserver: pass it to conduit.WithInvokeObserver
// when constructing a Registrar to have every invocation on every channel
// recorded.
func (s *MetricsSink) Observe(channelName string, subscriberCount int, elapsed time.Duration) {
	s.invokesTotal.WithLabelValues(channelName).Inc()
	s.subscriberFanout.WithLabelValues(channelName).Observe(float64(subscriberCount))
	s.dispatchSeconds.WithLabelValues(channelName).Observe(elapsed.Seconds())
}

// AsInvokeObserver adapts Observe to conduit's InvokeObserver function type,
// for direct use with conduit.WithInvokeObserver.
func (s *MetricsSink) AsInvokeObserver() conduit.InvokeObserver { return s.Observe }

// ObserveOptupleFire is registered against an *conduit.Optuple via its
// Observe method to count completed joins.
func (s *MetricsSink) ObserveOptupleFire() { s.optupleFires.Inc() }

// Track wires the sink onto an already-constructed optuple; a thin
// convenience over o.Observe(s.ObserveOptupleFire) so callers don't need to
// remember the method name.
func (s *MetricsSink) Track(o *conduit.Optuple) { o.Observe(s.ObserveOptupleFire) }
