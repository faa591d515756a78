package metrics

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
	"github.com/prometheus/client_golang/prometheus"
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// IngestHealth instruments the ingest path: frame and failure
// counters, plus frame inter-arrival percentiles from a T-Digest.
// Gaps in the inter-arrival percentiles are the operator's first
// signal of an upstream outage.
type IngestHealth struct {
	framesTotal     prometheus.Counter
	decodeFailures  prometheus.Counter
	malformedTotal  prometheus.Counter
	unknownProducts prometheus.Counter
	reconnects      prometheus.Counter

	interArrivalP50 prometheus.Gauge
	interArrivalP95 prometheus.Gauge
	interArrivalP99 prometheus.Gauge

	mu        sync.Mutex
	digest    *tdigest.TDigest
	lastFrame time.Time
	clock     Clock
}

// NewIngestHealth registers the ingest health metrics on reg.
func NewIngestHealth(reg prometheus.Registerer) *IngestHealth {
	return newIngestHealthWithClock(reg, realClock{})
}

func newIngestHealthWithClock(reg prometheus.Registerer, clock Clock) *IngestHealth {
	h := &IngestHealth{
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_ingest_frames_total",
			Help: "Frames received and dispatched",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_ingest_decode_failures_total",
			Help: "Messages that failed protobuf decode and were skipped",
		}),
		malformedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_ingest_malformed_entries_total",
			Help: "Entries skipped for missing required fields",
		}),
		unknownProducts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_ingest_unknown_product_entries_total",
			Help: "Entries carrying an unrecognized calculation product",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pq_ingest_reconnects_total",
			Help: "Subscription reconnect attempts",
		}),
		interArrivalP50: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pq_ingest_interarrival_p50_seconds",
			Help: "Frame inter-arrival 50th percentile (median)",
		}),
		interArrivalP95: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pq_ingest_interarrival_p95_seconds",
			Help: "Frame inter-arrival 95th percentile",
		}),
		interArrivalP99: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pq_ingest_interarrival_p99_seconds",
			Help: "Frame inter-arrival 99th percentile",
		}),
		digest: tdigest.NewWithCompression(100),
		clock:  clock,
	}

	reg.MustRegister(
		h.framesTotal,
		h.decodeFailures,
		h.malformedTotal,
		h.unknownProducts,
		h.reconnects,
		h.interArrivalP50,
		h.interArrivalP95,
		h.interArrivalP99,
	)
	return h
}

// FrameReceived records one dispatched frame and folds its
// inter-arrival gap into the percentile digest.
func (h *IngestHealth) FrameReceived() {
	h.framesTotal.Inc()

	now := h.clock.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.lastFrame.IsZero() {
		h.digest.Add(now.Sub(h.lastFrame).Seconds(), 1)
		h.interArrivalP50.Set(h.digest.Quantile(0.50))
		h.interArrivalP95.Set(h.digest.Quantile(0.95))
		h.interArrivalP99.Set(h.digest.Quantile(0.99))
	}
	h.lastFrame = now
}

// DecodeFailed records one undecodable message.
func (h *IngestHealth) DecodeFailed() { h.decodeFailures.Inc() }

// MalformedEntry records one entry skipped during validation.
func (h *IngestHealth) MalformedEntry() { h.malformedTotal.Inc() }

// UnknownProduct records one entry with an unrecognized product.
func (h *IngestHealth) UnknownProduct() { h.unknownProducts.Inc() }

// Reconnected records one subscription reconnect attempt.
func (h *IngestHealth) Reconnected() { h.reconnects.Inc() }
