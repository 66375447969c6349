package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dstctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dstctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	streamBlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dstctl",
			Subsystem: "stream",
			Name:      "blocks_total",
			Help:      "Physical blocks read.",
		},
	)
	streamBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dstctl",
			Subsystem: "stream",
			Name:      "bytes_read_total",
			Help:      "Bytes read from tape streams.",
		},
	)
	streamWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dstctl",
			Subsystem: "stream",
			Name:      "warnings_total",
			Help:      "Recoverable stream anomalies by kind.",
		},
		[]string{"kind"},
	)
	banksDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dstctl",
			Subsystem: "decode",
			Name:      "banks_total",
			Help:      "Banks decoded by bank name and outcome.",
		},
		[]string{"bank", "kind", "success"},
	)
	banksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dstctl",
			Subsystem: "decode",
			Name:      "banks_skipped_total",
			Help:      "Banks without a registered decoder.",
		},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dstctl",
			Subsystem: "decode",
			Name:      "bank_duration_seconds",
			Help:      "Per-bank decode duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"bank"},
	)
	eventsEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dstctl",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Assembled events written to sinks.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			streamBlocks, streamBytes, streamWarnings,
			banksDecoded, banksSkipped, decodeDuration,
			eventsEmitted,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordStream adds block and byte deltas observed by a demuxer.
func RecordStream(blocks, bytes int64) {
	RegisterMetrics()
	if blocks > 0 {
		streamBlocks.Add(float64(blocks))
	}
	if bytes > 0 {
		streamBytes.Add(float64(bytes))
	}
}

func RecordStreamWarning(kind string) {
	RegisterMetrics()
	streamWarnings.WithLabelValues(kind).Inc()
}

func RecordBankDecode(bank, kind string, duration time.Duration, success bool) {
	RegisterMetrics()
	banksDecoded.WithLabelValues(bank, kind, strconv.FormatBool(success)).Inc()
	decodeDuration.WithLabelValues(bank).Observe(duration.Seconds())
}

func RecordBankSkipped() {
	RegisterMetrics()
	banksSkipped.Inc()
}

func RecordEvent() {
	RegisterMetrics()
	eventsEmitted.Inc()
}
