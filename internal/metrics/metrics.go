package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ActiveStreams = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "noisestream_active_streams",
		Help: "Number of streams currently producing audio, by sink",
	}, []string{"sink"})
)

// Counters
var (
	StreamsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noisestream_streams_started_total",
		Help: "Total streams started, by sink and subtype",
	}, []string{"sink", "subtype"})
	StreamsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noisestream_streams_rejected_total",
		Help: "Streams rejected due to the concurrent stream limit",
	})
	StreamsStoppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noisestream_streams_stopped_total",
		Help: "Total streams stopped, by reason",
	}, []string{"reason"})
	ChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noisestream_chunks_total",
		Help: "Total PCM chunks written, by sink",
	}, []string{"sink"})
	BytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "noisestream_bytes_total",
		Help: "Total PCM bytes written, by sink",
	}, []string{"sink"})
	ParameterErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noisestream_parameter_errors_total",
		Help: "Malformed parameter payloads replaced by an empty set",
	})
)

// Histograms
var (
	ChunkLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "noisestream_chunk_duration_ms",
		Help:    "Time to synthesize and write one chunk in milliseconds, by sink",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	}, []string{"sink"})
)

// SinkObserver records per-chunk metrics for one sink label. It satisfies
// stream.Observer.
type SinkObserver struct {
	chunks  prometheus.Counter
	bytes   prometheus.Counter
	latency prometheus.Observer
}

// ForSink returns an observer bound to sink.
func ForSink(sink string) *SinkObserver {
	return &SinkObserver{
		chunks:  ChunksTotal.WithLabelValues(sink),
		bytes:   BytesTotal.WithLabelValues(sink),
		latency: ChunkLatency.WithLabelValues(sink),
	}
}

func (o *SinkObserver) ChunkWritten(n int, elapsed time.Duration) {
	o.chunks.Inc()
	o.bytes.Add(float64(n))
	o.latency.Observe(float64(elapsed.Microseconds()) / 1000)
}
