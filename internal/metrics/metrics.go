package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	FrequencyHz = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alloctone_frequency_hz",
		Help: "Most recent frequency accepted by the oscillator",
	})
	MeasurementValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alloctone_measurement_value",
		Help: "Most recent raw measurement read by the sampler",
	})
)

// Counters
var (
	SamplerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alloctone_sampler_ticks_total",
		Help: "Total frequency-update ticks executed",
	})
	RejectedFrequenciesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alloctone_rejected_frequencies_total",
		Help: "Ticks whose mapped frequency the oscillator rejected",
	})
	BuffersWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alloctone_buffers_written_total",
		Help: "Audio buffers written to the sink",
	})
	BuffersPrimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alloctone_buffers_primed_total",
		Help: "Zeroed buffers fed to the sink during startup priming",
	})
	BytesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alloctone_bytes_written_total",
		Help: "Audio bytes written to the sink",
	})
	SinkFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alloctone_sink_failures_total",
		Help: "Sink acquisition and write failures",
	})
)
