package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter adapts a Counters block to prometheus.Collector, implementing
// Collect itself (rather than keeping live prometheus metric objects) so the
// RT side never touches the prometheus client package.
type Exporter struct {
	counters *Counters

	blocksProcessed *prometheus.Desc
	xruns           *prometheus.Desc
	underruns       *prometheus.Desc
	overruns        *prometheus.Desc
	lastCallbackNs  *prometheus.Desc
	maxCallbackNs   *prometheus.Desc
	sampleRate      *prometheus.Desc
	bufferFrames    *prometheus.Desc
	peakLevel       *prometheus.Desc
	rmsLevel        *prometheus.Desc
}

// NewExporter wraps counters for registration with a prometheus.Registry.
func NewExporter(counters *Counters) *Exporter {
	return &Exporter{
		counters: counters,
		blocksProcessed: prometheus.NewDesc(
			"nomadaudio_blocks_processed_total", "Audio callback invocations processed.", nil, nil),
		xruns: prometheus.NewDesc(
			"nomadaudio_xruns_total", "Callbacks that exceeded their sample-rate budget.", nil, nil),
		underruns: prometheus.NewDesc(
			"nomadaudio_underruns_total", "Device-reported buffer underruns.", nil, nil),
		overruns: prometheus.NewDesc(
			"nomadaudio_overruns_total", "Device-reported buffer overruns.", nil, nil),
		lastCallbackNs: prometheus.NewDesc(
			"nomadaudio_last_callback_nanoseconds", "Duration of the most recent callback.", nil, nil),
		maxCallbackNs: prometheus.NewDesc(
			"nomadaudio_max_callback_nanoseconds", "Longest callback duration observed.", nil, nil),
		sampleRate: prometheus.NewDesc(
			"nomadaudio_sample_rate_hz", "Current stream sample rate.", nil, nil),
		bufferFrames: prometheus.NewDesc(
			"nomadaudio_buffer_frames", "Current stream buffer size in frames.", nil, nil),
		peakLevel: prometheus.NewDesc(
			"nomadaudio_peak_level", "Peak level of the most recent block.", []string{"channel"}, nil),
		rmsLevel: prometheus.NewDesc(
			"nomadaudio_rms_level", "RMS level of the most recent block.", []string{"channel"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.blocksProcessed
	ch <- e.xruns
	ch <- e.underruns
	ch <- e.overruns
	ch <- e.lastCallbackNs
	ch <- e.maxCallbackNs
	ch <- e.sampleRate
	ch <- e.bufferFrames
	ch <- e.peakLevel
	ch <- e.rmsLevel
}

// Collect implements prometheus.Collector. Called from Prometheus's own
// scrape goroutine, never from the RT thread.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.counters.Snapshot()

	ch <- prometheus.MustNewConstMetric(e.blocksProcessed, prometheus.CounterValue, float64(snap.BlocksProcessed))
	ch <- prometheus.MustNewConstMetric(e.xruns, prometheus.CounterValue, float64(snap.XRuns))
	ch <- prometheus.MustNewConstMetric(e.underruns, prometheus.CounterValue, float64(snap.Underruns))
	ch <- prometheus.MustNewConstMetric(e.overruns, prometheus.CounterValue, float64(snap.Overruns))
	ch <- prometheus.MustNewConstMetric(e.lastCallbackNs, prometheus.GaugeValue, float64(snap.LastCallbackNs))
	ch <- prometheus.MustNewConstMetric(e.maxCallbackNs, prometheus.GaugeValue, float64(snap.MaxCallbackNs))
	ch <- prometheus.MustNewConstMetric(e.sampleRate, prometheus.GaugeValue, float64(snap.SampleRate))
	ch <- prometheus.MustNewConstMetric(e.bufferFrames, prometheus.GaugeValue, float64(snap.BufferFrames))
	ch <- prometheus.MustNewConstMetric(e.peakLevel, prometheus.GaugeValue, snap.PeakL, "left")
	ch <- prometheus.MustNewConstMetric(e.peakLevel, prometheus.GaugeValue, snap.PeakR, "right")
	ch <- prometheus.MustNewConstMetric(e.rmsLevel, prometheus.GaugeValue, snap.RMSL, "left")
	ch <- prometheus.MustNewConstMetric(e.rmsLevel, prometheus.GaugeValue, snap.RMSR, "right")
}
