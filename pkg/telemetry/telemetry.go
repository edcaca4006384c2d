// Package telemetry holds the atomic counters the RT callback updates every
// block and the UI thread reads for monitoring. The RT side only ever
// touches sync/atomic here; exporting these to Prometheus (prometheus.go)
// happens entirely off the RT thread. Counters are grounded on
// NomadAudio/include/AudioTelemetry.h, including the underrun/overrun split
// the original tracks separately from generic x-runs.
package telemetry

import (
	"math"
	"sync/atomic"
)

// Counters is the RT-safe telemetry block. The zero value is ready to use.
type Counters struct {
	blocksProcessed atomic.Uint64
	xruns           atomic.Uint64
	underruns       atomic.Uint64
	overruns        atomic.Uint64
	lastCallbackNs  atomic.Uint64
	maxCallbackNs   atomic.Uint64
	sampleRate      atomic.Int64
	bufferFrames    atomic.Int64
	peakL           atomic.Uint64 // math.Float64bits
	peakR           atomic.Uint64
	rmsL            atomic.Uint64
	rmsR            atomic.Uint64
}

// SetFormat records the current stream sample rate and buffer size. Called
// off-RT whenever the device (re)opens with new parameters.
func (c *Counters) SetFormat(sampleRate, bufferFrames int) {
	c.sampleRate.Store(int64(sampleRate))
	c.bufferFrames.Store(int64(bufferFrames))
}

// RecordBlock increments blocksProcessed, updates last/max callback
// nanoseconds, and increments xruns if elapsedNs exceeded budgetNs. Called
// once per processBlock invocation, RT-safe (atomics only).
func (c *Counters) RecordBlock(elapsedNs, budgetNs uint64) {
	c.blocksProcessed.Add(1)
	c.lastCallbackNs.Store(elapsedNs)
	for {
		cur := c.maxCallbackNs.Load()
		if elapsedNs <= cur {
			break
		}
		if c.maxCallbackNs.CompareAndSwap(cur, elapsedNs) {
			break
		}
	}
	if elapsedNs > budgetNs {
		c.xruns.Add(1)
	}
}

// RecordUnderrun and RecordOverrun track the driver-reported split that
// AudioTelemetry.h keeps distinct from the generic x-run counter.
func (c *Counters) RecordUnderrun() { c.underruns.Add(1) }
func (c *Counters) RecordOverrun()  { c.overruns.Add(1) }

// UpdatePeakRMS stores the block's peak and RMS levels for each channel.
// Called once per block from the master bus stage (step 9 of processBlock).
func (c *Counters) UpdatePeakRMS(peakL, peakR, rmsL, rmsR float64) {
	c.peakL.Store(math.Float64bits(peakL))
	c.peakR.Store(math.Float64bits(peakR))
	c.rmsL.Store(math.Float64bits(rmsL))
	c.rmsR.Store(math.Float64bits(rmsR))
}

// Snapshot is a point-in-time, UI-thread-friendly copy of the counters.
type Snapshot struct {
	BlocksProcessed uint64
	XRuns           uint64
	Underruns       uint64
	Overruns        uint64
	LastCallbackNs  uint64
	MaxCallbackNs   uint64
	SampleRate      int
	BufferFrames    int
	PeakL, PeakR    float64
	RMSL, RMSR      float64
}

// Snapshot reads every counter with relaxed ordering (sync/atomic loads),
// safe to call from the UI thread at any rate.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		BlocksProcessed: c.blocksProcessed.Load(),
		XRuns:           c.xruns.Load(),
		Underruns:       c.underruns.Load(),
		Overruns:        c.overruns.Load(),
		LastCallbackNs:  c.lastCallbackNs.Load(),
		MaxCallbackNs:   c.maxCallbackNs.Load(),
		SampleRate:      int(c.sampleRate.Load()),
		BufferFrames:    int(c.bufferFrames.Load()),
		PeakL:           math.Float64frombits(c.peakL.Load()),
		PeakR:           math.Float64frombits(c.peakR.Load()),
		RMSL:            math.Float64frombits(c.rmsL.Load()),
		RMSR:            math.Float64frombits(c.rmsR.Load()),
	}
}
