// Package rtutil provides the handful of platform-touching calls the audio
// callback needs once per thread: denormal flush-to-zero and a monotonic
// cycle counter for latency telemetry. Both are x86/x64-specific
// optimizations that must compile away to harmless no-ops everywhere else,
// per the design notes ("write the protection call so it compiles away on
// non-x86 targets").
package rtutil

import (
	"runtime"
	"sync"
	"time"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"
)

var (
	denormalOnce   sync.Once
	denormalActive bool
)

// EnableDenormalProtection sets flush-to-zero and denormals-are-zero for the
// calling thread's floating-point unit, once per process. Only amd64 has an
// MXCSR stub (mxcsr_amd64.s, selected by build tag); on every other GOARCH,
// 386 included, the call is a no-op. On amd64 it also requires cpuid.CPU to
// report a known vendor and golang.org/x/sys/cpu to report SSE2 at runtime.
//
// Step 1 of the audio engine's per-block contract (first invocation of the
// audio thread only); not safe to call concurrently with itself, and
// idempotent after the first call.
func EnableDenormalProtection() {
	denormalOnce.Do(func() {
		if runtime.GOARCH != "amd64" || !isX86Family() {
			return
		}
		setFlushToZero()
		denormalActive = true
	})
}

// DenormalProtectionActive reports whether EnableDenormalProtection actually
// engaged flush-to-zero (false off amd64 or before the first call).
func DenormalProtectionActive() bool {
	return denormalActive
}

func isX86Family() bool {
	// cpuid.CPU is populated at init for the running process; x/sys/cpu's
	// X86 feature struct is only meaningfully non-zero on GOARCH amd64/386,
	// so checking both is redundant-by-design: either is sufficient, and
	// checking both keeps this resilient if one dependency's detection
	// changes.
	return cpuid.CPU.Vendor != cpuid.VendorUnknown && hasSSE()
}

func hasSSE() bool {
	return cpu.X86.HasSSE2
}

// cyclesPerSecond is a cached estimate used to convert cycle-counter deltas
// to nanoseconds without calling time.Now() in the hot path twice.
var cyclesPerSecond float64

func init() {
	cyclesPerSecond = estimateCyclesPerSecond()
}

func estimateCyclesPerSecond() float64 {
	if cpuid.CPU.Hz > 0 {
		return float64(cpuid.CPU.Hz)
	}
	// Fall back to a short self-calibration against the wall clock; this
	// only runs once at package init, never in the callback.
	start := ReadCycleCounter()
	startTime := time.Now()
	for time.Since(startTime) < 2*time.Millisecond {
	}
	elapsed := time.Since(startTime).Seconds()
	delta := ReadCycleCounter() - start
	if elapsed <= 0 || delta == 0 {
		return 1e9 // degrade to "1 cycle == 1 ns" rather than divide by zero
	}
	return float64(delta) / elapsed
}

// CyclesToNanos converts a cycle-counter delta to nanoseconds using the
// cached per-process estimate, the way the callback turns a
// ReadCycleCounter() delta into the last/max callback nanosecond telemetry.
func CyclesToNanos(cycles uint64) uint64 {
	if cyclesPerSecond <= 0 {
		return 0
	}
	return uint64(float64(cycles) / cyclesPerSecond * 1e9)
}
