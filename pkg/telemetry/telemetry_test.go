package telemetry

import "testing"

func TestRecordBlockTracksMaxAndXruns(t *testing.T) {
	var c Counters
	c.RecordBlock(1000, 2000)
	c.RecordBlock(3000, 2000)
	c.RecordBlock(500, 2000)

	snap := c.Snapshot()
	if snap.BlocksProcessed != 3 {
		t.Errorf("BlocksProcessed = %d, want 3", snap.BlocksProcessed)
	}
	if snap.LastCallbackNs != 500 {
		t.Errorf("LastCallbackNs = %d, want 500 (most recent call)", snap.LastCallbackNs)
	}
	if snap.MaxCallbackNs != 3000 {
		t.Errorf("MaxCallbackNs = %d, want 3000", snap.MaxCallbackNs)
	}
	if snap.XRuns != 1 {
		t.Errorf("XRuns = %d, want 1", snap.XRuns)
	}
}

func TestRecordUnderrunOverrunIndependent(t *testing.T) {
	var c Counters
	c.RecordUnderrun()
	c.RecordUnderrun()
	c.RecordOverrun()

	snap := c.Snapshot()
	if snap.Underruns != 2 {
		t.Errorf("Underruns = %d, want 2", snap.Underruns)
	}
	if snap.Overruns != 1 {
		t.Errorf("Overruns = %d, want 1", snap.Overruns)
	}
}

func TestSetFormatAndPeakRMSRoundTrip(t *testing.T) {
	var c Counters
	c.SetFormat(48000, 256)
	c.UpdatePeakRMS(0.9, 0.8, 0.3, 0.25)

	snap := c.Snapshot()
	if snap.SampleRate != 48000 || snap.BufferFrames != 256 {
		t.Errorf("format = (%d, %d), want (48000, 256)", snap.SampleRate, snap.BufferFrames)
	}
	if snap.PeakL != 0.9 || snap.PeakR != 0.8 {
		t.Errorf("peak = (%f, %f), want (0.9, 0.8)", snap.PeakL, snap.PeakR)
	}
	if snap.RMSL != 0.3 || snap.RMSR != 0.25 {
		t.Errorf("rms = (%f, %f), want (0.3, 0.25)", snap.RMSL, snap.RMSR)
	}
}
