package bot

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentileMillis(t *testing.T) {
	t.Parallel()
	var lt latencyTracker
	for _, ms := range []int{10, 20, 30, 40, 50} {
		lt.Record(time.Duration(ms) * time.Millisecond)
	}

	if got := lt.PercentileMillis(50); got != 30 {
		t.Errorf("p50 = %v, want 30", got)
	}
	if got := lt.PercentileMillis(100); got != 50 {
		t.Errorf("p100 = %v, want 50", got)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	t.Parallel()
	var lt latencyTracker
	if got := lt.PercentileMillis(50); got != 0 {
		t.Errorf("PercentileMillis on empty tracker = %v, want 0", got)
	}
}

func TestLatencyTrackerEvictsOldestSample(t *testing.T) {
	t.Parallel()
	var lt latencyTracker
	for i := 0; i < latencySamples+1; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}
	// The first sample (0ms) should have been evicted; the window now
	// spans [1ms, latencySamples ms].
	if got := lt.PercentileMillis(0); got != 1 {
		t.Errorf("p0 after overflow = %v, want 1 (oldest sample evicted)", got)
	}
}
