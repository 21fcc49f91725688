package main

import (
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 0); got != 1 {
		t.Fatalf("p0 = %v", got)
	}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %v", got)
	}
}

func TestComputeStatsSortsSamples(t *testing.T) {
	s := computeStats(time.Second, []time.Duration{3, 1, 2}, 1)
	if s.ops != 3 || s.failures != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.p50 != 2 || s.p99 != 2 {
		t.Fatalf("unexpected percentiles p50=%v p99=%v", s.p50, s.p99)
	}
	if s.opsPerS != 3 {
		t.Fatalf("ops/sec = %v", s.opsPerS)
	}
}
