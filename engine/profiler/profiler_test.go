package profiler

import (
	"testing"
	"time"
)

func TestTickAveragesOverInterval(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(time.Hour)

	for _, calls := range []int{4, 6, 8} {
		if p.Tick(FrameStats{DrawCalls: calls, Layers: 3}) {
			t.Fatal("logged before the interval elapsed")
		}
	}

	p.SetInterval(0)
	if !p.Tick(FrameStats{DrawCalls: 2, Layers: 1}) {
		t.Fatal("did not log with a zero interval")
	}
	s := p.LastSummary()
	if s.DrawCalls != 5 || s.Layers != 2.5 {
		t.Errorf("summary = %+v, want 5 draw calls and 2.5 layers per frame", s)
	}

	p.Tick(FrameStats{DrawCalls: 7})
	if s := p.LastSummary(); s.DrawCalls != 7 || s.Layers != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
}

func TestNegativeIntervalLogsEveryFrame(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(-time.Second)
	if !p.Tick(FrameStats{}) {
		t.Error("negative interval should log every frame")
	}
}
