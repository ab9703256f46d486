package profiler

import (
	"log"
	"runtime"
	"time"
)

// FrameStats is what the renderer reports for one frame.
type FrameStats struct {
	// DrawCalls counts mesh and fullscreen quad draws.
	DrawCalls int
	// Layers is the number of peel passes run.
	Layers int
}

// Summary is the averaged report of one update interval.
type Summary struct {
	FPS       float64
	DrawCalls float64
	Layers    float64
	HeapMB    float64
	SysMB     float64
}

// Profiler tracks frame rate, draw calls and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	drawCalls      int
	layers         int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastSummary    Summary
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetInterval changes how often Tick logs. Non-positive intervals log every frame.
//
// Parameters:
//   - d: the update interval
func (p *Profiler) SetInterval(d time.Duration) {
	p.updateInterval = max(d, 0)
}

// Tick should be called once per frame to track frame timing and the frame's draw statistics.
// Logs FPS, average draw calls and peel layers per frame, heap and process memory when the
// update interval has elapsed.
//
// Parameters:
//   - stats: the statistics of the frame just rendered
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats FrameStats) bool {
	p.frameCount++
	p.drawCalls += stats.DrawCalls
	p.layers += stats.Layers
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	frames := float64(p.frameCount)
	s := Summary{
		DrawCalls: float64(p.drawCalls) / frames,
		Layers:    float64(p.layers) / frames,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.FPS = frames / secs
	}
	runtime.ReadMemStats(&p.memStats)
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.SysMB = float64(p.memStats.Sys) / 1024 / 1024

	log.Printf("[Profiler] FPS: %.2f | Draw calls: %.1f | Peel layers: %.1f | Heap: %.2f MB | Sys: %.2f MB",
		s.FPS, s.DrawCalls, s.Layers, s.HeapMB, s.SysMB)

	p.lastSummary = s
	p.frameCount = 0
	p.drawCalls = 0
	p.layers = 0
	p.lastTime = currentTime
	return true
}

// LastSummary retrieves the report logged by the last interval.
//
// Returns:
//   - Summary: the last summary, zero before the first log
func (p *Profiler) LastSummary() Summary {
	return p.lastSummary
}
