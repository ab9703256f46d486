package engine

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-peel/config"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/peel"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
)

func newHeadlessEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithSize(32, 24), renderer.WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Release)
	e := NewEngine(append([]EngineBuilderOption{WithRenderer(r)}, options...)...)
	t.Cleanup(func() { e.Orchestrator().Dispose() })
	return e
}

func TestRenderFramePeelsTheScene(t *testing.T) {
	s := scene.NewDepthPeelDemo(7, 32.0/24.0)
	e := newHeadlessEngine(t, WithScene(s), WithPeelConfig(config.Peel{UseDepthPeeling: true, LayerCount: 4, DoubleSided: true, Opacity: 1}))

	if err := e.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	f := e.Orchestrator().LastFrame()
	if f.Mode != peel.ModePeeled || f.Layers != 4 {
		t.Errorf("frame = %+v, want 4 peeled layers", f)
	}
	// One opaque render, four peel renders.
	if got := e.Renderer().Info().Renders; got != 5 {
		t.Errorf("renders = %d, want 5", got)
	}

	// Info is reset every frame.
	if err := e.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	if got := e.Renderer().Info().Renders; got != 5 {
		t.Errorf("renders after the second frame = %d, want 5", got)
	}
}

func TestResizeIsAppliedAtFrameStart(t *testing.T) {
	s := scene.NewDepthPeelDemo(1, 32.0/24.0)
	e := newHeadlessEngine(t, WithScene(s))

	if err := e.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	e.RequestResize(10, 10)
	e.RequestResize(40, 20)
	if w, _ := e.Renderer().DrawingBufferSize(); w != 32 {
		t.Errorf("resize applied before the next frame: width = %d", w)
	}

	if err := e.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	if w, h := e.Renderer().DrawingBufferSize(); w != 40 || h != 20 {
		t.Errorf("drawing buffer = %dx%d, want 40x20", w, h)
	}
	if p := e.Orchestrator().Pool(); p.Width() != 40 || p.Height() != 20 {
		t.Errorf("pool = %dx%d, want 40x20", p.Width(), p.Height())
	}
	if got := s.Camera().Aspect(); got != 2 {
		t.Errorf("camera aspect = %v, want 2", got)
	}

	e.RequestResize(0, 0)
	if err := e.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	if w, h := e.Renderer().DrawingBufferSize(); w != 40 || h != 20 {
		t.Errorf("zero resize changed the drawing buffer to %dx%d", w, h)
	}
}

func TestPeelConfigIsNormalized(t *testing.T) {
	e := newHeadlessEngine(t)
	e.SetPeelConfig(config.Peel{UseDepthPeeling: true, LayerCount: -3, Opacity: 4})
	got := e.PeelConfig()
	if got.LayerCount != 0 || got.Opacity != 1 {
		t.Errorf("config = %+v, want 0 layers and opacity 1", got)
	}
}

func TestRenderFrameWithoutSceneOrInactive(t *testing.T) {
	e := newHeadlessEngine(t)
	if err := e.RenderFrame(); err != nil {
		t.Fatalf("no scene: %v", err)
	}
	s := scene.NewDepthPeelDemo(1, 1)
	s.SetActive(false)
	e.SetScene(s)
	if err := e.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	if got := e.Renderer().Info().Renders; got != 0 {
		t.Errorf("inactive scene rendered %d times", got)
	}
}

func TestProfilerCountsFrames(t *testing.T) {
	s := scene.NewDepthPeelDemo(3, 32.0/24.0)
	e := newHeadlessEngine(t, WithScene(s), WithProfiling(true))
	eng := e.(*engine)
	eng.profiler.SetInterval(0)

	if err := e.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	sum := eng.profiler.LastSummary()
	if sum.Layers != float64(config.Default().Peel.LayerCount) || sum.DrawCalls == 0 {
		t.Errorf("summary = %+v", sum)
	}
}
