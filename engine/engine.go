package engine

import (
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/config"
	"github.com/Carmen-Shannon/oxy-peel/engine/profiler"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/peel"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
	"github.com/Carmen-Shannon/oxy-peel/engine/window"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window       window.Window
	renderer     renderer.Renderer
	orchestrator peel.Orchestrator
	peelOptions  []peel.OrchestratorBuilderOption

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	// mu guards the fields the window and tick threads hand to the render thread.
	mu            sync.Mutex
	scene         scene.Scene
	peelConfig    config.Peel
	pendingResize *[2]int

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, the render loop and window management, and renders its scene
// with depth-peeled transparency every frame.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil when rendering headless
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Orchestrator returns the depth peeling orchestrator driven by the render loop.
	//
	// Returns:
	//   - peel.Orchestrator: the orchestrator, or nil without a renderer
	Orchestrator() peel.Orchestrator

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for scene animation and input processing.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetScene replaces the scene drawn each frame.
	//
	// Parameters:
	//   - s: the scene, or nil to draw nothing
	SetScene(s scene.Scene)

	// Scene retrieves the scene drawn each frame.
	//
	// Returns:
	//   - scene.Scene: the scene, or nil
	Scene() scene.Scene

	// SetPeelConfig replaces the depth peeling parameters. The next frame reads them.
	//
	// Parameters:
	//   - cfg: the parameters; normalized before storing
	SetPeelConfig(cfg config.Peel)

	// PeelConfig retrieves the normalized depth peeling parameters.
	//
	// Returns:
	//   - config.Peel: the parameters
	PeelConfig() config.Peel

	// RequestResize records a new drawing buffer size. It is applied at the start of the next
	// frame so the peel targets are never reallocated mid-frame. Later requests replace
	// earlier ones.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	RequestResize(width, height int)

	// RenderFrame runs one iteration of the render loop: pending resize, frame acquisition, the
	// peeled render of the scene and presentation.
	//
	// Returns:
	//   - error: the first failure; the frame is skipped and nothing carries over to the next
	RenderFrame() error

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// The orchestrator is created once the options supplied a renderer, and the window's resize
// events become resize requests.
//
// Parameters:
//   - options: functional options for engine configuration (renderer, scene, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		peelConfig:       config.Default().Peel,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.renderer != nil {
		e.orchestrator = peel.NewOrchestrator(e.renderer, e.peelOptions...)
	}
	if e.window != nil {
		e.window.SetResizeCallback(e.RequestResize)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Orchestrator() peel.Orchestrator {
	return e.orchestrator
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	if e.orchestrator != nil {
		e.orchestrator.Dispose()
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// A failed frame is logged and skipped. Recovers from panics to avoid crashing the process and
// signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if err := e.RenderFrame(); err != nil {
				common.Logger().Error("frame skipped", "err", err)
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) RenderFrame() error {
	e.mu.Lock()
	s, cfg, resize := e.scene, e.peelConfig, e.pendingResize
	e.pendingResize = nil
	e.mu.Unlock()

	if e.renderer == nil {
		return nil
	}
	if resize != nil {
		if err := e.applyResize(s, resize[0], resize[1]); err != nil {
			return err
		}
	}
	if s == nil || !s.Active() {
		return nil
	}

	e.renderer.ResetInfo()
	if err := e.renderer.BeginFrame(); err != nil {
		return err
	}
	err := e.orchestrator.Render(s, s.Camera(), cfg)
	if endErr := e.renderer.EndFrame(); err == nil {
		err = endErr
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(profiler.FrameStats{
			DrawCalls: e.renderer.Info().DrawCalls,
			Layers:    e.orchestrator.LastFrame().Layers,
		})
	}
	return err
}

// applyResize resizes the drawing buffer and the peel targets and updates the camera aspect.
func (e *engine) applyResize(s scene.Scene, width, height int) error {
	if width <= 0 || height <= 0 {
		// Minimized windows report a zero framebuffer; keep the current size.
		return nil
	}
	if err := e.renderer.Resize(width, height); err != nil {
		return err
	}
	if err := e.orchestrator.Resize(width, height); err != nil {
		return err
	}
	if s != nil && s.Camera() != nil {
		s.Camera().SetAspect(float32(width) / float32(height))
	}
	common.Logger().Debug("drawing buffer resized", "width", width, "height", height)
	return nil
}

func (e *engine) RequestResize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingResize = &[2]int{width, height}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) SetScene(s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = s
}

func (e *engine) Scene() scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

func (e *engine) SetPeelConfig(cfg config.Peel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.peelConfig = cfg.Normalize()
}

func (e *engine) PeelConfig() config.Peel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peelConfig
}
