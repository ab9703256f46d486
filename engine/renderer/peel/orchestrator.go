package peel

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/config"
	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/compositor"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/target_pool"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
)

// Renderer is the part of the renderer the orchestrator drives.
type Renderer interface {
	texture.Factory
	compositor.QuadDrawer

	SetRenderTarget(rt texture.RenderTarget)
	RenderTarget() texture.RenderTarget
	SetClearColor(c [4]float32)
	ClearColor() [4]float32
	SetAutoClear(enabled bool)
	AutoClear() bool
	Render(s scene.Scene, cam camera.Camera) error
	DrawingBufferSize() (int, int)
}

// Mode identifies how a frame was produced.
type Mode int

const (
	// ModePlain drew both groups in one render with sorted alpha blending.
	ModePlain Mode = iota
	// ModePeeled ran the opaque pass, the peel passes and the composite.
	ModePeeled
	// ModeOpaqueFallback drew the opaque group only because the peel targets could not be allocated.
	ModeOpaqueFallback
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModePeeled:
		return "peeled"
	case ModeOpaqueFallback:
		return "opaque-fallback"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Frame describes the last frame rendered by an orchestrator.
type Frame struct {
	Mode Mode
	// Layers is the number of peel passes run.
	Layers int
	// Skipped counts transparent objects left out of the peel passes because their material
	// cannot peel.
	Skipped int
}

type orchestrator struct {
	mu *sync.Mutex

	renderer   Renderer
	factory    texture.Factory
	pool       target_pool.Pool
	compositor compositor.Compositor
	offscreen  bool
	toneMap    pipeline.ToneMapping

	last Frame
}

// Orchestrator renders a scene with depth-peeled transparency.
//
// Every frame it draws the opaque group into a shared target whose depth attachment is the
// opaque depth texture and copies the result to the output. It then peels the transparent
// group one layer per pass, each pass keeping the nearest surface behind the previous layer,
// and blends the layers onto the output from back to front. The renderer's render target,
// clear color, autoClear flag and the scene's group visibility are restored before Render
// returns.
//
// With tone mapping on and the main output as destination, the frame is built in the linear
// composite target and presented through the tone mapping curve as the last step. Offscreen
// output always stays linear.
type Orchestrator interface {
	// Allocate creates the peel targets for a drawing buffer size and layer count.
	//
	// Parameters:
	//   - width: the drawing buffer width
	//   - height: the drawing buffer height
	//   - layerCount: the number of layer targets
	//
	// Returns:
	//   - error: an error if a texture could not be created
	Allocate(width, height, layerCount int) error

	// Resize recreates every peel target at a new size, keeping the layer count. It does
	// nothing before the first Allocate or Render.
	//
	// Parameters:
	//   - width: the new width
	//   - height: the new height
	//
	// Returns:
	//   - error: an error if a texture could not be created
	Resize(width, height int) error

	// Render draws one frame of s seen from cam into the output.
	//
	// Parameters:
	//   - s: the scene
	//   - cam: the camera
	//   - cfg: the peel parameters for this frame, normalized before use
	//
	// Returns:
	//   - error: the first failed pass; the output is then incomplete and the frame should be skipped
	Render(s scene.Scene, cam camera.Camera, cfg config.Peel) error

	// Output retrieves the target frames are rendered into: the pool's composite target when
	// the orchestrator renders offscreen, nil (the main output) otherwise.
	//
	// Returns:
	//   - texture.RenderTarget: the output target, or nil
	Output() texture.RenderTarget

	// Pool retrieves the target pool owned by the orchestrator.
	//
	// Returns:
	//   - target_pool.Pool: the pool
	Pool() target_pool.Pool

	// LastFrame describes the last frame rendered.
	//
	// Returns:
	//   - Frame: the frame description
	LastFrame() Frame

	// Dispose releases every peel target.
	Dispose()
}

var _ Orchestrator = &orchestrator{}

// NewOrchestrator creates an Orchestrator drawing through r. Peel targets are created by r
// unless WithFactory supplies another factory.
//
// Parameters:
//   - r: the renderer
//   - options: variadic OrchestratorBuilderOption functions
//
// Returns:
//   - Orchestrator: the orchestrator, with nothing allocated yet
func NewOrchestrator(r Renderer, options ...OrchestratorBuilderOption) Orchestrator {
	o := &orchestrator{
		mu:       &sync.Mutex{},
		renderer: r,
		factory:  r,
	}
	for _, opt := range options {
		opt(o)
	}
	o.pool = target_pool.NewPool(o.factory)
	if o.compositor == nil {
		o.compositor = compositor.NewCompositor(r)
	}
	return o
}

func (o *orchestrator) Allocate(width, height, layerCount int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pool.Allocate(width, height, layerCount)
}

func (o *orchestrator) Resize(width, height int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.pool.Allocated() {
		return nil
	}
	return o.pool.Resize(width, height)
}

func (o *orchestrator) Output() texture.RenderTarget {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outputLocked()
}

func (o *orchestrator) outputLocked() texture.RenderTarget {
	if !o.offscreen {
		return nil
	}
	return o.pool.CompositeTarget()
}

// presentsLocked reports whether frames are built in the composite target and tone mapped
// onto the main output.
func (o *orchestrator) presentsLocked() bool {
	return !o.offscreen && o.toneMap != pipeline.ToneMappingNone
}

// frameTargetLocked returns the target the passes composite into.
func (o *orchestrator) frameTargetLocked() texture.RenderTarget {
	if o.presentsLocked() {
		return o.pool.CompositeTarget()
	}
	return o.outputLocked()
}

// presentLocked draws the composite target onto the main output through the tone mapping curve.
func (o *orchestrator) presentLocked() error {
	if !o.presentsLocked() {
		return nil
	}
	o.renderer.SetRenderTarget(nil)
	if err := o.compositor.Draw(o.pool.CompositeTarget().ColorTexture(), pipeline.Present(o.toneMap)); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

func (o *orchestrator) Pool() target_pool.Pool {
	return o.pool
}

func (o *orchestrator) LastFrame() Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *orchestrator) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pool.Dispose()
}

func (o *orchestrator) Render(s scene.Scene, cam camera.Camera, cfg config.Peel) error {
	if s == nil || cam == nil {
		return fmt.Errorf("render needs a scene and a camera")
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	cfg = cfg.Normalize()
	r := o.renderer

	opaque, transparent := s.OpaqueGroup(), s.TransparentGroup()
	prevTarget, prevClear, prevAuto := r.RenderTarget(), r.ClearColor(), r.AutoClear()
	opaqueVisible, transparentVisible := opaque.Visible(), transparent.Visible()
	defer func() {
		r.SetRenderTarget(prevTarget)
		r.SetClearColor(prevClear)
		r.SetAutoClear(prevAuto)
		opaque.SetVisible(opaqueVisible)
		transparent.SetVisible(transparentVisible)
	}()

	side := pipeline.SideFront
	if cfg.DoubleSided {
		side = pipeline.SideDouble
	}
	for _, m := range transparent.Materials() {
		m.SetOpacityScale(cfg.Opacity)
	}

	if !cfg.UseDepthPeeling {
		return o.renderPlainLocked(s, cam, side)
	}

	if err := o.ensureTargetsLocked(cfg.LayerCount); err != nil {
		if o.offscreen {
			return fmt.Errorf("peel targets: %w", err)
		}
		common.Logger().Warn("depth peeling skipped for this frame: peel targets unavailable", "err", err)
		o.last = Frame{Mode: ModeOpaqueFallback}
		transparent.SetVisible(false)
		r.SetRenderTarget(nil)
		r.SetAutoClear(true)
		return r.Render(s, cam)
	}
	out := o.frameTargetLocked()

	// Opaque pass into the shared target, then copied to the output.
	transparent.SetVisible(false)
	shared := o.pool.SharedTarget()
	shared.SetDepthTexture(o.pool.OpaqueDepth())
	r.SetRenderTarget(shared)
	r.SetAutoClear(true)
	if err := r.Render(s, cam); err != nil {
		return fmt.Errorf("opaque pass: %w", err)
	}
	r.SetRenderTarget(out)
	if err := o.compositor.Copy(shared.ColorTexture()); err != nil {
		return fmt.Errorf("opaque copy: %w", err)
	}

	o.last = Frame{Mode: ModePeeled}
	if cfg.LayerCount == 0 || !transparentVisible {
		return o.presentLocked()
	}

	// Peel passes: transparent only, nearest remaining layer per pass.
	opaque.SetVisible(false)
	transparent.SetVisible(true)
	peelable, disabled := peelableMaterials(transparent.Objects())
	defer func() {
		for _, obj := range disabled {
			obj.SetEnabled(true)
		}
	}()
	o.last.Skipped = len(disabled)
	if len(disabled) > 0 {
		common.Logger().Warn("transparent objects without peeling support are hidden in peel passes", "count", len(disabled))
	}

	width, height := o.pool.Width(), o.pool.Height()
	pp := o.pool.PingPong()
	r.SetClearColor([4]float32{0, 0, 0, 0})
	for i := 0; i < cfg.LayerCount; i++ {
		near := pp.Near()
		for _, m := range peelable {
			m.EnablePeeling(true)
			m.SetOpaqueDepth(o.pool.OpaqueDepth())
			m.SetNearDepth(near)
			m.SetBlending(pipeline.BlendingCustom)
			m.SetBlendFactors(pipeline.BlendFactorOne, pipeline.BlendFactorZero)
			m.SetDepthTest(true)
			m.SetDepthWrite(true)
			m.SetSide(side)
			m.SetResolution([2]float32{float32(width), float32(height)})
		}

		layer := o.pool.Layer(i)
		layer.SetDepthTexture(pp.Write())
		r.SetRenderTarget(layer)
		err := r.Render(s, cam)
		layer.SetDepthTexture(nil)
		if err != nil {
			return fmt.Errorf("peel pass %d: %w", i, err)
		}
		pp.Swap()
		o.last.Layers++
	}

	// Composite back to front over the opaque result.
	r.SetRenderTarget(out)
	r.SetAutoClear(false)
	if err := o.compositor.Accumulate(o.pool.Layers()); err != nil {
		return err
	}
	return o.presentLocked()
}

// renderPlainLocked draws both groups in one render: transparent materials blend normally
// with depth writes off and no peel test.
func (o *orchestrator) renderPlainLocked(s scene.Scene, cam camera.Camera, side pipeline.Side) error {
	r := o.renderer
	for _, m := range s.TransparentGroup().Materials() {
		if p, ok := material.AsPeelable(m); ok {
			p.EnablePeeling(false)
			p.SetNearDepth(nil)
			p.SetOpaqueDepth(nil)
		}
		m.SetBlending(pipeline.BlendingNormal)
		m.SetDepthWrite(false)
		m.SetSide(side)
	}

	var out texture.RenderTarget
	if o.offscreen || o.presentsLocked() {
		// The composite target borrows the opaque depth texture, which is free in plain mode.
		if err := o.ensureTargetsLocked(o.pool.LayerCount()); err != nil {
			if o.offscreen {
				return fmt.Errorf("plain output target: %w", err)
			}
			common.Logger().Warn("tone mapping skipped for this frame: composite target unavailable", "err", err)
			r.SetRenderTarget(nil)
			r.SetAutoClear(true)
			o.last = Frame{Mode: ModePlain}
			return r.Render(s, cam)
		}
		out = o.pool.CompositeTarget()
		out.SetDepthTexture(o.pool.OpaqueDepth())
		defer out.SetDepthTexture(nil)
	}
	r.SetRenderTarget(out)
	r.SetAutoClear(true)
	o.last = Frame{Mode: ModePlain}
	if err := r.Render(s, cam); err != nil {
		return err
	}
	return o.presentLocked()
}

// ensureTargetsLocked allocates the pool at the drawing buffer size, or adjusts it to a new
// size or layer count. Layer targets are reused when neither changed.
func (o *orchestrator) ensureTargetsLocked(layerCount int) error {
	width, height := o.renderer.DrawingBufferSize()
	if !o.pool.Allocated() {
		return o.pool.Allocate(width, height, layerCount)
	}
	if width != o.pool.Width() || height != o.pool.Height() {
		if err := o.pool.Resize(width, height); err != nil {
			return err
		}
	}
	_, _, err := o.pool.SetLayerCount(layerCount)
	return err
}

// peelableMaterials collects the peelable materials of objects, each once. Enabled objects
// whose material cannot peel are disabled and returned so the caller can enable them again.
func peelableMaterials(objects []game_object.GameObject) ([]material.Peelable, []game_object.GameObject) {
	seen := make(map[uint64]struct{})
	var out []material.Peelable
	var disabled []game_object.GameObject
	for _, obj := range objects {
		m := obj.Material()
		if m == nil || !obj.Enabled() {
			continue
		}
		p, ok := material.AsPeelable(m)
		if !ok {
			obj.SetEnabled(false)
			disabled = append(disabled, obj)
			continue
		}
		if _, dup := seen[m.ID()]; dup {
			continue
		}
		seen[m.ID()] = struct{}{}
		out = append(out, p)
	}
	return out, disabled
}
