package renderer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
	"github.com/Carmen-Shannon/oxy-peel/engine/window"
	"github.com/mrjoshuak/go-openexr/exr"
)

// Info holds draw statistics accumulated since the last ResetInfo.
type Info struct {
	// DrawCalls counts mesh draws and fullscreen quad draws.
	DrawCalls int
	// Renders counts Render calls.
	Renders int
	// QuadDraws counts DrawFullscreenQuad calls.
	QuadDraws int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	target     texture.RenderTarget
	clearColor [4]float32
	autoClear  bool
	info       Info

	// Pre-creation config collected from builder options
	window               window.Window
	width                int
	height               int
	workers              int
	validateShaders      bool
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer defines the interface for the rendering system.
//
// The Renderer follows a bind-then-draw model: SetRenderTarget selects where subsequent Render,
// DrawFullscreenQuad and Clear calls land (nil is the main output), and the clear color and
// autoClear flag decide whether each of those calls clears the bound target first. The actual
// drawing is delegated to a backend, which allows for multiple backend implementations to exist.
type Renderer interface {
	// Backend retrieves the type of the backend executing draws.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	Backend() RendererBackendType

	// SetRenderTarget binds the target for subsequent draws. Passing nil binds the main output.
	//
	// Parameters:
	//   - rt: the render target, or nil
	SetRenderTarget(rt texture.RenderTarget)

	// RenderTarget retrieves the bound render target, or nil when the main output is bound.
	//
	// Returns:
	//   - texture.RenderTarget: the bound target
	RenderTarget() texture.RenderTarget

	// SetClearColor sets the color used when the bound target is cleared.
	//
	// Parameters:
	//   - c: the RGBA clear color
	SetClearColor(c [4]float32)

	// ClearColor retrieves the current clear color.
	//
	// Returns:
	//   - [4]float32: the RGBA clear color
	ClearColor() [4]float32

	// SetAutoClear controls whether Render and DrawFullscreenQuad clear the bound target first.
	//
	// Parameters:
	//   - enabled: true to clear before every draw submission
	SetAutoClear(enabled bool)

	// AutoClear reports whether draw submissions clear the bound target first.
	//
	// Returns:
	//   - bool: the autoClear flag
	AutoClear() bool

	// Clear clears the color and depth of the bound target.
	//
	// Returns:
	//   - error: an error if the target was disposed
	Clear() error

	// Render draws every visible, enabled object of the scene into the bound target. Opaque
	// materials draw first in traversal order, transparent materials after, sorted back to front.
	// Objects outside the camera frustum and objects without a model or material are skipped.
	//
	// Parameters:
	//   - s: the scene to draw
	//   - cam: the camera to draw from
	//
	// Returns:
	//   - error: an error if the bound target or a bound depth reference was disposed, or a draw failed
	Render(s scene.Scene, cam camera.Camera) error

	// DrawFullscreenQuad draws src over the whole bound target with the given state.
	//
	// Parameters:
	//   - src: the color texture to sample
	//   - state: blending and depth state
	//
	// Returns:
	//   - error: an error if a texture was disposed or the draw failed
	DrawFullscreenQuad(src texture.Texture, state pipeline.RenderState) error

	// CreateDepthTexture allocates a 32-bit float depth texture on the backend.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	//   - label: debug label
	//
	// Returns:
	//   - texture.Texture: the depth texture
	//   - error: an error if allocation fails
	CreateDepthTexture(width, height int, label string) (texture.Texture, error)

	// CreateRenderTarget allocates a float RGBA color target on the backend.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	//   - label: debug label
	//
	// Returns:
	//   - texture.RenderTarget: the render target, with no depth attachment
	//   - error: an error if allocation fails
	CreateRenderTarget(width, height int, label string) (texture.RenderTarget, error)

	// DrawingBufferSize retrieves the size of the main output in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	DrawingBufferSize() (int, int)

	// Resize configures the underlying backend to handle a new drawing buffer size.
	// This should be called when re-sizing the window or when the output size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the drawing buffer could not be reallocated
	Resize(width, height int) error

	// SetPresentMode changes the present mode of the surface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Info retrieves the draw statistics accumulated since the last ResetInfo.
	//
	// Returns:
	//   - Info: the statistics
	Info() Info

	// ResetInfo zeroes the draw statistics.
	ResetInfo()

	// ReadPixels copies the color attachment of rt (nil is the main output) into a float image.
	//
	// Parameters:
	//   - rt: the render target, or nil
	//
	// Returns:
	//   - *exr.RGBAImage: the pixels, row 0 at the top
	//   - error: an error if the target was disposed or the readback failed
	ReadPixels(rt texture.RenderTarget) (*exr.RGBAImage, error)

	// BeginFrame acquires the main output for a new frame.
	//
	// Returns:
	//   - error: an error if the main output could not be acquired
	BeginFrame() error

	// EndFrame submits and presents the frame.
	//
	// Returns:
	//   - error: an error if the frame could not be submitted
	EndFrame() error

	// ProgramCompiles retrieves how many shader program variants the backend has built.
	//
	// Returns:
	//   - int: the build count
	ProgramCompiles() int

	// BoundVariant retrieves the program variant a material was last drawn with.
	//
	// Parameters:
	//   - materialID: the material ID
	//
	// Returns:
	//   - material.VariantKey: the variant key
	//   - bool: false if the material has not been drawn
	BoundVariant(materialID uint64) (material.VariantKey, bool)

	// Release frees the backend and every resource it owns.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer on the given backend.
//
// The software backend renders into an in-memory drawing buffer sized by WithSize. The wgpu
// backend renders to the surface of the window passed with WithWindow.
//
// Parameters:
//   - backendType: the backend to create
//   - options: variadic RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the backend could not be created
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		autoClear:   true,
		clearColor:  [4]float32{0, 0, 0, 1},
		width:       800,
		height:      600,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeSoftware:
		b, err := newSoftwareRendererBackend(r.width, r.height, r.workers)
		if err != nil {
			return nil, err
		}
		r.backend = b
	case BackendTypeWGPU:
		if r.window == nil {
			return nil, fmt.Errorf("the wgpu backend needs a window: use WithWindow")
		}
		b, err := newWGPURendererBackend(r.window.SurfaceDescriptor(), r.forceFallbackAdapter, r.validateShaders)
		if err != nil {
			return nil, err
		}
		r.backend = b
		r.width, r.height = r.window.Width(), r.window.Height()
		if r.pendingPresentMode != nil {
			r.backend.SetPresentMode(*r.pendingPresentMode)
		}
		if err := r.backend.Resize(r.width, r.height); err != nil {
			r.backend.Release()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported renderer backend %d", backendType)
	}

	common.Logger().Info("renderer created", "backend", backendType.String(), "width", r.width, "height", r.height)
	return r, nil
}

func (r *renderer) Backend() RendererBackendType {
	return r.backendType
}

func (r *renderer) SetRenderTarget(rt texture.RenderTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = rt
}

func (r *renderer) RenderTarget() texture.RenderTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

func (r *renderer) SetClearColor(c [4]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearColor = c
}

func (r *renderer) ClearColor() [4]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clearColor
}

func (r *renderer) SetAutoClear(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoClear = enabled
}

func (r *renderer) AutoClear() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.autoClear
}

func (r *renderer) Clear() error {
	r.mu.Lock()
	target, op := r.target, ClearOp{Color: r.clearColor, ClearColor: true, ClearDepth: true}
	r.mu.Unlock()

	if err := texture.CheckTarget(target); err != nil {
		return err
	}
	return r.backend.Clear(target, op)
}

func (r *renderer) Render(s scene.Scene, cam camera.Camera) error {
	if s == nil || cam == nil {
		return fmt.Errorf("render needs a scene and a camera")
	}
	r.mu.Lock()
	target, clear := r.target, r.clearOpLocked()
	r.mu.Unlock()

	if err := texture.CheckTarget(target); err != nil {
		return err
	}

	items := buildDrawList(s, cam)
	for _, it := range items {
		if err := checkPeelBindings(it.Material); err != nil {
			return err
		}
	}

	calls, err := r.backend.DrawScene(target, FrameData{Camera: cam, Lights: s.LightEnvironment()}, items, clear)

	r.mu.Lock()
	r.info.DrawCalls += calls
	r.info.Renders++
	r.mu.Unlock()

	return err
}

func (r *renderer) DrawFullscreenQuad(src texture.Texture, state pipeline.RenderState) error {
	if src == nil {
		return fmt.Errorf("fullscreen quad needs a source texture")
	}
	r.mu.Lock()
	target, clear := r.target, r.clearOpLocked()
	r.mu.Unlock()

	if err := texture.CheckTarget(target); err != nil {
		return err
	}
	if err := texture.Check(src); err != nil {
		return err
	}
	if err := r.backend.DrawQuad(target, src, state, clear); err != nil {
		return err
	}

	r.mu.Lock()
	r.info.DrawCalls++
	r.info.QuadDraws++
	r.mu.Unlock()
	return nil
}

func (r *renderer) CreateDepthTexture(width, height int, label string) (texture.Texture, error) {
	return r.backend.CreateDepthTexture(width, height, label)
}

func (r *renderer) CreateRenderTarget(width, height int, label string) (texture.RenderTarget, error) {
	return r.backend.CreateRenderTarget(width, height, label)
}

func (r *renderer) DrawingBufferSize() (int, int) {
	return r.backend.DrawingBufferSize()
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid drawing buffer size %dx%d", width, height)
	}
	if err := r.backend.Resize(width, height); err != nil {
		return err
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	common.Logger().Debug("renderer resized", "width", width, "height", height)
	return nil
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}

func (r *renderer) ResetInfo() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = Info{}
}

func (r *renderer) ReadPixels(rt texture.RenderTarget) (*exr.RGBAImage, error) {
	if err := texture.CheckTarget(rt); err != nil {
		return nil, err
	}
	return r.backend.ReadPixels(rt)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) ProgramCompiles() int {
	return r.backend.ProgramCompiles()
}

func (r *renderer) BoundVariant(materialID uint64) (material.VariantKey, bool) {
	return r.backend.BoundVariant(materialID)
}

func (r *renderer) Release() {
	r.backend.Release()
}

// clearOpLocked returns the clear applied before a draw submission, or nil when autoClear is off.
// Callers hold mu.
func (r *renderer) clearOpLocked() *ClearOp {
	if !r.autoClear {
		return nil
	}
	return &ClearOp{Color: r.clearColor, ClearColor: true, ClearDepth: true}
}

// checkPeelBindings returns texture.ErrDisposed if a peeling material references a disposed depth texture.
func checkPeelBindings(m material.Material) error {
	p, ok := material.AsPeelable(m)
	if !ok || !p.Peel().PeelingEnabled() {
		return nil
	}
	if err := texture.Check(p.Peel().OpaqueDepth()); err != nil {
		return fmt.Errorf("material %q opaque depth: %w", m.Name(), err)
	}
	if err := texture.Check(p.Peel().NearDepth()); err != nil {
		return fmt.Errorf("material %q near depth: %w", m.Name(), err)
	}
	return nil
}

// buildDrawList collects the drawable objects of a scene: opaque materials in traversal
// order followed by transparent materials sorted back to front by view depth.
//
// Parameters:
//   - s: the scene to traverse
//   - cam: the camera used for frustum culling and depth sorting
//
// Returns:
//   - []DrawItem: the ordered draw list
func buildDrawList(s scene.Scene, cam camera.Camera) []DrawItem {
	frustum := cam.Frustum()
	view := cam.ViewMatrix()

	var opaque, transparent []DrawItem
	s.Traverse(func(obj game_object.GameObject) {
		m, mat := obj.Model(), obj.Material()
		if m == nil || mat == nil || m.IndexCount() == 0 {
			return
		}
		center, radius := obj.Bounds()
		if !frustum.SphereVisible(center, radius) {
			return
		}
		item := DrawItem{
			ObjectID:    obj.ID(),
			Model:       m,
			Material:    mat,
			ModelMatrix: obj.ModelMatrix(),
			ViewDepth:   -view.Mul4x1(center.Vec4(1)).Z(),
		}
		if mat.Transparent() {
			transparent = append(transparent, item)
		} else {
			opaque = append(opaque, item)
		}
	})

	sort.SliceStable(transparent, func(i, j int) bool {
		return transparent[i].ViewDepth > transparent[j].ViewDepth
	})
	return append(opaque, transparent...)
}
