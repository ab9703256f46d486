package renderer

import (
	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/light"
	"github.com/Carmen-Shannon/oxy-peel/engine/model"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mrjoshuak/go-openexr/exr"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend. It needs a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU rasterizer. It renders into an in-memory drawing
	// buffer and needs no window or GPU.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	}
	return "unknown"
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ClearOp describes which attachments of a target are cleared before a draw.
type ClearOp struct {
	Color      [4]float32
	ClearColor bool
	ClearDepth bool
}

// FrameData is the per-Render state shared by every draw of one scene submission.
type FrameData struct {
	Camera camera.Camera
	Lights light.Environment
}

// DrawItem is one object ready for submission: its model, material and transform.
type DrawItem struct {
	ObjectID    uint64
	Model       model.Model
	Material    material.Material
	ModelMatrix mgl32.Mat4
	ViewDepth   float32
}

// RendererBackend is the interface every backend implementation satisfies. The Renderer owns
// target binding, clear state and draw-list construction; the backend only executes.
type RendererBackend interface {
	texture.Factory

	// Resize reallocates the drawing buffer.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the drawing buffer could not be reallocated
	Resize(width, height int) error

	// DrawingBufferSize retrieves the size of the main output in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	DrawingBufferSize() (int, int)

	// SetPresentMode changes the surface present mode. Backends without a surface ignore it.
	//
	// Parameters:
	//   - mode: the present mode
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the main output for a new frame.
	//
	// Returns:
	//   - error: an error if the main output could not be acquired
	BeginFrame() error

	// EndFrame submits and presents the frame started by BeginFrame.
	//
	// Returns:
	//   - error: an error if the frame could not be submitted
	EndFrame() error

	// Clear clears the attachments of target (nil is the main output).
	//
	// Parameters:
	//   - target: the render target, or nil
	//   - op: what to clear and the clear color
	//
	// Returns:
	//   - error: texture.ErrDisposed if the target was disposed
	Clear(target texture.RenderTarget, op ClearOp) error

	// DrawScene draws the items into target in order.
	//
	// Parameters:
	//   - target: the render target, or nil for the main output
	//   - frame: camera and lighting for the submission
	//   - items: the draw list
	//   - clear: an optional clear applied before the first draw
	//
	// Returns:
	//   - int: the number of draw calls issued
	//   - error: an error if a draw failed
	DrawScene(target texture.RenderTarget, frame FrameData, items []DrawItem, clear *ClearOp) (int, error)

	// DrawQuad draws src over the whole of target with the given state.
	//
	// Parameters:
	//   - target: the render target, or nil for the main output
	//   - src: the color texture to sample
	//   - state: blending and depth state
	//   - clear: an optional clear applied before the draw
	//
	// Returns:
	//   - error: an error if the draw failed
	DrawQuad(target texture.RenderTarget, src texture.Texture, state pipeline.RenderState, clear *ClearOp) error

	// ReadPixels copies the color attachment of target (nil is the main output) into a float image.
	//
	// Parameters:
	//   - target: the render target, or nil
	//
	// Returns:
	//   - *exr.RGBAImage: the pixels, row 0 at the top
	//   - error: an error if the readback failed
	ReadPixels(target texture.RenderTarget) (*exr.RGBAImage, error)

	// ProgramCompiles retrieves how many shader programs the backend has built.
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

	// Release frees every backend resource.
	Release()
}
