package texture

import "fmt"

// renderTarget is the implementation of the RenderTarget interface.
type renderTarget struct {
	id    uint64
	label string
	color Texture
	depth Texture
}

// RenderTarget is an off-screen color surface with a swappable depth attachment.
//
// The target owns its color texture and releases it on Dispose. The depth attachment is
// borrowed: depth textures are owned by whoever allocated them and may be attached to
// several targets over a frame.
type RenderTarget interface {
	// ID retrieves the process-unique identifier of the render target.
	//
	// Returns:
	//   - uint64: the render target identifier
	ID() uint64

	// Label retrieves the debug label of the render target.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Width retrieves the width of the color attachment in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height retrieves the height of the color attachment in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// ColorTexture retrieves the owned color attachment.
	//
	// Returns:
	//   - Texture: the color texture
	ColorTexture() Texture

	// DepthTexture retrieves the current depth attachment, or nil if none is attached.
	//
	// Returns:
	//   - Texture: the depth texture, or nil
	DepthTexture() Texture

	// SetDepthTexture replaces the depth attachment. Passing nil detaches it.
	//
	// Parameters:
	//   - depth: the depth texture to attach, or nil
	SetDepthTexture(depth Texture)

	// Dispose releases the color attachment and detaches the depth attachment.
	Dispose()

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true once the target has been disposed
	Disposed() bool
}

var _ RenderTarget = &renderTarget{}

// NewRenderTarget wraps an owned color texture in a RenderTarget.
//
// Parameters:
//   - color: the color texture, which the target takes ownership of
//   - options: variadic RenderTargetBuilderOption functions
//
// Returns:
//   - RenderTarget: the new render target
func NewRenderTarget(color Texture, options ...RenderTargetBuilderOption) RenderTarget {
	rt := &renderTarget{
		id:    nextID.Add(1),
		color: color,
	}
	for _, opt := range options {
		opt(rt)
	}
	return rt
}

func (rt *renderTarget) ID() uint64 {
	return rt.id
}

func (rt *renderTarget) Label() string {
	return rt.label
}

func (rt *renderTarget) Width() int {
	return rt.color.Width()
}

func (rt *renderTarget) Height() int {
	return rt.color.Height()
}

func (rt *renderTarget) ColorTexture() Texture {
	return rt.color
}

func (rt *renderTarget) DepthTexture() Texture {
	return rt.depth
}

func (rt *renderTarget) SetDepthTexture(depth Texture) {
	rt.depth = depth
}

func (rt *renderTarget) Dispose() {
	rt.color.Dispose()
	rt.depth = nil
}

func (rt *renderTarget) Disposed() bool {
	return rt.color.Disposed()
}

// CheckTarget returns ErrDisposed if rt, its color texture or its depth attachment has been disposed.
// A nil target (the default framebuffer) passes the check.
//
// Parameters:
//   - rt: the render target to check
//
// Returns:
//   - error: nil if the target is usable
func CheckTarget(rt RenderTarget) error {
	if rt == nil {
		return nil
	}
	if rt.Disposed() {
		return fmt.Errorf("render target %q (id %d): %w", rt.Label(), rt.ID(), ErrDisposed)
	}
	return Check(rt.DepthTexture())
}

// Factory creates textures and render targets for a specific backend.
type Factory interface {
	// CreateDepthTexture allocates a 32-bit float depth texture.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	//   - label: debug label
	//
	// Returns:
	//   - Texture: the depth texture
	//   - error: an error if allocation fails
	CreateDepthTexture(width, height int, label string) (Texture, error)

	// CreateRenderTarget allocates a float RGBA color target.
	//
	// Parameters:
	//   - width: width in pixels
	//   - height: height in pixels
	//   - label: debug label
	//
	// Returns:
	//   - RenderTarget: the render target, with no depth attachment
	//   - error: an error if allocation fails
	CreateRenderTarget(width, height int, label string) (RenderTarget, error)
}
