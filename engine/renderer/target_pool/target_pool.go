package target_pool

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
)

// ErrNotAllocated is returned when the pool is used before Allocate succeeded.
var ErrNotAllocated = errors.New("target pool: not allocated")

// pool is the implementation of the Pool interface.
type pool struct {
	factory texture.Factory

	width      int
	height     int
	layerCount int
	allocated  bool

	opaqueDepth texture.Texture
	peelDepth   [2]texture.Texture
	pingPong    *PingPong

	shared    texture.RenderTarget
	composite texture.RenderTarget
	layers    []texture.RenderTarget
}

// Pool owns every viewport-sized resource of the depth peeling pipeline: the opaque depth
// texture, the ping-pong peel depth pair, the shared and composite render targets and one
// layer target per peel pass. All resources share identical pixel dimensions.
//
// The pool is touched only from the rendering goroutine and is not safe for concurrent use.
// Callers must not keep references to targets across Resize or a shrinking SetLayerCount;
// disposed targets fail backend checks with texture.ErrDisposed.
type Pool interface {
	// Allocate creates all resources at the given size with exactly layerCount layer targets,
	// releasing anything allocated previously.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	//   - layerCount: number of layer targets (negative values are treated as 0)
	//
	// Returns:
	//   - error: an error if any allocation fails; the pool is left unallocated
	Allocate(width, height, layerCount int) error

	// Resize recreates every texture and target at the new size, preserving the layer count.
	// Resizing to the current size is a no-op.
	//
	// Parameters:
	//   - width: new width in pixels
	//   - height: new height in pixels
	//
	// Returns:
	//   - error: an error if reallocation fails
	Resize(width, height int) error

	// SetLayerCount grows the layer sequence by appending new targets or shrinks it by
	// disposing trailing targets. The first min(old, new) targets are left untouched.
	//
	// Parameters:
	//   - n: the new layer count (negative values are treated as 0)
	//
	// Returns:
	//   - allocated: number of targets created
	//   - disposed: number of targets released
	//   - err: an error if an allocation fails; targets created before the failure are kept
	SetLayerCount(n int) (allocated, disposed int, err error)

	// Width retrieves the current viewport width.
	//
	// Returns:
	//   - int: the width in pixels
	Width() int

	// Height retrieves the current viewport height.
	//
	// Returns:
	//   - int: the height in pixels
	Height() int

	// LayerCount retrieves the number of layer targets.
	//
	// Returns:
	//   - int: the layer count
	LayerCount() int

	// Allocated reports whether Allocate has succeeded and Dispose has not been called since.
	//
	// Returns:
	//   - bool: true if the pool holds live resources
	Allocated() bool

	// OpaqueDepth retrieves the depth texture written by the opaque pass.
	//
	// Returns:
	//   - texture.Texture: the opaque depth texture
	OpaqueDepth() texture.Texture

	// PingPong retrieves the peel depth pair, rewound to pass 0.
	//
	// Returns:
	//   - *PingPong: the ping-pong pair
	PingPong() *PingPong

	// SharedTarget retrieves the off-screen target the opaque pass renders into.
	//
	// Returns:
	//   - texture.RenderTarget: the shared target
	SharedTarget() texture.RenderTarget

	// CompositeTarget retrieves the off-screen target used as the main output when the
	// orchestrator composites off-screen.
	//
	// Returns:
	//   - texture.RenderTarget: the composite target
	CompositeTarget() texture.RenderTarget

	// Layer retrieves layer target i.
	//
	// Parameters:
	//   - i: the layer index, 0 <= i < LayerCount()
	//
	// Returns:
	//   - texture.RenderTarget: the layer target
	Layer(i int) texture.RenderTarget

	// Layers retrieves a copy of the layer target sequence.
	//
	// Returns:
	//   - []texture.RenderTarget: the layer targets in peel order
	Layers() []texture.RenderTarget

	// Dispose releases every resource held by the pool.
	Dispose()
}

var _ Pool = &pool{}

// NewPool creates an empty Pool that allocates through the given factory.
//
// Parameters:
//   - factory: the backend texture factory
//
// Returns:
//   - Pool: an unallocated pool
func NewPool(factory texture.Factory) Pool {
	return &pool{factory: factory}
}

func (p *pool) Allocate(width, height, layerCount int) error {
	p.Dispose()
	layerCount = max(layerCount, 0)

	p.width, p.height = width, height
	if err := p.allocateShared(); err != nil {
		p.Dispose()
		return err
	}
	p.allocated = true
	if _, _, err := p.SetLayerCount(layerCount); err != nil {
		p.Dispose()
		return err
	}
	common.Logger().Info("target pool allocated", "width", width, "height", height, "layers", layerCount)
	return nil
}

func (p *pool) Resize(width, height int) error {
	if p.allocated && width == p.width && height == p.height {
		return nil
	}
	return p.Allocate(width, height, p.layerCount)
}

func (p *pool) SetLayerCount(n int) (allocated, disposed int, err error) {
	if !p.allocated {
		return 0, 0, ErrNotAllocated
	}
	n = max(n, 0)

	for len(p.layers) > n {
		last := len(p.layers) - 1
		p.layers[last].Dispose()
		p.layers[last] = nil
		p.layers = p.layers[:last]
		disposed++
	}
	for len(p.layers) < n {
		rt, err := p.factory.CreateRenderTarget(p.width, p.height, fmt.Sprintf("peel-layer-%d", len(p.layers)))
		if err != nil {
			p.layerCount = len(p.layers)
			return allocated, disposed, fmt.Errorf("failed to create layer target %d: %w", len(p.layers), err)
		}
		p.layers = append(p.layers, rt)
		allocated++
	}
	p.layerCount = n
	if allocated > 0 || disposed > 0 {
		common.Logger().Debug("layer targets updated", "layers", n, "allocated", allocated, "disposed", disposed)
	}
	return allocated, disposed, nil
}

func (p *pool) Width() int {
	return p.width
}

func (p *pool) Height() int {
	return p.height
}

func (p *pool) LayerCount() int {
	return p.layerCount
}

func (p *pool) Allocated() bool {
	return p.allocated
}

func (p *pool) OpaqueDepth() texture.Texture {
	return p.opaqueDepth
}

func (p *pool) PingPong() *PingPong {
	if p.pingPong != nil {
		p.pingPong.Reset()
	}
	return p.pingPong
}

func (p *pool) SharedTarget() texture.RenderTarget {
	return p.shared
}

func (p *pool) CompositeTarget() texture.RenderTarget {
	return p.composite
}

func (p *pool) Layer(i int) texture.RenderTarget {
	return p.layers[i]
}

func (p *pool) Layers() []texture.RenderTarget {
	out := make([]texture.RenderTarget, len(p.layers))
	copy(out, p.layers)
	return out
}

func (p *pool) Dispose() {
	for _, rt := range p.layers {
		rt.Dispose()
	}
	p.layers = nil
	for _, rt := range []texture.RenderTarget{p.shared, p.composite} {
		if rt != nil {
			rt.Dispose()
		}
	}
	for _, t := range []texture.Texture{p.opaqueDepth, p.peelDepth[0], p.peelDepth[1]} {
		if t != nil {
			t.Dispose()
		}
	}
	p.shared, p.composite = nil, nil
	p.opaqueDepth = nil
	p.peelDepth = [2]texture.Texture{}
	p.pingPong = nil
	p.allocated = false
}

// allocateShared creates the three depth textures and the two shared targets.
func (p *pool) allocateShared() error {
	var err error
	if p.opaqueDepth, err = p.factory.CreateDepthTexture(p.width, p.height, "opaque-depth"); err != nil {
		return fmt.Errorf("failed to create opaque depth texture: %w", err)
	}
	for i := range p.peelDepth {
		if p.peelDepth[i], err = p.factory.CreateDepthTexture(p.width, p.height, fmt.Sprintf("peel-depth-%d", i)); err != nil {
			return fmt.Errorf("failed to create peel depth texture %d: %w", i, err)
		}
	}
	p.pingPong = NewPingPong(p.peelDepth[0], p.peelDepth[1])

	if p.shared, err = p.factory.CreateRenderTarget(p.width, p.height, "peel-shared"); err != nil {
		return fmt.Errorf("failed to create shared target: %w", err)
	}
	if p.composite, err = p.factory.CreateRenderTarget(p.width, p.height, "peel-composite"); err != nil {
		return fmt.Errorf("failed to create composite target: %w", err)
	}
	return nil
}
