package texture

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrDisposed is returned by backends when a draw references a texture or render target
// that has already been disposed. Referencing a disposed resource is a caller bug.
var ErrDisposed = errors.New("texture: resource used after dispose")

// Kind distinguishes color textures from depth textures.
type Kind int

const (
	// KindColor is a four-channel floating-point color texture.
	KindColor Kind = iota
	// KindDepth is a single-channel 32-bit float depth texture.
	KindDepth
)

func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindDepth:
		return "depth"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var nextID atomic.Uint64

// texture is the implementation of the Texture interface.
type texture struct {
	id       uint64
	label    string
	kind     Kind
	width    int
	height   int
	handle   any
	release  func()
	disposed bool
}

// Texture is a backend-owned image resource. The backend that created it stores its native
// resource in Handle; everything above the backend only deals with identity, size and lifetime.
type Texture interface {
	// ID retrieves the process-unique identifier of the texture. IDs are never reused.
	//
	// Returns:
	//   - uint64: the texture identifier
	ID() uint64

	// Label retrieves the debug label of the texture.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Kind retrieves whether the texture holds color or depth data.
	//
	// Returns:
	//   - Kind: the texture kind
	Kind() Kind

	// Width retrieves the width of the texture in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height retrieves the height of the texture in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// Handle retrieves the backend-specific resource backing this texture.
	//
	// Returns:
	//   - any: the native handle
	Handle() any

	// Dispose releases the backend resource. Calling Dispose more than once is a no-op.
	Dispose()

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true once the texture has been disposed
	Disposed() bool
}

var _ Texture = &texture{}

// NewTexture wraps a backend resource in a Texture.
//
// Parameters:
//   - kind: color or depth
//   - width: width in pixels
//   - height: height in pixels
//   - handle: the backend-native resource
//   - release: called once on Dispose to free the native resource (may be nil)
//   - options: variadic TextureBuilderOption functions
//
// Returns:
//   - Texture: the new texture
func NewTexture(kind Kind, width, height int, handle any, release func(), options ...TextureBuilderOption) Texture {
	t := &texture{
		id:      nextID.Add(1),
		kind:    kind,
		width:   width,
		height:  height,
		handle:  handle,
		release: release,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *texture) ID() uint64 {
	return t.id
}

func (t *texture) Label() string {
	return t.label
}

func (t *texture) Kind() Kind {
	return t.kind
}

func (t *texture) Width() int {
	return t.width
}

func (t *texture) Height() int {
	return t.height
}

func (t *texture) Handle() any {
	return t.handle
}

func (t *texture) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	if t.release != nil {
		t.release()
	}
	t.handle = nil
}

func (t *texture) Disposed() bool {
	return t.disposed
}

// Check returns ErrDisposed wrapped with the texture label if t has been disposed.
// A nil texture passes the check.
//
// Parameters:
//   - t: the texture to check
//
// Returns:
//   - error: nil if the texture is usable
func Check(t Texture) error {
	if t == nil || !t.Disposed() {
		return nil
	}
	return fmt.Errorf("%s texture %q (id %d): %w", t.Kind(), t.Label(), t.ID(), ErrDisposed)
}
