package material

import (
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
)

// PeelCapability is the depth peeling state held alongside a base material: the enabled flag,
// the opaque and near depth references and the drawing-buffer resolution used to turn the
// fragment position into a screen coordinate.
//
// Changing the enabled flag, or changing whether a near reference is bound, invokes onStale so
// the owning material's program is reselected. Swapping one bound near texture for another only
// changes the binding.
type PeelCapability struct {
	enabled     bool
	nearDepth   texture.Texture
	opaqueDepth texture.Texture
	resolution  [2]float32
	onStale     func()
}

// NewPeelCapability creates a disabled capability that reports variant changes through onStale.
//
// Parameters:
//   - onStale: called whenever the variant-affecting state changes (may be nil)
//
// Returns:
//   - *PeelCapability: the capability
func NewPeelCapability(onStale func()) *PeelCapability {
	return &PeelCapability{onStale: onStale}
}

// EnablePeeling turns the peel test on or off. Setting the current value again is a no-op.
//
// Parameters:
//   - enabled: the new state
func (c *PeelCapability) EnablePeeling(enabled bool) {
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	c.stale()
}

// PeelingEnabled reports whether the peel test is on.
//
// Returns:
//   - bool: the enabled flag
func (c *PeelCapability) PeelingEnabled() bool {
	return c.enabled
}

// SetNearDepth binds the depth of the previously peeled layer, or nil for the first pass.
//
// Parameters:
//   - t: the near depth texture, or nil
func (c *PeelCapability) SetNearDepth(t texture.Texture) {
	wasNil := c.nearDepth == nil
	c.nearDepth = t
	if wasNil != (t == nil) {
		c.stale()
	}
}

// NearDepth retrieves the near depth reference.
//
// Returns:
//   - texture.Texture: the near depth texture, or nil
func (c *PeelCapability) NearDepth() texture.Texture {
	return c.nearDepth
}

// SetOpaqueDepth binds the depth written by the opaque pass.
//
// Parameters:
//   - t: the opaque depth texture, or nil
func (c *PeelCapability) SetOpaqueDepth(t texture.Texture) {
	c.opaqueDepth = t
}

// OpaqueDepth retrieves the opaque depth reference.
//
// Returns:
//   - texture.Texture: the opaque depth texture, or nil
func (c *PeelCapability) OpaqueDepth() texture.Texture {
	return c.opaqueDepth
}

// Resolution retrieves the drawing-buffer size used to compute screen coordinates.
//
// Returns:
//   - [2]float32: width and height in pixels
func (c *PeelCapability) Resolution() [2]float32 {
	return c.resolution
}

// SetResolution sets the drawing-buffer size used to compute screen coordinates.
//
// Parameters:
//   - r: width and height in pixels
func (c *PeelCapability) SetResolution(r [2]float32) {
	c.resolution = r
}

// VariantKey derives the program variant. Disabled capabilities always map to VariantDisabled.
//
// Returns:
//   - VariantKey: the variant key
func (c *PeelCapability) VariantKey() VariantKey {
	if !c.enabled {
		return VariantDisabled
	}
	return VariantKey{Enabled: true, NearIsNil: c.nearDepth == nil}
}

func (c *PeelCapability) stale() {
	if c.onStale != nil {
		c.onStale()
	}
}

// Peelable is a Material that carries a PeelCapability. Backends and the orchestrator detect it
// with a type assertion.
type Peelable interface {
	Material

	// Peel retrieves the peeling capability of the material.
	//
	// Returns:
	//   - *PeelCapability: the capability
	Peel() *PeelCapability

	// EnablePeeling turns the peel test on or off.
	//
	// Parameters:
	//   - enabled: the new state
	EnablePeeling(enabled bool)

	// SetNearDepth binds the near depth reference.
	//
	// Parameters:
	//   - t: the near depth texture, or nil
	SetNearDepth(t texture.Texture)

	// SetOpaqueDepth binds the opaque depth reference.
	//
	// Parameters:
	//   - t: the opaque depth texture, or nil
	SetOpaqueDepth(t texture.Texture)

	// Resolution retrieves the drawing-buffer size.
	//
	// Returns:
	//   - [2]float32: width and height in pixels
	Resolution() [2]float32

	// SetResolution sets the drawing-buffer size.
	//
	// Parameters:
	//   - r: width and height in pixels
	SetResolution(r [2]float32)
}

// peelMaterial composes a base material with a PeelCapability.
type peelMaterial struct {
	*material
	peel *PeelCapability
}

var _ Peelable = &peelMaterial{}

// NewPeelMaterial creates a material with depth peeling capability. Peeling starts disabled,
// so the material draws like the equivalent plain material until EnablePeeling(true).
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the base material
//
// Returns:
//   - Peelable: the new material
func NewPeelMaterial(options ...MaterialBuilderOption) Peelable {
	m := &peelMaterial{material: newMaterial(options...)}
	m.peel = NewPeelCapability(m.material.MarkStale)
	return m
}

// AsPeelable reports whether m carries peeling capability.
//
// Parameters:
//   - m: the material to check (may be nil)
//
// Returns:
//   - Peelable: the material as a Peelable
//   - bool: true if m supports peeling
func AsPeelable(m Material) (Peelable, bool) {
	if m == nil {
		return nil, false
	}
	p, ok := m.(Peelable)
	return p, ok
}

func (m *peelMaterial) Peel() *PeelCapability {
	return m.peel
}

func (m *peelMaterial) EnablePeeling(enabled bool) {
	m.peel.EnablePeeling(enabled)
}

func (m *peelMaterial) SetNearDepth(t texture.Texture) {
	m.peel.SetNearDepth(t)
}

func (m *peelMaterial) SetOpaqueDepth(t texture.Texture) {
	m.peel.SetOpaqueDepth(t)
}

func (m *peelMaterial) Resolution() [2]float32 {
	return m.peel.Resolution()
}

func (m *peelMaterial) SetResolution(r [2]float32) {
	m.peel.SetResolution(r)
}

func (m *peelMaterial) VariantKey() VariantKey {
	return m.peel.VariantKey()
}
