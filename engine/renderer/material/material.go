package material

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
)

var nextMaterialID atomic.Uint64

// material is the implementation of the Material interface.
type material struct {
	id           uint64
	name         string
	color        [3]float32
	opacity      float32
	opacityScale float32
	transparent  bool
	side         pipeline.Side
	blending     pipeline.Blending
	blendSrc     pipeline.BlendFactor
	blendDst     pipeline.BlendFactor
	depthWrite   bool
	depthTest    bool
	version      uint64
}

// Material defines the interface for a shaded surface material: a Lambert-lit base color with
// uniform opacity and the fixed-function state (blending, depth, face side) used to draw it.
//
// Every material carries a version counter. Changing state that selects a different shader
// program bumps the version; renderer backends compare it against the version they last bound
// to decide whether the program has to be reselected before the next draw.
type Material interface {
	// ID retrieves the process-unique identifier of the material.
	//
	// Returns:
	//   - uint64: the material identifier
	ID() uint64

	// Name retrieves the material name.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Color retrieves the linear RGB base color.
	//
	// Returns:
	//   - [3]float32: the base color
	Color() [3]float32

	// SetColor sets the linear RGB base color.
	//
	// Parameters:
	//   - color: the new base color
	SetColor(color [3]float32)

	// Opacity retrieves the material's own opacity in [0, 1].
	//
	// Returns:
	//   - float32: the opacity
	Opacity() float32

	// SetOpacity sets the material's own opacity.
	//
	// Parameters:
	//   - opacity: the opacity in [0, 1]
	SetOpacity(opacity float32)

	// OpacityScale retrieves the per-frame multiplier applied on top of Opacity.
	//
	// Returns:
	//   - float32: the opacity scale
	OpacityScale() float32

	// SetOpacityScale sets the per-frame multiplier applied on top of Opacity.
	//
	// Parameters:
	//   - scale: the multiplier in [0, 1]
	SetOpacityScale(scale float32)

	// Alpha retrieves the alpha written by the fragment stage: Opacity * OpacityScale for
	// transparent materials, 1 otherwise.
	//
	// Returns:
	//   - float32: the output alpha
	Alpha() float32

	// Transparent reports whether the material is drawn as a transparent surface.
	//
	// Returns:
	//   - bool: true if transparent
	Transparent() bool

	// Side retrieves which triangle faces are drawn.
	//
	// Returns:
	//   - pipeline.Side: the face side
	Side() pipeline.Side

	// SetSide sets which triangle faces are drawn.
	//
	// Parameters:
	//   - side: the face side
	SetSide(side pipeline.Side)

	// Blending retrieves the blending mode.
	//
	// Returns:
	//   - pipeline.Blending: the blending mode
	Blending() pipeline.Blending

	// SetBlending sets the blending mode.
	//
	// Parameters:
	//   - blending: the blending mode
	SetBlending(blending pipeline.Blending)

	// BlendFactors retrieves the source and destination factors used by pipeline.BlendingCustom.
	//
	// Returns:
	//   - src: the source factor
	//   - dst: the destination factor
	BlendFactors() (src, dst pipeline.BlendFactor)

	// SetBlendFactors sets the source and destination factors used by pipeline.BlendingCustom.
	//
	// Parameters:
	//   - src: the source factor
	//   - dst: the destination factor
	SetBlendFactors(src, dst pipeline.BlendFactor)

	// DepthWrite reports whether drawing writes the depth attachment.
	//
	// Returns:
	//   - bool: true if depth writes are enabled
	DepthWrite() bool

	// SetDepthWrite enables or disables depth writes.
	//
	// Parameters:
	//   - enabled: the new depth write state
	SetDepthWrite(enabled bool)

	// DepthTest reports whether drawing tests against the depth attachment.
	//
	// Returns:
	//   - bool: true if depth testing is enabled
	DepthTest() bool

	// SetDepthTest enables or disables depth testing.
	//
	// Parameters:
	//   - enabled: the new depth test state
	SetDepthTest(enabled bool)

	// RenderState assembles the fixed-function state for drawing this material.
	//
	// Returns:
	//   - pipeline.RenderState: the render state
	RenderState() pipeline.RenderState

	// VariantKey retrieves the shader variant this material must be drawn with.
	// A plain material always reports VariantDisabled.
	//
	// Returns:
	//   - VariantKey: the variant key
	VariantKey() VariantKey

	// Version retrieves the program version counter.
	//
	// Returns:
	//   - uint64: the current version
	Version() uint64

	// MarkStale bumps the program version so the backend reselects the program before the next draw.
	MarkStale()
}

var _ Material = &material{}

// NewMaterial creates an opaque material configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	return newMaterial(options...)
}

func newMaterial(options ...MaterialBuilderOption) *material {
	m := &material{
		id:           nextMaterialID.Add(1),
		color:        [3]float32{1, 1, 1},
		opacity:      1,
		opacityScale: 1,
		side:         pipeline.SideFront,
		blending:     pipeline.BlendingNone,
		blendSrc:     pipeline.BlendFactorSrcAlpha,
		blendDst:     pipeline.BlendFactorOneMinusSrcAlpha,
		depthWrite:   true,
		depthTest:    true,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uint64 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Color() [3]float32 {
	return m.color
}

func (m *material) SetColor(color [3]float32) {
	m.color = color
}

func (m *material) Opacity() float32 {
	return m.opacity
}

func (m *material) SetOpacity(opacity float32) {
	m.opacity = opacity
}

func (m *material) OpacityScale() float32 {
	return m.opacityScale
}

func (m *material) SetOpacityScale(scale float32) {
	m.opacityScale = scale
}

func (m *material) Alpha() float32 {
	if !m.transparent {
		return 1
	}
	return m.opacity * m.opacityScale
}

func (m *material) Transparent() bool {
	return m.transparent
}

func (m *material) Side() pipeline.Side {
	return m.side
}

func (m *material) SetSide(side pipeline.Side) {
	m.side = side
}

func (m *material) Blending() pipeline.Blending {
	return m.blending
}

func (m *material) SetBlending(blending pipeline.Blending) {
	m.blending = blending
}

func (m *material) BlendFactors() (src, dst pipeline.BlendFactor) {
	return m.blendSrc, m.blendDst
}

func (m *material) SetBlendFactors(src, dst pipeline.BlendFactor) {
	m.blendSrc, m.blendDst = src, dst
}

func (m *material) DepthWrite() bool {
	return m.depthWrite
}

func (m *material) SetDepthWrite(enabled bool) {
	m.depthWrite = enabled
}

func (m *material) DepthTest() bool {
	return m.depthTest
}

func (m *material) SetDepthTest(enabled bool) {
	m.depthTest = enabled
}

func (m *material) RenderState() pipeline.RenderState {
	return pipeline.RenderState{
		Blending:   m.blending,
		BlendSrc:   m.blendSrc,
		BlendDst:   m.blendDst,
		DepthTest:  m.depthTest,
		DepthWrite: m.depthWrite,
		Side:       m.side,
	}
}

func (m *material) VariantKey() VariantKey {
	return VariantDisabled
}

func (m *material) Version() uint64 {
	return m.version
}

func (m *material) MarkStale() {
	m.version++
}
