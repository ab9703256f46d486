package pipeline

import "fmt"

// Blending selects how fragment color is combined with the render target.
type Blending int

const (
	// BlendingNone overwrites the destination.
	BlendingNone Blending = iota
	// BlendingNormal is straight (non-premultiplied) source-over:
	// rgb = src.rgb*src.a + dst.rgb*(1-src.a), a = src.a + dst.a*(1-src.a).
	BlendingNormal
	// BlendingCustom uses the BlendSrc and BlendDst factors for both color and alpha with an add operation.
	BlendingCustom
)

func (b Blending) String() string {
	switch b {
	case BlendingNone:
		return "none"
	case BlendingNormal:
		return "normal"
	case BlendingCustom:
		return "custom"
	}
	return fmt.Sprintf("Blending(%d)", int(b))
}

// BlendFactor is a multiplier applied to the source or destination term of the blend equation.
type BlendFactor int

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
)

func (f BlendFactor) String() string {
	switch f {
	case BlendFactorZero:
		return "zero"
	case BlendFactorOne:
		return "one"
	case BlendFactorSrcAlpha:
		return "src-alpha"
	case BlendFactorOneMinusSrcAlpha:
		return "one-minus-src-alpha"
	}
	return fmt.Sprintf("BlendFactor(%d)", int(f))
}

// Side selects which triangle faces are rasterized.
type Side int

const (
	// SideFront draws counter-clockwise (front) faces only.
	SideFront Side = iota
	// SideBack draws clockwise (back) faces only.
	SideBack
	// SideDouble draws both faces.
	SideDouble
)

func (s Side) String() string {
	switch s {
	case SideFront:
		return "front"
	case SideBack:
		return "back"
	case SideDouble:
		return "double"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// ToneMapping maps linear color into display range. It only applies to fullscreen quads.
type ToneMapping int

const (
	// ToneMappingNone passes color through unchanged.
	ToneMappingNone ToneMapping = iota
	// ToneMappingACESFilmic is the RRT and ODT curve fit with exposure 1, the curve the WGSL
	// quad shader evaluates under TONE_MAPPING.
	ToneMappingACESFilmic
)

func (t ToneMapping) String() string {
	switch t {
	case ToneMappingNone:
		return "none"
	case ToneMappingACESFilmic:
		return "aces-filmic"
	}
	return fmt.Sprintf("ToneMapping(%d)", int(t))
}

// Apply maps one linear RGB color. Alpha is left to the caller.
//
// Parameters:
//   - rgb: the linear color
//
// Returns:
//   - [3]float32: the mapped color, in [0, 1] for ToneMappingACESFilmic
func (t ToneMapping) Apply(rgb [3]float32) [3]float32 {
	if t != ToneMappingACESFilmic {
		return rgb
	}
	r, g, b := rgb[0]/0.6, rgb[1]/0.6, rgb[2]/0.6
	in := [3]float32{
		0.59719*r + 0.35458*g + 0.04823*b,
		0.07600*r + 0.90834*g + 0.01566*b,
		0.02840*r + 0.13383*g + 0.83777*b,
	}
	for i, v := range in {
		in[i] = (v*(v+0.0245786) - 0.000090537) / (v*(0.983729*v+0.4329510) + 0.238081)
	}
	out := [3]float32{
		1.60475*in[0] - 0.53108*in[1] - 0.07367*in[2],
		-0.10208*in[0] + 1.10813*in[1] - 0.00605*in[2],
		-0.00327*in[0] - 0.07276*in[1] + 1.07602*in[2],
	}
	for i, v := range out {
		out[i] = min(max(v, 0), 1)
	}
	return out
}

// BlendComponent is a resolved src*SrcFactor + dst*DstFactor equation for one channel group.
type BlendComponent struct {
	SrcFactor BlendFactor
	DstFactor BlendFactor
}

// Apply evaluates the component for one channel.
//
// Parameters:
//   - src: the fragment value
//   - dst: the stored value
//   - srcAlpha: the fragment alpha used by the alpha-dependent factors
//
// Returns:
//   - float32: the blended value
func (c BlendComponent) Apply(src, dst, srcAlpha float32) float32 {
	return src*factor(c.SrcFactor, srcAlpha) + dst*factor(c.DstFactor, srcAlpha)
}

func factor(f BlendFactor, srcAlpha float32) float32 {
	switch f {
	case BlendFactorOne:
		return 1
	case BlendFactorSrcAlpha:
		return srcAlpha
	case BlendFactorOneMinusSrcAlpha:
		return 1 - srcAlpha
	}
	return 0
}

// RenderState is the fixed-function state of one draw: blending, depth and face culling.
// ToneMapping is read by fullscreen quads only.
type RenderState struct {
	Blending    Blending
	BlendSrc    BlendFactor
	BlendDst    BlendFactor
	DepthTest   bool
	DepthWrite  bool
	Side        Side
	ToneMapping ToneMapping
}

// Enabled reports whether the state blends at all.
//
// Returns:
//   - bool: false for BlendingNone
func (s RenderState) Enabled() bool {
	return s.Blending != BlendingNone
}

// Equation resolves the blending mode into color and alpha components.
//
// Returns:
//   - color: the RGB component
//   - alpha: the alpha component
func (s RenderState) Equation() (color, alpha BlendComponent) {
	switch s.Blending {
	case BlendingNormal:
		return BlendComponent{BlendFactorSrcAlpha, BlendFactorOneMinusSrcAlpha},
			BlendComponent{BlendFactorOne, BlendFactorOneMinusSrcAlpha}
	case BlendingCustom:
		c := BlendComponent{s.BlendSrc, s.BlendDst}
		return c, c
	}
	return BlendComponent{BlendFactorOne, BlendFactorZero}, BlendComponent{BlendFactorOne, BlendFactorZero}
}

// Key returns a compact string identifying the state, used for pipeline caching.
//
// Returns:
//   - string: the state key
func (s RenderState) Key() string {
	color, alpha := s.Equation()
	return fmt.Sprintf("b%d%d%d%d%d_d%t%t_s%d_t%d",
		s.Blending, color.SrcFactor, color.DstFactor, alpha.SrcFactor, alpha.DstFactor,
		s.DepthTest, s.DepthWrite, s.Side, s.ToneMapping)
}

// Overwrite is the state for copying a texture with no blending and no depth.
func Overwrite() RenderState {
	return RenderState{Blending: BlendingNone}
}

// Present is the state for copying a linear texture to the display with tone mapping.
func Present(t ToneMapping) RenderState {
	return RenderState{Blending: BlendingNone, ToneMapping: t}
}

// Over is the state for straight source-over compositing with no depth.
func Over() RenderState {
	return RenderState{Blending: BlendingNormal}
}
