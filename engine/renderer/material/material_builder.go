package material

import "github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithColor is an option builder that sets the linear RGB base color of the material.
//
// Parameters:
//   - color: the base color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the color option to a material
func WithColor(color [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.color = color
	}
}

// WithOpacity is an option builder that sets the opacity of the material.
//
// Parameters:
//   - opacity: the opacity in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the opacity option to a material
func WithOpacity(opacity float32) MaterialBuilderOption {
	return func(m *material) {
		m.opacity = opacity
	}
}

// WithTransparent is an option builder that marks the material as transparent. Transparent
// materials default to normal blending with depth writes disabled.
//
// Parameters:
//   - transparent: whether the material is transparent
//
// Returns:
//   - MaterialBuilderOption: a function that applies the transparent option to a material
func WithTransparent(transparent bool) MaterialBuilderOption {
	return func(m *material) {
		m.transparent = transparent
		if transparent {
			m.blending = pipeline.BlendingNormal
			m.depthWrite = false
		}
	}
}

// WithSide is an option builder that sets which faces of the material are drawn.
//
// Parameters:
//   - side: the face side
//
// Returns:
//   - MaterialBuilderOption: a function that applies the side option to a material
func WithSide(side pipeline.Side) MaterialBuilderOption {
	return func(m *material) {
		m.side = side
	}
}

// WithDepthWrite is an option builder that sets the depth write state of the material.
// Apply it after WithTransparent to override the transparent default.
//
// Parameters:
//   - enabled: whether depth writes are enabled
//
// Returns:
//   - MaterialBuilderOption: a function that applies the depth write option to a material
func WithDepthWrite(enabled bool) MaterialBuilderOption {
	return func(m *material) {
		m.depthWrite = enabled
	}
}
