package shader

import "maps"

// ShaderBuilderOption is a functional option for configuring a Shader via NewShader.
type ShaderBuilderOption func(*shader)

// WithDefines sets the flags consulted by @oxy:if blocks.
//
// Parameters:
//   - defines: flag values; missing flags are false
//
// Returns:
//   - ShaderBuilderOption: a function that applies the defines to a shader
func WithDefines(defines map[string]bool) ShaderBuilderOption {
	return func(s *shader) {
		s.defines = maps.Clone(defines)
	}
}
