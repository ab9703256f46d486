package texture

// TextureBuilderOption is a function that configures a texture instance during construction.
type TextureBuilderOption func(*texture)

// WithLabel is an option builder that sets the debug label of a texture.
//
// Parameters:
//   - label: the label shown in diagnostics
//
// Returns:
//   - TextureBuilderOption: a function that applies the label option to a texture
func WithLabel(label string) TextureBuilderOption {
	return func(t *texture) {
		t.label = label
	}
}

// RenderTargetBuilderOption is a function that configures a render target instance during construction.
type RenderTargetBuilderOption func(*renderTarget)

// WithTargetLabel is an option builder that sets the debug label of a render target.
//
// Parameters:
//   - label: the label shown in diagnostics
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the label option to a render target
func WithTargetLabel(label string) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.label = label
	}
}

// WithDepthAttachment is an option builder that sets the initial depth attachment of a render target.
// The target does not take ownership of the depth texture.
//
// Parameters:
//   - depth: the depth texture to attach
//
// Returns:
//   - RenderTargetBuilderOption: a function that applies the depth attachment option to a render target
func WithDepthAttachment(depth Texture) RenderTargetBuilderOption {
	return func(rt *renderTarget) {
		rt.depth = depth
	}
}
