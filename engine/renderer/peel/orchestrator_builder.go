package peel

import (
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/compositor"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
)

// OrchestratorBuilderOption is a function that configures an orchestrator.
type OrchestratorBuilderOption func(*orchestrator)

// WithFactory creates the peel targets with f instead of the renderer.
//
// Parameters:
//   - f: the texture factory
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the factory option
func WithFactory(f texture.Factory) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithOffscreenOutput renders frames into the pool's composite target instead of the main
// output, so they can be read back. Allocation failures are then returned instead of falling
// back to an opaque-only frame.
//
// Parameters:
//   - enabled: whether to render offscreen
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the offscreen option
func WithOffscreenOutput(enabled bool) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.offscreen = enabled
	}
}

// WithCompositor replaces the compositor used for the opaque copy and the layer blend.
//
// Parameters:
//   - c: the compositor
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the compositor option
func WithCompositor(c compositor.Compositor) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.compositor = c
	}
}

// WithToneMapping maps frames drawn to the main output through tm. The passes then composite
// into the linear composite target, which is drawn onto the main output last. Offscreen output
// is not affected.
//
// Parameters:
//   - tm: the tone mapping curve
//
// Returns:
//   - OrchestratorBuilderOption: a function that applies the tone mapping option
func WithToneMapping(tm pipeline.ToneMapping) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.toneMap = tm
	}
}
