package pipeline

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithColorFormat sets the color attachment format name the pipeline renders into.
//
// Parameters:
//   - format: the backend format name, e.g. "rgba16float"
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color format for this pipeline
func WithColorFormat(format string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = format
	}
}

// WithHandle sets an already created backend-native pipeline object.
//
// Parameters:
//   - h: the native pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the handle for this pipeline
func WithHandle(h any) PipelineBuilderOption {
	return func(p *pipeline) {
		p.handle = h
	}
}
