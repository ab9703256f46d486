package pipeline

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineKey string
	variantKey  string
	state       RenderState
	colorFormat string
	handle      any
}

// Pipeline pairs a shader variant with the fixed-function state it is drawn with.
// Backends create the native pipeline object lazily and store it through SetHandle.
type Pipeline interface {
	// PipelineKey retrieves the unique key of this pipeline, derived from its variant,
	// render state and color format.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// VariantKey retrieves the shader variant key the pipeline was built for.
	//
	// Returns:
	//   - string: the variant key
	VariantKey() string

	// State retrieves the fixed-function state of the pipeline.
	//
	// Returns:
	//   - RenderState: the render state
	State() RenderState

	// ColorFormat retrieves the color attachment format the pipeline targets.
	//
	// Returns:
	//   - string: the backend format name
	ColorFormat() string

	// Handle retrieves the backend-native pipeline object, or nil if not yet created.
	//
	// Returns:
	//   - any: the native pipeline
	Handle() any

	// SetHandle stores the backend-native pipeline object.
	//
	// Parameters:
	//   - h: the native pipeline
	SetHandle(h any)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline description.
//
// Parameters:
//   - variantKey: the shader variant key
//   - state: the fixed-function state
//   - opts: variadic PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the pipeline description
func NewPipeline(variantKey string, state RenderState, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		variantKey: variantKey,
		state:      state,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pipelineKey = Key(variantKey, state, p.colorFormat)
	return p
}

// Key builds the pipeline cache key for a variant, state and color format.
//
// Parameters:
//   - variantKey: the shader variant key
//   - state: the fixed-function state
//   - colorFormat: the color attachment format name
//
// Returns:
//   - string: the pipeline key
func Key(variantKey string, state RenderState, colorFormat string) string {
	return variantKey + "/" + state.Key() + "/" + colorFormat
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) VariantKey() string {
	return p.variantKey
}

func (p *pipeline) State() RenderState {
	return p.state
}

func (p *pipeline) ColorFormat() string {
	return p.colorFormat
}

func (p *pipeline) Handle() any {
	return p.handle
}

func (p *pipeline) SetHandle(h any) {
	p.handle = h
}
