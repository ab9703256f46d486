package model

import (
	"encoding/binary"
	"sync/atomic"
)

var modelIDs atomic.Uint64

// model is the implementation of the Model interface.
type model struct {
	id             uint64
	name           string
	vertices       []GPUVertex
	indices        []uint32
	boundingRadius float32
	handle         any
}

// Model defines the interface for an indexed triangle mesh.
// A Model holds CPU-side vertex and index data; GPU backends attach their buffers through Handle.
type Model interface {
	// ID returns the process-unique identifier of the model.
	//
	// Returns:
	//   - uint64: the identifier
	ID() uint64

	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Vertices returns the mesh vertices.
	//
	// Returns:
	//   - []GPUVertex: the vertices
	Vertices() []GPUVertex

	// Indices returns the triangle list indices, three per triangle, counter-clockwise front faces.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// VertexData returns the raw vertex data for this model's mesh.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the raw index data for this model's mesh.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// IndexCount returns the number of indices in the model's mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// BoundingRadius returns the bounding sphere radius for this model, measured as
	// the maximum vertex distance from the origin. Used by frustum culling.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Handle returns the backend resource attached to the model, or nil.
	//
	// Returns:
	//   - any: the backend handle
	Handle() any

	// SetHandle attaches a backend resource to the model.
	//
	// Parameters:
	//   - handle: the backend handle
	SetHandle(handle any)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// When no bounding radius is provided it is computed from the vertices.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{id: modelIDs.Add(1)}
	for _, opt := range options {
		opt(m)
	}
	if m.boundingRadius == 0 {
		m.boundingRadius = ComputeBoundingRadius(m.vertices)
	}
	return m
}

func (m *model) ID() uint64 {
	return m.id
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Vertices() []GPUVertex {
	return m.vertices
}

func (m *model) Indices() []uint32 {
	return m.indices
}

func (m *model) VertexData() []byte {
	buf := make([]byte, 0, len(m.vertices)*24)
	for i := range m.vertices {
		buf = append(buf, m.vertices[i].Marshal()...)
	}
	return buf
}

func (m *model) IndexData() []byte {
	buf := make([]byte, len(m.indices)*4)
	for i, idx := range m.indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

func (m *model) IndexCount() int {
	return len(m.indices)
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) Handle() any {
	return m.handle
}

func (m *model) SetHandle(handle any) {
	m.handle = handle
}
