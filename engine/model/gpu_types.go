package model

import (
	_ "embed"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertexSource is the WGSL VertexInput struct matching GPUVertex.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is one interleaved mesh vertex as uploaded to the vertex buffer.
type GPUVertex struct {
	Position [3]float32
	Normal   [3]float32
}

func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal packs the vertex as six little-endian floats.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, g.Size())
	rest := common.PutFloat32s(buf, g.Position[:]...)
	common.PutFloat32s(rest, g.Normal[:]...)
	return buf
}

// ComputeBoundingRadius returns the largest distance of any vertex from the model origin.
//
// Parameters:
//   - vertices: the mesh vertices
//
// Returns:
//   - float32: the bounding sphere radius around the origin
func ComputeBoundingRadius(vertices []GPUVertex) float32 {
	var r2 float32
	for _, v := range vertices {
		r2 = max(r2, mgl32.Vec3(v.Position).LenSqr())
	}
	return float32(math.Sqrt(float64(r2)))
}

// GPUModelDataSource is the WGSL ModelData struct matching GPUModelData.
//
//go:embed assets/model_data.wgsl
var GPUModelDataSource string

// GPUModelData holds one object's transforms: the model matrix at offset 0 and its normal
// matrix at offset 64.
type GPUModelData struct {
	Model  [16]float32
	Normal [16]float32
}

// NewGPUModelData packs a model matrix and its normal matrix.
//
// Parameters:
//   - m: the model-to-world matrix
//
// Returns:
//   - GPUModelData: the packed transforms
func NewGPUModelData(m mgl32.Mat4) GPUModelData {
	return GPUModelData{Model: m, Normal: NormalMatrix(m)}
}

// NormalMatrix returns the inverse-transpose of m, or m itself when it is singular.
func NormalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	if m.Det() == 0 {
		return m
	}
	return m.Inv().Transpose()
}

func (g *GPUModelData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal packs both matrices column-major for upload.
func (g *GPUModelData) Marshal() []byte {
	buf := make([]byte, g.Size())
	rest := common.PutFloat32s(buf, g.Model[:]...)
	common.PutFloat32s(rest, g.Normal[:]...)
	return buf
}
