package material

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-peel/common"
)

// GPUMaterialParamsSource is the canonical WGSL definition of the MaterialParams struct.
// Matches GPUMaterialParams layout exactly (32 bytes).
//
//go:embed assets/material_params.wgsl
var GPUMaterialParamsSource string

// GPUMaterialParams is the GPU-aligned uniform for the mesh fragment shader.
// Matches the WGSL MaterialParams struct layout exactly (see GPUMaterialParamsSource).
type GPUMaterialParams struct {
	Color      [4]float32 // offset 0: RGB base color + output alpha (16 bytes)
	Resolution [2]float32 // offset 16: drawing-buffer size in pixels (8 bytes)
	_          [2]float32 // offset 24: padding to 16-byte alignment (8 bytes)
}

// NewGPUMaterialParams packs the uniform data of a material.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - GPUMaterialParams: the packed uniform
func NewGPUMaterialParams(m Material) GPUMaterialParams {
	c := m.Color()
	g := GPUMaterialParams{Color: [4]float32{c[0], c[1], c[2], m.Alpha()}}
	if p, ok := AsPeelable(m); ok {
		g.Resolution = p.Resolution()
	}
	return g
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	rest := common.PutFloat32s(buf, g.Color[:]...)
	common.PutFloat32s(rest, g.Resolution[:]...)
	return buf
}
