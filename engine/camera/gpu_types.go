package camera

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-peel/common"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (80 bytes).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
type GPUCameraUniform struct {
	ViewProj [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	Position [4]float32  // offset 64: world-space camera position, w = 1 (vec4<f32>)
}

// NewGPUCameraUniform packs the uniform data of a camera.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - GPUCameraUniform: the packed uniform
func NewGPUCameraUniform(c Camera) GPUCameraUniform {
	p := c.Position()
	return GPUCameraUniform{
		ViewProj: c.ViewProjectionMatrix(),
		Position: [4]float32{p.X(), p.Y(), p.Z(), 1},
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	rest := common.PutFloat32s(buf, g.ViewProj[:]...)
	common.PutFloat32s(rest, g.Position[:]...)
	return buf
}
