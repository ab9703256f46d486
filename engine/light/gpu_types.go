package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxDirectionalLights is the number of directional lights the shading model evaluates.
// Additional enabled directional lights are ignored.
const MaxDirectionalLights = 4

// GPULightsSource is the canonical WGSL definition of the Lights and DirectionalLight structs.
// Matches GPULights layout exactly (160 bytes).
//
//go:embed assets/lights.wgsl
var GPULightsSource string

// GPUDirectionalLight is one entry of the directional light array.
type GPUDirectionalLight struct {
	Direction [4]float32 // offset 0: normalized direction towards the light, w unused
	Color     [4]float32 // offset 16: rgb * intensity, w unused
}

// GPULights is the GPU-aligned light environment uniform.
type GPULights struct {
	Ambient     [4]float32                                // offset 0: summed ambient rgb * intensity
	Count       [4]uint32                                 // offset 16: x = directional light count
	Directional [MaxDirectionalLights]GPUDirectionalLight // offset 32
}

// Environment is the flattened lighting used by the shading model: one ambient term plus up to
// MaxDirectionalLights directional terms.
type Environment struct {
	Ambient     mgl32.Vec3
	Directional []Directional
}

// Directional is a resolved directional light: direction towards the light and premultiplied radiance.
type Directional struct {
	ToLight  mgl32.Vec3
	Radiance mgl32.Vec3
}

// NewEnvironment flattens a set of lights. Disabled lights are skipped.
//
// Parameters:
//   - lights: the scene lights
//
// Returns:
//   - Environment: the flattened environment
func NewEnvironment(lights []Light) Environment {
	var env Environment
	for _, l := range lights {
		if !l.Enabled() {
			continue
		}
		radiance := l.Color().Mul(l.Intensity())
		switch l.Type() {
		case LightTypeAmbient:
			env.Ambient = env.Ambient.Add(radiance)
		case LightTypeDirectional:
			if len(env.Directional) < MaxDirectionalLights {
				env.Directional = append(env.Directional, Directional{ToLight: l.ToLight(), Radiance: radiance})
			}
		}
	}
	return env
}

// Lambert evaluates the diffuse lighting for a surface normal.
//
// Parameters:
//   - n: the unit surface normal facing the viewer side being shaded
//
// Returns:
//   - mgl32.Vec3: the incoming irradiance to multiply with the base color
func (e Environment) Lambert(n mgl32.Vec3) mgl32.Vec3 {
	out := e.Ambient
	for _, d := range e.Directional {
		ndl := n.Dot(d.ToLight)
		if ndl > 0 {
			out = out.Add(d.Radiance.Mul(ndl))
		}
	}
	return out
}

// GPU packs the environment into its uniform layout.
//
// Returns:
//   - GPULights: the packed uniform
func (e Environment) GPU() GPULights {
	g := GPULights{
		Ambient: [4]float32{e.Ambient.X(), e.Ambient.Y(), e.Ambient.Z(), 1},
		Count:   [4]uint32{uint32(len(e.Directional))},
	}
	for i, d := range e.Directional {
		g.Directional[i] = GPUDirectionalLight{
			Direction: [4]float32{d.ToLight.X(), d.ToLight.Y(), d.ToLight.Z(), 0},
			Color:     [4]float32{d.Radiance.X(), d.Radiance.Y(), d.Radiance.Z(), 0},
		}
	}
	return g
}

// Size returns the size of the GPULights struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (g *GPULights) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULights struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPULights) Marshal() []byte {
	buf := make([]byte, g.Size())
	put := func(off int, v [4]float32) {
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[off+i*4:], math.Float32bits(f))
		}
	}
	put(0, g.Ambient)
	for i, c := range g.Count {
		binary.LittleEndian.PutUint32(buf[16+i*4:], c)
	}
	for i, d := range g.Directional {
		put(32+i*32, d.Direction)
		put(48+i*32, d.Color)
	}
	return buf
}
