package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ClipZeroToOne remaps OpenGL clip-space depth (-w..w) to the WebGPU convention (0..w).
// Pre-multiply a projection built by mgl32.Perspective with it so that NDC depth lands in [0, 1]
// and the far plane clears to 1.0.
var ClipZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// BuildModelMatrix composes translation, uniform-axis rotation (Y * X * Z) and scale into a model matrix.
//
// Parameters:
//   - position: translation in world space
//   - rotation: Euler angles in radians around X, Y and Z
//   - scale: scale factors along each axis
//
// Returns:
//   - mgl32.Mat4: the model matrix T * Ry * Rx * Rz * S
func BuildModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	rot := mgl32.HomogRotate3DY(rotation.Y()).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z()))
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(rot).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// HSLToRGB converts a hue/saturation/lightness triple (all in [0, 1]) to linear RGB.
//
// Parameters:
//   - h: hue, wrapped into [0, 1)
//   - s: saturation
//   - l: lightness
//
// Returns:
//   - [3]float32: the RGB color
func HSLToRGB(h, s, l float32) [3]float32 {
	h = h - float32(math.Floor(float64(h)))
	s = Clamp(s, 0, 1)
	l = Clamp(l, 0, 1)
	if s == 0 {
		return [3]float32{l, l, l}
	}
	var q float32
	if l <= 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return [3]float32{
		hueToRGB(p, q, h+1.0/3.0),
		hueToRGB(p, q, h),
		hueToRGB(p, q, h-1.0/3.0),
	}
}

func hueToRGB(p, q, t float32) float32 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*6*(2.0/3.0-t)
	}
	return p
}
