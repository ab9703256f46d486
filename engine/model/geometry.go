package model

import "math"

// NewSphere builds a UV sphere centered at the origin.
//
// Parameters:
//   - radius: the sphere radius
//   - widthSegments: segments around the equator, at least 3
//   - heightSegments: segments from pole to pole, at least 2
//
// Returns:
//   - Model: the sphere mesh
func NewSphere(radius float32, widthSegments, heightSegments int) Model {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)

	vertices := make([]GPUVertex, 0, (widthSegments+1)*(heightSegments+1))
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		theta := v * math.Pi
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			phi := u * 2 * math.Pi
			nx := float32(-math.Cos(phi) * math.Sin(theta))
			ny := float32(math.Cos(theta))
			nz := float32(math.Sin(phi) * math.Sin(theta))
			vertices = append(vertices, GPUVertex{
				Position: [3]float32{radius * nx, radius * ny, radius * nz},
				Normal:   [3]float32{nx, ny, nz},
			})
		}
	}

	row := uint32(widthSegments + 1)
	var indices []uint32
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(iy)*row + uint32(ix) + 1
			b := uint32(iy)*row + uint32(ix)
			c := uint32(iy+1)*row + uint32(ix)
			d := uint32(iy+1)*row + uint32(ix) + 1
			// pole rows collapse to one triangle
			if iy != 0 {
				indices = append(indices, a, b, d)
			}
			if iy != heightSegments-1 {
				indices = append(indices, b, c, d)
			}
		}
	}

	return NewModel(WithName("sphere"), WithGeometry(vertices, indices), WithBoundingRadius(radius))
}

// NewQuad builds a unit quad in the XY plane facing +Z.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Model: the quad mesh
func NewQuad(size float32) Model {
	h := size / 2
	n := [3]float32{0, 0, 1}
	vertices := []GPUVertex{
		{Position: [3]float32{-h, -h, 0}, Normal: n},
		{Position: [3]float32{h, -h, 0}, Normal: n},
		{Position: [3]float32{h, h, 0}, Normal: n},
		{Position: [3]float32{-h, h, 0}, Normal: n},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return NewModel(WithName("quad"), WithGeometry(vertices, indices))
}
