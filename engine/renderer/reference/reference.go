// Package reference renders exact order-independent transparency on the CPU. Every
// transparent fragment in front of the nearest opaque surface is kept per pixel, sorted by
// depth and composited with the OpenEXR deep compositing rules. The result is the ground truth
// depth peeling converges to as the layer count grows.
package reference

import (
	"image"

	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
	"github.com/mrjoshuak/go-openexr/exr"
)

type reference struct {
	width      int
	height     int
	clearColor [4]float32
	compositor exr.DeepCompositing
}

// pixelSamples is the deep pixel of one output pixel: the nearest opaque fragment and the
// transparent fragments in front of it.
type pixelSamples struct {
	opaqueZ     float32
	opaque      [4]float32
	hasOpaque   bool
	transparent []exr.DeepSample
}

// Render draws s seen from cam with exact sorted transparency.
//
// Parameters:
//   - s: the scene; only visible groups and enabled objects are drawn
//   - cam: the camera
//   - options: variadic ReferenceBuilderOption functions
//
// Returns:
//   - *exr.RGBAImage: the straight-alpha image, row 0 at the top
//   - error: an error if the scene could not be rasterized
func Render(s scene.Scene, cam camera.Camera, options ...ReferenceBuilderOption) (*exr.RGBAImage, error) {
	ref := &reference{
		width:      800,
		height:     600,
		clearColor: [4]float32{0, 0, 0, 1},
		compositor: exr.NewDefaultDeepCompositing(),
	}
	for _, opt := range options {
		opt(ref)
	}

	pixels := make([]pixelSamples, ref.width*ref.height)
	for i := range pixels {
		pixels[i].opaqueZ = 1
	}

	var transparent []renderer.Fragment
	err := renderer.RasterizeDeep(s, cam, ref.width, ref.height, func(f renderer.Fragment) {
		if f.Transparent {
			transparent = append(transparent, f)
			return
		}
		p := &pixels[f.Y*ref.width+f.X]
		if f.Z < p.opaqueZ {
			p.opaqueZ, p.opaque, p.hasOpaque = f.Z, f.Color, true
		}
	})
	if err != nil {
		return nil, err
	}

	// A transparent fragment survives when it is not behind the opaque surface.
	for _, f := range transparent {
		p := &pixels[f.Y*ref.width+f.X]
		if f.Z > p.opaqueZ {
			continue
		}
		a := f.Color[3]
		p.transparent = append(p.transparent, exr.DeepSample{
			Z:     f.Z,
			ZBack: f.Z,
			A:     a,
			R:     f.Color[0] * a,
			G:     f.Color[1] * a,
			B:     f.Color[2] * a,
		})
	}

	img := exr.NewRGBAImage(image.Rect(0, 0, ref.width, ref.height))
	for i := range pixels {
		p := &pixels[i]
		under := ref.clearColor
		if p.hasOpaque {
			under = p.opaque
		}
		ref.compositor.SortPixel(p.transparent)
		r, g, b, a := ref.compositor.CompositePixel(p.transparent)
		k := 1 - a
		copy(img.Pix[i*4:i*4+4], []float32{
			r + k*under[0],
			g + k*under[1],
			b + k*under[2],
			a + k*under[3],
		})
	}
	return img, nil
}
