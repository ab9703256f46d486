package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
)

// Fragment is one shaded surface sample produced by RasterizeDeep.
type Fragment struct {
	X, Y int
	// Z is the NDC depth in [0, 1].
	Z float32
	// Color is the lit straight-alpha color.
	Color       [4]float32
	Transparent bool
	ObjectID    uint64
}

// RasterizeDeep rasterizes every drawable object of s with the software rasterizer and reports
// every covered fragment, with no depth test and no blending. Face culling follows each
// material's side and the fill rule matches DrawScene, so the fragments are exactly the ones
// the software backend would shade.
//
// Parameters:
//   - s: the scene
//   - cam: the camera
//   - width: the image width in pixels
//   - height: the image height in pixels
//   - fn: called once per fragment, objects in draw-list order
//
// Returns:
//   - error: an error if the size is invalid
func RasterizeDeep(s scene.Scene, cam camera.Camera, width, height int, fn func(f Fragment)) error {
	if s == nil || cam == nil {
		return fmt.Errorf("deep rasterization needs a scene and a camera")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}
	viewProj := cam.ViewProjectionMatrix()
	lights := s.LightEnvironment()

	for _, it := range buildDrawList(s, cam) {
		state := it.Material.RenderState()
		sh := fragmentShading{
			color:  it.Material.Color(),
			alpha:  it.Material.Alpha(),
			lights: lights,
			state:  state,
		}
		transparent := it.Material.Transparent()
		tris := setupTriangles(it, viewProj, width, height, state.Side)
		for ti := range tris {
			tri := &tris[ti]
			eachCovered(tri, 0, height, func(px, py int, l0, l1, l2 float32) {
				fn(Fragment{
					X:           px,
					Y:           py,
					Z:           tri.depthAt(l0, l1, l2),
					Color:       sh.shade(tri, l0, l1, l2),
					Transparent: transparent,
					ObjectID:    it.ObjectID,
				})
			})
		}
	}
	return nil
}
