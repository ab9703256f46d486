package reference

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-peel/config"
	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/light"
	"github.com/Carmen-Shannon/oxy-peel/engine/model"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/peel"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
	"github.com/mrjoshuak/go-openexr/exr"
)

const size = 40

func quadAt(z float32, m material.Material) game_object.GameObject {
	return game_object.NewGameObject(
		game_object.WithModel(model.NewQuad(2)),
		game_object.WithMaterial(m),
		game_object.WithPosition(0, 0, z),
	)
}

func glass(color [3]float32, opacity float32) material.Peelable {
	return material.NewPeelMaterial(
		material.WithTransparent(true),
		material.WithOpacity(opacity),
		material.WithColor(color),
	)
}

func pixel(img *exr.RGBAImage, x, y int) [4]float32 {
	i := (y*img.Rect.Dx() + x) * 4
	return [4]float32{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func close4(a, b [4]float32, tol float64) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > tol {
			return false
		}
	}
	return true
}

// mismatches counts the pixels of a and b that differ by more than tol in any channel.
func mismatches(a, b *exr.RGBAImage, tol float64) int {
	n := 0
	for y := 0; y < a.Rect.Dy(); y++ {
		for x := 0; x < a.Rect.Dx(); x++ {
			if !close4(pixel(a, x, y), pixel(b, x, y), tol) {
				n++
			}
		}
	}
	return n
}

func TestSortedStack(t *testing.T) {
	wall := quadAt(-2, material.NewMaterial(material.WithColor([3]float32{0, 0, 1})))
	// Submission order is front to back; the result must not depend on it.
	s := scene.NewScene("stack", camera.NewCamera(),
		scene.WithOpaqueObjects(wall),
		scene.WithTransparentObjects(
			quadAt(2, glass([3]float32{0, 1, 0}, 0.5)),
			quadAt(0, glass([3]float32{1, 0, 0}, 0.5)),
		),
		scene.WithLights(light.NewLight(light.LightTypeAmbient)),
	)

	img, err := Render(s, s.Camera(), WithSize(size, size), WithClearColor([4]float32{0.1, 0.1, 0.1, 1}))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := pixel(img, size/2, size/2), [4]float32{0.25, 0.5, 0.25, 1}; !close4(got, want, 1e-5) {
		t.Errorf("center = %v, want %v", got, want)
	}
	if got := pixel(img, 0, 0); got != [4]float32{0.1, 0.1, 0.1, 1} {
		t.Errorf("corner = %v, want the clear color", got)
	}
}

func TestTransparentBehindOpaqueIsIgnored(t *testing.T) {
	s := scene.NewScene("hidden", camera.NewCamera(),
		scene.WithOpaqueObjects(quadAt(0, material.NewMaterial())),
		scene.WithTransparentObjects(quadAt(-1, glass([3]float32{1, 0, 0}, 0.9))),
		scene.WithLights(light.NewLight(light.LightTypeAmbient)),
	)
	img, err := Render(s, s.Camera(), WithSize(size, size))
	if err != nil {
		t.Fatal(err)
	}
	if got := pixel(img, size/2, size/2); got != [4]float32{1, 1, 1, 1} {
		t.Errorf("center = %v, want the white wall", got)
	}
}

func TestHiddenGroupIsSkipped(t *testing.T) {
	s := scene.NewScene("hidden-group", camera.NewCamera(),
		scene.WithTransparentObjects(quadAt(0, glass([3]float32{1, 0, 0}, 0.5))),
		scene.WithLights(light.NewLight(light.LightTypeAmbient)),
	)
	s.TransparentGroup().SetVisible(false)
	img, err := Render(s, s.Camera(), WithSize(size, size), WithClearColor([4]float32{0, 0, 0, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if got := pixel(img, size/2, size/2); got != [4]float32{} {
		t.Errorf("center = %v, want empty", got)
	}
}

// sphereScene overlaps three transparent spheres in front of an opaque one. Drawn double
// sided, no pixel sees more than six transparent surfaces.
func sphereScene() scene.Scene {
	sphere := func(x, y, z, r float32, m material.Material) game_object.GameObject {
		return game_object.NewGameObject(
			game_object.WithModel(model.NewSphere(1, 16, 12)),
			game_object.WithMaterial(m),
			game_object.WithPosition(x, y, z),
			game_object.WithScale(r, r, r),
		)
	}
	return scene.NewScene("spheres", camera.NewCamera(camera.WithAspect(1)),
		scene.WithOpaqueObjects(sphere(0, 0, -1, 0.8, material.NewMaterial(material.WithColor([3]float32{0.9, 0.9, 0.9})))),
		scene.WithTransparentObjects(
			sphere(-0.6, 0.2, 0.5, 1, glass([3]float32{1, 0.2, 0.2}, 0.4)),
			sphere(0.6, 0.1, 0, 1.1, glass([3]float32{0.2, 1, 0.2}, 0.6)),
			sphere(0, -0.5, 1.2, 0.7, glass([3]float32{0.2, 0.2, 1}, 0.3)),
		),
		scene.WithLights(
			light.NewLight(light.LightTypeAmbient, light.WithIntensity(0.5)),
			light.NewLight(light.LightTypeDirectional, light.WithPosition(1, 2, 3), light.WithIntensity(1.5)),
		),
	)
}

func TestPeelingConvergesToReference(t *testing.T) {
	const px = 64
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, renderer.WithSize(px, px), renderer.WithWorkers(4))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Release)
	o := peel.NewOrchestrator(r, peel.WithOffscreenOutput(true))
	t.Cleanup(o.Dispose)

	s := sphereScene()
	want, err := Render(s, s.Camera(), WithSize(px, px))
	if err != nil {
		t.Fatal(err)
	}

	// Each extra layer resolves more overlap; once the layers cover the deepest pixel the
	// result is the sorted reference exactly.
	prev := px*px + 1
	for _, layers := range []int{1, 2, 4, 8, 16} {
		cfg := config.Peel{UseDepthPeeling: true, LayerCount: layers, DoubleSided: true, Opacity: 1}
		if err := o.Render(s, s.Camera(), cfg); err != nil {
			t.Fatal(err)
		}
		peeled, err := r.ReadPixels(o.Output())
		if err != nil {
			t.Fatal(err)
		}
		n := mismatches(peeled, want, 1e-3)
		switch {
		case layers >= 8 && n != 0:
			t.Errorf("%d layers: %d pixels differ from the reference, want 0", layers, n)
		case layers < 8 && (n == 0 || n >= prev):
			t.Errorf("%d layers: %d pixels differ from the reference, want fewer than %d and more than 0", layers, n, prev)
		}
		prev = n
	}
}

func TestVolumetricCompositingMatchesForHardSurfaces(t *testing.T) {
	s := sphereScene()
	for _, m := range s.TransparentGroup().Materials() {
		m.SetSide(pipeline.SideDouble)
	}
	a, err := Render(s, s.Camera(), WithSize(size, size))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Render(s, s.Camera(), WithSize(size, size), WithCompositing(exr.NewVolumetricDeepCompositing()))
	if err != nil {
		t.Fatal(err)
	}
	if n := mismatches(a, b, 1e-5); n != 0 {
		t.Errorf("%d pixels differ between default and volumetric compositing", n)
	}
}
