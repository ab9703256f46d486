package renderer

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/game_object"
	"github.com/Carmen-Shannon/oxy-peel/engine/light"
	"github.com/Carmen-Shannon/oxy-peel/engine/model"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-peel/engine/scene"
	"github.com/mrjoshuak/go-openexr/exr"
)

const testSize = 32

func newTestRenderer(t *testing.T) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeSoftware, WithSize(testSize, testSize), WithWorkers(3))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func newTarget(t *testing.T, r Renderer, depth bool) texture.RenderTarget {
	t.Helper()
	rt, err := r.CreateRenderTarget(testSize, testSize, "test")
	if err != nil {
		t.Fatalf("CreateRenderTarget: %v", err)
	}
	if depth {
		d, err := r.CreateDepthTexture(testSize, testSize, "test-depth")
		if err != nil {
			t.Fatalf("CreateDepthTexture: %v", err)
		}
		rt.SetDepthTexture(d)
	}
	return rt
}

// quadAt places a 2x2 quad facing the default camera at depth z.
func quadAt(z float32, m material.Material) game_object.GameObject {
	return game_object.NewGameObject(
		game_object.WithModel(model.NewQuad(2)),
		game_object.WithMaterial(m),
		game_object.WithPosition(0, 0, z),
	)
}

func ambientScene(opaque []game_object.GameObject, transparent []game_object.GameObject) scene.Scene {
	return scene.NewScene("test", camera.NewCamera(),
		scene.WithOpaqueObjects(opaque...),
		scene.WithTransparentObjects(transparent...),
		scene.WithLights(light.NewLight(light.LightTypeAmbient)),
	)
}

func pixel(img *exr.RGBAImage, x, y int) [4]float32 {
	i := (y*img.Rect.Dx() + x) * 4
	return [4]float32{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func read(t *testing.T, r Renderer, rt texture.RenderTarget) *exr.RGBAImage {
	t.Helper()
	img, err := r.ReadPixels(rt)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	return img
}

func TestClearFillsTarget(t *testing.T) {
	r := newTestRenderer(t)
	rt := newTarget(t, r, false)
	r.SetRenderTarget(rt)
	r.SetClearColor([4]float32{0.25, 0.5, 0.75, 1})
	if err := r.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	img := read(t, r, rt)
	for y := 0; y < testSize; y++ {
		for x := 0; x < testSize; x++ {
			if got := pixel(img, x, y); got != [4]float32{0.25, 0.5, 0.75, 1} {
				t.Fatalf("pixel (%d,%d) = %v", x, y, got)
			}
		}
	}
}

func TestRenderOpaqueQuad(t *testing.T) {
	r := newTestRenderer(t)
	red := material.NewMaterial(material.WithColor([3]float32{1, 0, 0}))
	s := ambientScene([]game_object.GameObject{quadAt(0, red)}, nil)

	if err := r.Render(s, s.Camera()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	img := read(t, r, nil)
	if got := pixel(img, testSize/2, testSize/2); got != [4]float32{1, 0, 0, 1} {
		t.Errorf("center = %v, want opaque red", got)
	}
	if got := pixel(img, 0, 0); got != [4]float32{0, 0, 0, 1} {
		t.Errorf("corner = %v, want the clear color", got)
	}
	if info := r.Info(); info.DrawCalls != 1 || info.Renders != 1 {
		t.Errorf("info = %+v, want 1 draw call and 1 render", info)
	}
}

func TestAutoClear(t *testing.T) {
	r := newTestRenderer(t)
	red := material.NewMaterial(material.WithColor([3]float32{1, 0, 0}))
	full := ambientScene([]game_object.GameObject{quadAt(0, red)}, nil)
	empty := ambientScene(nil, nil)

	if err := r.Render(full, full.Camera()); err != nil {
		t.Fatal(err)
	}
	r.SetAutoClear(false)
	if err := r.Render(empty, empty.Camera()); err != nil {
		t.Fatal(err)
	}
	if got := pixel(read(t, r, nil), testSize/2, testSize/2); got[0] != 1 {
		t.Errorf("autoClear off: center = %v, want previous contents kept", got)
	}

	r.SetAutoClear(true)
	if err := r.Render(empty, empty.Camera()); err != nil {
		t.Fatal(err)
	}
	if got := pixel(read(t, r, nil), testSize/2, testSize/2); got != [4]float32{0, 0, 0, 1} {
		t.Errorf("autoClear on: center = %v, want the clear color", got)
	}
}

func TestFrustumCullingAndSkips(t *testing.T) {
	r := newTestRenderer(t)
	m := material.NewMaterial()
	behind := quadAt(30, m)
	noModel := game_object.NewGameObject(game_object.WithMaterial(m))
	disabled := quadAt(0, m)
	disabled.SetEnabled(false)

	s := ambientScene([]game_object.GameObject{quadAt(0, m), behind, noModel, disabled}, nil)
	if err := r.Render(s, s.Camera()); err != nil {
		t.Fatal(err)
	}
	if got := r.Info().DrawCalls; got != 1 {
		t.Errorf("draw calls = %d, want 1", got)
	}
}

func TestDrawListOrder(t *testing.T) {
	opaqueA := quadAt(0, material.NewMaterial(material.WithName("a")))
	opaqueB := quadAt(-1, material.NewMaterial(material.WithName("b")))
	tr := func(z float32) game_object.GameObject {
		return quadAt(z, material.NewMaterial(material.WithTransparent(true)))
	}
	front, mid, back := tr(2), tr(0), tr(-2)

	s := ambientScene([]game_object.GameObject{opaqueA, opaqueB}, []game_object.GameObject{mid, front, back})
	items := buildDrawList(s, s.Camera())

	want := []uint64{opaqueA.ID(), opaqueB.ID(), back.ID(), mid.ID(), front.ID()}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, it := range items {
		if it.ObjectID != want[i] {
			t.Errorf("item %d = object %d, want %d", i, it.ObjectID, want[i])
		}
	}
}

func TestSharedEdgeCoveredOnce(t *testing.T) {
	r := newTestRenderer(t)
	r.SetClearColor([4]float32{0, 0, 0, 0})
	glass := material.NewMaterial(material.WithTransparent(true), material.WithOpacity(0.5))
	s := ambientScene(nil, []game_object.GameObject{quadAt(7, glass)})

	if err := r.Render(s, s.Camera()); err != nil {
		t.Fatal(err)
	}
	img := read(t, r, nil)
	covered := 0
	for y := 0; y < testSize; y++ {
		for x := 0; x < testSize; x++ {
			a := pixel(img, x, y)[3]
			switch {
			case a == 0:
			case near(a, 0.5):
				covered++
			default:
				t.Fatalf("pixel (%d,%d) alpha = %v: blended more than once", x, y, a)
			}
		}
	}
	if covered == 0 {
		t.Fatal("quad covered no pixels")
	}
}

func TestDrawFullscreenQuad(t *testing.T) {
	r := newTestRenderer(t)
	src := newTarget(t, r, false)
	r.SetRenderTarget(src)
	r.SetClearColor([4]float32{1, 0, 0, 0.5})
	if err := r.Clear(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		state pipeline.RenderState
		want  [4]float32
	}{
		{"overwrite", pipeline.Overwrite(), [4]float32{1, 0, 0, 0.5}},
		{"over", pipeline.Over(), [4]float32{0.5, 0, 0.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := newTarget(t, r, false)
			r.SetRenderTarget(dst)
			r.SetClearColor([4]float32{0, 0, 1, 1})
			if err := r.Clear(); err != nil {
				t.Fatal(err)
			}
			r.SetAutoClear(false)
			defer r.SetAutoClear(true)

			if err := r.DrawFullscreenQuad(src.ColorTexture(), tt.state); err != nil {
				t.Fatal(err)
			}
			got := pixel(read(t, r, dst), 3, 5)
			for i := range got {
				if !near(got[i], tt.want[i]) {
					t.Fatalf("pixel = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func filledTarget(t *testing.T, r Renderer, c [4]float32) texture.RenderTarget {
	t.Helper()
	rt := newTarget(t, r, false)
	r.SetRenderTarget(rt)
	r.SetClearColor(c)
	if err := r.Clear(); err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestDrawFullscreenQuadDepth(t *testing.T) {
	r := newTestRenderer(t)
	red := filledTarget(t, r, [4]float32{1, 0, 0, 1})
	green := filledTarget(t, r, [4]float32{0, 1, 0, 1})
	tested := pipeline.RenderState{Blending: pipeline.BlendingNone, DepthTest: true}
	written := pipeline.RenderState{Blending: pipeline.BlendingNone, DepthTest: true, DepthWrite: true}

	tests := []struct {
		name  string
		depth bool
		draws []pipeline.RenderState
		want  [4]float32
	}{
		{"test passes against cleared depth", true, []pipeline.RenderState{tested, tested}, [4]float32{0, 1, 0, 1}},
		{"written depth rejects a tested quad", true, []pipeline.RenderState{written, tested}, [4]float32{1, 0, 0, 1}},
		{"untested quad ignores written depth", true, []pipeline.RenderState{written, pipeline.Overwrite()}, [4]float32{0, 1, 0, 1}},
		{"no depth attachment", false, []pipeline.RenderState{written, written}, [4]float32{0, 1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := newTarget(t, r, tt.depth)
			r.SetRenderTarget(dst)
			r.SetClearColor([4]float32{0, 0, 1, 1})
			if err := r.Clear(); err != nil {
				t.Fatal(err)
			}
			r.SetAutoClear(false)
			defer r.SetAutoClear(true)

			for i, src := range []texture.RenderTarget{red, green} {
				if err := r.DrawFullscreenQuad(src.ColorTexture(), tt.draws[i]); err != nil {
					t.Fatal(err)
				}
			}
			if got := pixel(read(t, r, dst), 7, 2); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawFullscreenQuadToneMapping(t *testing.T) {
	r := newTestRenderer(t)
	linear := [4]float32{0.8, 0.4, 0.1, 0.6}
	src := filledTarget(t, r, linear)
	dst := newTarget(t, r, false)
	r.SetRenderTarget(dst)

	if err := r.DrawFullscreenQuad(src.ColorTexture(), pipeline.Present(pipeline.ToneMappingACESFilmic)); err != nil {
		t.Fatal(err)
	}
	rgb := pipeline.ToneMappingACESFilmic.Apply([3]float32{linear[0], linear[1], linear[2]})
	want := [4]float32{rgb[0], rgb[1], rgb[2], linear[3]}
	got := pixel(read(t, r, dst), 4, 4)
	for i := range got {
		if !near(got[i], want[i]) {
			t.Fatalf("pixel = %v, want %v", got, want)
		}
	}
	if got := pixel(read(t, r, src), 4, 4); got != linear {
		t.Errorf("source changed to %v", got)
	}
}

func TestDisposedResources(t *testing.T) {
	r := newTestRenderer(t)
	s := ambientScene(nil, nil)

	rt := newTarget(t, r, false)
	rt.Dispose()
	r.SetRenderTarget(rt)
	if err := r.Render(s, s.Camera()); !errors.Is(err, texture.ErrDisposed) {
		t.Errorf("render into disposed target: err = %v, want ErrDisposed", err)
	}
	if _, err := r.ReadPixels(rt); !errors.Is(err, texture.ErrDisposed) {
		t.Errorf("read disposed target: err = %v, want ErrDisposed", err)
	}

	r.SetRenderTarget(nil)
	depth, err := r.CreateDepthTexture(testSize, testSize, "opaque")
	if err != nil {
		t.Fatal(err)
	}
	m := material.NewPeelMaterial(material.WithTransparent(true))
	m.EnablePeeling(true)
	m.SetOpaqueDepth(depth)
	depth.Dispose()
	peeled := ambientScene(nil, []game_object.GameObject{quadAt(0, m)})
	if err := r.Render(peeled, peeled.Camera()); !errors.Is(err, texture.ErrDisposed) {
		t.Errorf("render with disposed opaque depth: err = %v, want ErrDisposed", err)
	}

	src := newTarget(t, r, false)
	src.Dispose()
	if err := r.DrawFullscreenQuad(src.ColorTexture(), pipeline.Over()); !errors.Is(err, texture.ErrDisposed) {
		t.Errorf("quad from disposed texture: err = %v, want ErrDisposed", err)
	}
}

func TestProgramVariantSelection(t *testing.T) {
	r := newTestRenderer(t)
	depth, err := r.CreateDepthTexture(testSize, testSize, "opaque")
	if err != nil {
		t.Fatal(err)
	}
	nearDepth, err := r.CreateDepthTexture(testSize, testSize, "near")
	if err != nil {
		t.Fatal(err)
	}
	m := material.NewPeelMaterial(material.WithTransparent(true))
	s := ambientScene(nil, []game_object.GameObject{quadAt(0, m)})
	render := func() {
		t.Helper()
		if err := r.Render(s, s.Camera()); err != nil {
			t.Fatal(err)
		}
	}

	render()
	if key, _ := r.BoundVariant(m.ID()); key != material.VariantDisabled {
		t.Errorf("plain: bound %s", key)
	}

	m.EnablePeeling(true)
	m.SetOpaqueDepth(depth)
	render()
	if key, _ := r.BoundVariant(m.ID()); key != material.VariantFirstPass {
		t.Errorf("first pass: bound %s", key)
	}

	m.SetNearDepth(nearDepth)
	render()
	if key, _ := r.BoundVariant(m.ID()); key != material.VariantPeel {
		t.Errorf("peel: bound %s", key)
	}
	compiles := r.ProgramCompiles()
	if compiles != 3 {
		t.Errorf("compiles = %d, want 3", compiles)
	}

	// Swapping textures keeps the variant and builds nothing.
	m.SetNearDepth(depth)
	m.SetOpaqueDepth(nearDepth)
	render()
	if got := r.ProgramCompiles(); got != compiles {
		t.Errorf("compiles after texture swap = %d, want %d", got, compiles)
	}
}

func TestPeelTestDiscardsBehindOpaque(t *testing.T) {
	r := newTestRenderer(t)

	// Opaque depth holds a wall at z = 1.
	opaqueDepth, err := r.CreateDepthTexture(testSize, testSize, "opaque")
	if err != nil {
		t.Fatal(err)
	}
	wallTarget := newTarget(t, r, false)
	wallTarget.SetDepthTexture(opaqueDepth)
	wall := ambientScene([]game_object.GameObject{quadAt(1, material.NewMaterial())}, nil)
	r.SetRenderTarget(wallTarget)
	if err := r.Render(wall, wall.Camera()); err != nil {
		t.Fatal(err)
	}

	peelAt := func(z float32) [4]float32 {
		t.Helper()
		m := material.NewPeelMaterial(material.WithTransparent(true), material.WithColor([3]float32{0, 1, 0}))
		m.SetBlending(pipeline.BlendingCustom)
		m.SetBlendFactors(pipeline.BlendFactorOne, pipeline.BlendFactorZero)
		m.EnablePeeling(true)
		m.SetOpaqueDepth(opaqueDepth)
		m.SetResolution([2]float32{testSize, testSize})

		out := newTarget(t, r, true)
		r.SetRenderTarget(out)
		r.SetClearColor([4]float32{0, 0, 0, 0})
		defer r.SetClearColor([4]float32{0, 0, 0, 1})
		s := ambientScene(nil, []game_object.GameObject{quadAt(z, m)})
		if err := r.Render(s, s.Camera()); err != nil {
			t.Fatal(err)
		}
		return pixel(read(t, r, out), testSize/2, testSize/2)
	}

	if got := peelAt(0); got != [4]float32{} {
		t.Errorf("fragment behind opaque = %v, want discarded", got)
	}
	if got := peelAt(2); got[1] != 1 {
		t.Errorf("fragment in front of opaque = %v, want green", got)
	}
}

func TestResize(t *testing.T) {
	r := newTestRenderer(t)
	if err := r.Resize(10, 6); err != nil {
		t.Fatal(err)
	}
	if w, h := r.DrawingBufferSize(); w != 10 || h != 6 {
		t.Errorf("size = %dx%d, want 10x6", w, h)
	}
	if err := r.Resize(0, 6); err == nil {
		t.Error("Resize(0, 6) succeeded")
	}
	img := read(t, r, nil)
	if img.Rect.Dx() != 10 || img.Rect.Dy() != 6 {
		t.Errorf("readback is %v", img.Rect)
	}
}

func TestRasterizeDeepMatchesDrawScene(t *testing.T) {
	r := newTestRenderer(t)
	r.SetClearColor([4]float32{0, 0, 0, 0})
	back := quadAt(0, material.NewMaterial(material.WithTransparent(true), material.WithOpacity(0.5)))
	front := quadAt(1, material.NewMaterial(material.WithColor([3]float32{0, 1, 0})))
	s := ambientScene([]game_object.GameObject{front}, []game_object.GameObject{back})

	perObject := map[uint64]int{}
	err := RasterizeDeep(s, s.Camera(), testSize, testSize, func(f Fragment) {
		perObject[f.ObjectID]++
		if f.Transparent != (f.ObjectID == back.ID()) {
			t.Errorf("fragment of object %d has transparent = %v", f.ObjectID, f.Transparent)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if perObject[front.ID()] == 0 || perObject[back.ID()] == 0 {
		t.Fatalf("fragments per object = %v, want both objects covered", perObject)
	}

	// Only the front quad on its own: every pixel it shades is one of its fragments.
	solo := ambientScene([]game_object.GameObject{front}, nil)
	if err := r.Render(solo, solo.Camera()); err != nil {
		t.Fatal(err)
	}
	img := read(t, r, nil)
	covered := 0
	for y := 0; y < testSize; y++ {
		for x := 0; x < testSize; x++ {
			if pixel(img, x, y)[3] != 0 {
				covered++
			}
		}
	}
	if covered != perObject[front.ID()] {
		t.Errorf("DrawScene covered %d pixels, RasterizeDeep reported %d", covered, perObject[front.ID()])
	}

	if err := RasterizeDeep(s, s.Camera(), 0, testSize, func(Fragment) {}); err == nil {
		t.Error("zero width accepted")
	}
}
