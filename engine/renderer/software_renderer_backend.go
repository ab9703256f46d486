package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
	"github.com/mrjoshuak/go-openexr/exr"
)

// softColor is the native handle of a software color texture: tightly packed RGBA float32
// rows, top row first.
type softColor struct {
	w, h int
	pix  []float32
}

// softDepth is the native handle of a software depth texture.
type softDepth struct {
	w, h int
	z    []float32
}

// softProgram is the software equivalent of a compiled shader variant: it carries the
// variant key that selects which peel tests the fragment stage runs.
type softProgram struct {
	key material.VariantKey
}

// softwareRendererBackendImpl rasterizes on the CPU. A single draw is split into row bands
// that run on a worker pool; the draw returns only after every band finished, so draws and
// passes stay strictly ordered.
type softwareRendererBackendImpl struct {
	mu *sync.Mutex

	width  int
	height int

	mainColor *softColor
	mainDepth *softDepth

	workers  int
	pool     worker.DynamicWorkerPool
	programs *material.ProgramCache[*softProgram]
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend(width, height, workers int) (*softwareRendererBackendImpl, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid drawing buffer size %dx%d", width, height)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	b := &softwareRendererBackendImpl{
		mu:      &sync.Mutex{},
		workers: workers,
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
	}
	b.programs = material.NewProgramCache(func(key material.VariantKey) (*softProgram, error) {
		common.Logger().Debug("software program built", "variant", key.String())
		return &softProgram{key: key}, nil
	})
	b.allocateMain(width, height)
	return b, nil
}

func (b *softwareRendererBackendImpl) allocateMain(width, height int) {
	b.width, b.height = width, height
	b.mainColor = &softColor{w: width, h: height, pix: make([]float32, width*height*4)}
	b.mainDepth = &softDepth{w: width, h: height, z: make([]float32, width*height)}
	for i := range b.mainDepth.z {
		b.mainDepth.z[i] = 1
	}
}

func (b *softwareRendererBackendImpl) CreateDepthTexture(width, height int, label string) (texture.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid depth texture size %dx%d", width, height)
	}
	d := &softDepth{w: width, h: height, z: make([]float32, width*height)}
	for i := range d.z {
		d.z[i] = 1
	}
	return texture.NewTexture(texture.KindDepth, width, height, d, func() { d.z = nil }, texture.WithLabel(label)), nil
}

func (b *softwareRendererBackendImpl) CreateRenderTarget(width, height int, label string) (texture.RenderTarget, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid render target size %dx%d", width, height)
	}
	c := &softColor{w: width, h: height, pix: make([]float32, width*height*4)}
	color := texture.NewTexture(texture.KindColor, width, height, c, func() { c.pix = nil }, texture.WithLabel(label+"-color"))
	return texture.NewRenderTarget(color, texture.WithTargetLabel(label)), nil
}

func (b *softwareRendererBackendImpl) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid drawing buffer size %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if width == b.width && height == b.height {
		return nil
	}
	b.allocateMain(width, height)
	return nil
}

func (b *softwareRendererBackendImpl) DrawingBufferSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// SetPresentMode is a no-op: the software backend has no surface.
func (b *softwareRendererBackendImpl) SetPresentMode(PresentMode) {}

func (b *softwareRendererBackendImpl) BeginFrame() error {
	return nil
}

func (b *softwareRendererBackendImpl) EndFrame() error {
	return nil
}

func (b *softwareRendererBackendImpl) Clear(target texture.RenderTarget, op ClearOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	color, depth, err := b.attachments(target)
	if err != nil {
		return err
	}
	b.clear(color, depth, op)
	return nil
}

func (b *softwareRendererBackendImpl) DrawScene(target texture.RenderTarget, frame FrameData, items []DrawItem, clear *ClearOp) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	color, depth, err := b.attachments(target)
	if err != nil {
		return 0, err
	}
	if clear != nil {
		b.clear(color, depth, *clear)
	}

	viewProj := frame.Camera.ViewProjectionMatrix()
	calls := 0
	for _, it := range items {
		prog, err := b.programs.Program(it.Material)
		if err != nil {
			return calls, err
		}
		peel, err := resolvePeelInputs(it.Material, prog.key, color)
		if err != nil {
			return calls, err
		}

		state := it.Material.RenderState()
		tris := setupTriangles(it, viewProj, color.w, color.h, state.Side)
		calls++
		if len(tris) == 0 {
			continue
		}

		sh := fragmentShading{
			color:  it.Material.Color(),
			alpha:  it.Material.Alpha(),
			lights: frame.Lights,
			peel:   peel,
			state:  state,
		}
		b.parallelRows(color.h, func(y0, y1 int) {
			rasterizeBand(color, depth, tris, &sh, y0, y1)
		})
	}
	return calls, nil
}

// quadDepth is the depth of a fullscreen quad: the near plane, as the quad vertex shader emits.
const quadDepth = 0

func (b *softwareRendererBackendImpl) DrawQuad(target texture.RenderTarget, src texture.Texture, state pipeline.RenderState, clear *ClearOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	color, depth, err := b.attachments(target)
	if err != nil {
		return err
	}
	in, ok := src.Handle().(*softColor)
	if !ok || src.Kind() != texture.KindColor {
		return fmt.Errorf("texture %q is not a software color texture", src.Label())
	}
	if clear != nil {
		b.clear(color, depth, *clear)
	}

	colorEq, alphaEq := state.Equation()
	blend := state.Enabled()
	testDepth := state.DepthTest && depth != nil
	writeDepth := state.DepthWrite && depth != nil
	b.parallelRows(color.h, func(y0, y1 int) {
		var mapped [4]float32
		for y := y0; y < y1; y++ {
			sy := min(y, in.h-1)
			for x := 0; x < color.w; x++ {
				sx := min(x, in.w-1)
				if testDepth && !(quadDepth < depth.z[y*depth.w+x]) {
					continue
				}
				if writeDepth {
					depth.z[y*depth.w+x] = quadDepth
				}
				s := in.pix[(sy*in.w+sx)*4:]
				d := color.pix[(y*color.w+x)*4:]
				if state.ToneMapping != pipeline.ToneMappingNone {
					rgb := state.ToneMapping.Apply([3]float32{s[0], s[1], s[2]})
					mapped = [4]float32{rgb[0], rgb[1], rgb[2], s[3]}
					s = mapped[:]
				}
				if !blend {
					copy(d[:4], s[:4])
					continue
				}
				a := s[3]
				d[0] = colorEq.Apply(s[0], d[0], a)
				d[1] = colorEq.Apply(s[1], d[1], a)
				d[2] = colorEq.Apply(s[2], d[2], a)
				d[3] = alphaEq.Apply(s[3], d[3], a)
			}
		}
	})
	return nil
}

func (b *softwareRendererBackendImpl) ReadPixels(target texture.RenderTarget) (*exr.RGBAImage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	color, _, err := b.attachments(target)
	if err != nil {
		return nil, err
	}
	img := exr.NewRGBAImage(image.Rect(0, 0, color.w, color.h))
	copy(img.Pix, color.pix)
	return img, nil
}

func (b *softwareRendererBackendImpl) ProgramCompiles() int {
	return b.programs.Compiles()
}

func (b *softwareRendererBackendImpl) BoundVariant(materialID uint64) (material.VariantKey, bool) {
	return b.programs.BoundKey(materialID)
}

func (b *softwareRendererBackendImpl) Release() {
	b.pool.Stop()
}

// attachments resolves the color and depth buffers of target; nil is the main output.
func (b *softwareRendererBackendImpl) attachments(target texture.RenderTarget) (*softColor, *softDepth, error) {
	if target == nil {
		return b.mainColor, b.mainDepth, nil
	}
	color, ok := target.ColorTexture().Handle().(*softColor)
	if !ok {
		return nil, nil, fmt.Errorf("render target %q was not created by the software backend", target.Label())
	}
	dt := target.DepthTexture()
	if dt == nil {
		return color, nil, nil
	}
	depth, ok := dt.Handle().(*softDepth)
	if !ok {
		return nil, nil, fmt.Errorf("depth attachment %q of target %q is not a software depth texture", dt.Label(), target.Label())
	}
	if depth.w != color.w || depth.h != color.h {
		return nil, nil, fmt.Errorf("depth attachment %q is %dx%d, target %q is %dx%d",
			dt.Label(), depth.w, depth.h, target.Label(), color.w, color.h)
	}
	return color, depth, nil
}

func (b *softwareRendererBackendImpl) clear(color *softColor, depth *softDepth, op ClearOp) {
	if op.ClearColor {
		c := op.Color
		for i := 0; i < len(color.pix); i += 4 {
			color.pix[i], color.pix[i+1], color.pix[i+2], color.pix[i+3] = c[0], c[1], c[2], c[3]
		}
	}
	if op.ClearDepth && depth != nil {
		for i := range depth.z {
			depth.z[i] = 1
		}
	}
}

// parallelRows splits [0, height) into one band per worker and runs fn on each band.
// It returns once every band has finished.
func (b *softwareRendererBackendImpl) parallelRows(height int, fn func(y0, y1 int)) {
	bands := min(b.workers, height)
	if bands <= 1 {
		fn(0, height)
		return
	}
	rows := (height + bands - 1) / bands

	// A WaitGroup gives a per-draw barrier; pool.Wait() only returns once workers idle-exit.
	var wg sync.WaitGroup
	for i := 0; i < bands; i++ {
		y0 := i * rows
		y1 := min(y0+rows, height)
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// resolvePeelInputs collects the depth references a peeling program reads. Programs of the
// disabled variant read nothing.
func resolvePeelInputs(m material.Material, key material.VariantKey, color *softColor) (*peelInputs, error) {
	if !key.Enabled {
		return nil, nil
	}
	p, ok := material.AsPeelable(m)
	if !ok {
		return nil, nil
	}
	in := &peelInputs{resolution: p.Resolution(), testNear: !key.NearIsNil}
	if in.resolution[0] <= 0 || in.resolution[1] <= 0 {
		in.resolution = [2]float32{float32(color.w), float32(color.h)}
	}
	var err error
	if in.opaque, err = softDepthOf(p.Peel().OpaqueDepth()); err != nil {
		return nil, err
	}
	if in.near, err = softDepthOf(p.Peel().NearDepth()); err != nil {
		return nil, err
	}
	return in, nil
}

func softDepthOf(t texture.Texture) (*softDepth, error) {
	if t == nil {
		return nil, nil
	}
	if err := texture.Check(t); err != nil {
		return nil, err
	}
	d, ok := t.Handle().(*softDepth)
	if !ok {
		return nil, fmt.Errorf("texture %q is not a software depth texture", t.Label())
	}
	return d, nil
}
