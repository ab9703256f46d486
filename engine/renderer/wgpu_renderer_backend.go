package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-peel/common"
	"github.com/Carmen-Shannon/oxy-peel/engine/camera"
	"github.com/Carmen-Shannon/oxy-peel/engine/model"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/mrjoshuak/go-openexr/exr"
)

const (
	// wgpuDepthFormat is the format of every depth texture, including the main depth buffer.
	wgpuDepthFormat = wgpu.TextureFormatDepth32Float
	// wgpuColorFormat is the format of every offscreen color target.
	wgpuColorFormat = wgpu.TextureFormatRGBA16Float

	// Bind group indices shared by every mesh program.
	groupFrame    = 0
	groupObject   = 1
	groupMaterial = 2
	groupPeel     = 3
)

var errNoFrame = errors.New("no frame in progress: call BeginFrame before drawing to the main output")

// wgpuTexture is the native handle of a wgpu texture.
type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	format  wgpu.TextureFormat
	w, h    int
}

// wgpuProgram is one compiled mesh fragment variant with its pipeline layout. Groups 0 to 2
// use the layouts shared by every variant; group 3 exists only on peeling variants.
type wgpuProgram struct {
	key      material.VariantKey
	fragment shader.Shader
	module   *wgpu.ShaderModule
	peel     *wgpu.BindGroupLayout
	layout   *wgpu.PipelineLayout
}

// peelGroupKey identifies a group 3 bind group by the variant layout and the textures bound.
type peelGroupKey struct {
	variant material.VariantKey
	opaque  uint64
	near    uint64
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	width         int
	height        int
	mainDepth     *wgpuTexture

	// Frame state for the main output, held between BeginFrame and EndFrame
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	variants     *shader.Variants
	meshVertex   *wgpu.ShaderModule
	quadVertex   *wgpu.ShaderModule
	quadFragment *wgpu.ShaderModule
	quadToneMap  *wgpu.ShaderModule

	sharedLayouts  [3]*wgpu.BindGroupLayout
	sharedDescs    [3]wgpu.BindGroupLayoutDescriptor
	quadLayout     *wgpu.BindGroupLayout
	quadPipeLayout *wgpu.PipelineLayout

	programs  *material.ProgramCache[*wgpuProgram]
	pipelines map[string]pipeline.Pipeline

	frameProvider bind_group_provider.BindGroupProvider
	meshes        map[uint64]bind_group_provider.BindGroupProvider
	objects       map[uint64]bind_group_provider.BindGroupProvider
	materials     map[uint64]bind_group_provider.BindGroupProvider
	peelGroups    map[peelGroupKey]bind_group_provider.BindGroupProvider
	quadGroups    map[uint64]bind_group_provider.BindGroupProvider
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the device for a window surface and compiles the shader set.
//
// Parameters:
//   - surfaceDescriptor: the platform surface of the window
//   - forceFallbackAdapter: request the software fallback adapter
//   - validate: run every shader through the WGSL validator first
//
// Returns:
//   - *wgpuRendererBackendImpl: the backend
//   - error: an error if no adapter or device is available or a shader is invalid
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter, validate bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()

	variants, err := shader.NewVariants()
	if err != nil {
		return nil, err
	}
	if validate {
		if err := shader.ValidateAll(variants); err != nil {
			return nil, err
		}
	}

	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		variants:    variants,
		pipelines:   make(map[string]pipeline.Pipeline),
		meshes:      make(map[uint64]bind_group_provider.BindGroupProvider),
		objects:     make(map[uint64]bind_group_provider.BindGroupProvider),
		materials:   make(map[uint64]bind_group_provider.BindGroupProvider),
		peelGroups:  make(map[peelGroupKey]bind_group_provider.BindGroupProvider),
		quadGroups:  make(map[uint64]bind_group_provider.BindGroupProvider),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	// Mesh programs use four bind groups (0-3).
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 4

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.initShaders(); err != nil {
		b.Release()
		return nil, err
	}
	b.programs = material.NewProgramCache(b.buildProgram)
	return b, nil
}

// initShaders creates the modules and layouts shared by every program.
func (b *wgpuRendererBackendImpl) initShaders() error {
	var err error
	if b.meshVertex, err = b.device.CreateShaderModule(b.variants.MeshVertex().Module()); err != nil {
		return fmt.Errorf("mesh vertex module: %w", err)
	}
	if b.quadVertex, err = b.device.CreateShaderModule(b.variants.QuadVertex().Module()); err != nil {
		return fmt.Errorf("quad vertex module: %w", err)
	}
	if b.quadFragment, err = b.device.CreateShaderModule(b.variants.QuadFragment().Module()); err != nil {
		return fmt.Errorf("quad fragment module: %w", err)
	}
	if b.quadToneMap, err = b.device.CreateShaderModule(b.variants.QuadToneMapFragment().Module()); err != nil {
		return fmt.Errorf("quad tone mapping module: %w", err)
	}

	plain, err := b.variants.MeshFragment(material.VariantDisabled)
	if err != nil {
		return err
	}
	merged := shader.MergeBindGroupLayouts(b.variants.MeshVertex(), plain)
	for g := groupFrame; g <= groupMaterial; g++ {
		desc, ok := merged[g]
		if !ok {
			return fmt.Errorf("mesh shaders declare no bind group %d", g)
		}
		desc.Label = fmt.Sprintf("mesh group %d", g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		b.sharedLayouts[g] = layout
		b.sharedDescs[g] = desc
	}

	quadDesc := shader.MergeBindGroupLayouts(b.variants.QuadVertex(), b.variants.QuadFragment())[0]
	quadDesc.Label = "quad group 0"
	if b.quadLayout, err = b.device.CreateBindGroupLayout(&quadDesc); err != nil {
		return fmt.Errorf("failed to create quad bind group layout: %w", err)
	}
	b.quadPipeLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "quad",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.quadLayout},
	})
	return err
}

// buildProgram compiles the fragment module and pipeline layout of one variant.
func (b *wgpuRendererBackendImpl) buildProgram(key material.VariantKey) (*wgpuProgram, error) {
	frag, err := b.variants.MeshFragment(key)
	if err != nil {
		return nil, err
	}
	p := &wgpuProgram{key: key, fragment: frag}
	if p.module, err = b.device.CreateShaderModule(frag.Module()); err != nil {
		return nil, fmt.Errorf("mesh fragment module %s: %w", key, err)
	}

	layouts := []*wgpu.BindGroupLayout{b.sharedLayouts[0], b.sharedLayouts[1], b.sharedLayouts[2]}
	if desc, ok := frag.BindGroupLayoutDescriptors()[groupPeel]; ok {
		desc.Label = "peel " + key.String()
		if p.peel, err = b.device.CreateBindGroupLayout(&desc); err != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", groupPeel, err)
		}
		layouts = append(layouts, p.peel)
	}
	if p.layout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "mesh " + key.String(),
		BindGroupLayouts: layouts,
	}); err != nil {
		return nil, err
	}
	common.Logger().Debug("wgpu program built", "variant", key.String())
	return p, nil
}

func (b *wgpuRendererBackendImpl) CreateDepthTexture(width, height int, label string) (texture.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, err := b.createTexture(width, height, wgpuDepthFormat, label,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
	if err != nil {
		return nil, err
	}
	return b.wrapTexture(texture.KindDepth, h, label), nil
}

func (b *wgpuRendererBackendImpl) CreateRenderTarget(width, height int, label string) (texture.RenderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, err := b.createTexture(width, height, wgpuColorFormat, label+"-color",
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc)
	if err != nil {
		return nil, err
	}
	color := b.wrapTexture(texture.KindColor, h, label+"-color")
	return texture.NewRenderTarget(color, texture.WithTargetLabel(label)), nil
}

func (b *wgpuRendererBackendImpl) createTexture(width, height int, format wgpu.TextureFormat, label string, usage wgpu.TextureUsage) (*wgpuTexture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	t, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := t.CreateView(nil)
	if err != nil {
		t.Release()
		return nil, err
	}
	return &wgpuTexture{texture: t, view: view, format: format, w: width, h: height}, nil
}

// wrapTexture hands a native texture to the texture package. Disposing it drops every bind
// group that references it before the GPU texture is released.
func (b *wgpuRendererBackendImpl) wrapTexture(kind texture.Kind, h *wgpuTexture, label string) texture.Texture {
	var t texture.Texture
	t = texture.NewTexture(kind, h.w, h.h, h, func() {
		b.mu.Lock()
		b.forgetTextureLocked(t.ID())
		b.mu.Unlock()
		h.release()
	}, texture.WithLabel(label))
	return t
}

func (h *wgpuTexture) release() {
	if h.view != nil {
		h.view.Release()
		h.view = nil
	}
	if h.texture != nil {
		h.texture.Release()
		h.texture = nil
	}
}

func (b *wgpuRendererBackendImpl) forgetTextureLocked(id uint64) {
	for k, p := range b.peelGroups {
		if k.opaque == id || k.near == id {
			p.Release()
			delete(b.peelGroups, k)
		}
	}
	if p, ok := b.quadGroups[id]; ok {
		p.Release()
		delete(b.quadGroups, id)
	}
}

// Resize reconfigures the surface and reallocates the main depth buffer.
func (b *wgpuRendererBackendImpl) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid drawing buffer size %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no formats")
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	depth, err := b.createTexture(width, height, wgpuDepthFormat, "main depth", wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	if b.mainDepth != nil {
		b.mainDepth.release()
	}
	b.mainDepth = depth
	b.width, b.height = width, height
	return nil
}

func (b *wgpuRendererBackendImpl) DrawingBufferSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// SetPresentMode takes effect at the next Resize.
func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Acquiring a second surface image before presenting the first is a validation error.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

// EndFrame presents the surface image. Every draw was already submitted by its own call.
func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return errNoFrame
	}
	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

// passTarget is a resolved render pass destination.
type passTarget struct {
	color       *wgpu.TextureView
	colorFormat wgpu.TextureFormat
	depth       *wgpu.TextureView
	w, h        int
}

// attachments resolves the views of target; nil is the main output of the current frame.
func (b *wgpuRendererBackendImpl) attachments(target texture.RenderTarget) (passTarget, error) {
	if target == nil {
		if b.frameView == nil {
			return passTarget{}, errNoFrame
		}
		return passTarget{
			color:       b.frameView,
			colorFormat: b.surfaceFormat,
			depth:       b.mainDepth.view,
			w:           b.width,
			h:           b.height,
		}, nil
	}
	color, ok := target.ColorTexture().Handle().(*wgpuTexture)
	if !ok || color.view == nil {
		return passTarget{}, fmt.Errorf("render target %q was not created by the wgpu backend", target.Label())
	}
	pt := passTarget{color: color.view, colorFormat: color.format, w: color.w, h: color.h}
	if dt := target.DepthTexture(); dt != nil {
		depth, ok := dt.Handle().(*wgpuTexture)
		if !ok || depth.view == nil {
			return passTarget{}, fmt.Errorf("depth attachment %q of target %q is not a wgpu depth texture", dt.Label(), target.Label())
		}
		if depth.w != color.w || depth.h != color.h {
			return passTarget{}, fmt.Errorf("depth attachment %q is %dx%d, target %q is %dx%d",
				dt.Label(), depth.w, depth.h, target.Label(), color.w, color.h)
		}
		pt.depth = depth.view
	}
	return pt, nil
}

// beginPass opens a render pass on target, loading or clearing each attachment per clear.
func beginPass(encoder *wgpu.CommandEncoder, pt passTarget, clear *ClearOp) *wgpu.RenderPassEncoder {
	colorLoad, depthLoad := wgpu.LoadOpLoad, wgpu.LoadOpLoad
	var clearColor wgpu.Color
	if clear != nil && clear.ClearColor {
		colorLoad = wgpu.LoadOpClear
		c := clear.Color
		clearColor = wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
	}
	if clear != nil && clear.ClearDepth {
		depthLoad = wgpu.LoadOpClear
	}

	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       pt.color,
				LoadOp:     colorLoad,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clearColor,
			},
		},
	}
	if pt.depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            pt.depth,
			DepthLoadOp:     depthLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}
	return encoder.BeginRenderPass(desc)
}

// submit finishes the encoder and submits it on its own.
func (b *wgpuRendererBackendImpl) submit(encoder *wgpu.CommandEncoder) error {
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Clear(target texture.RenderTarget, op ClearOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pt, err := b.attachments(target)
	if err != nil {
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := beginPass(encoder, pt, &op)
	pass.End()
	return b.submit(encoder)
}

func (b *wgpuRendererBackendImpl) DrawScene(target texture.RenderTarget, frame FrameData, items []DrawItem, clear *ClearOp) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pt, err := b.attachments(target)
	if err != nil {
		return 0, err
	}
	if err := b.writeFrameLocked(frame); err != nil {
		return 0, err
	}

	// Resolve every resource before the pass opens: uniform writes land on the queue ahead of
	// the submit below.
	type draw struct {
		pipe pipeline.Pipeline
		mesh bind_group_provider.BindGroupProvider
		obj  bind_group_provider.BindGroupProvider
		mat  bind_group_provider.BindGroupProvider
		peel bind_group_provider.BindGroupProvider
	}
	draws := make([]draw, 0, len(items))
	for _, it := range items {
		prog, err := b.programs.Program(it.Material)
		if err != nil {
			return 0, err
		}
		var d draw
		if d.pipe, err = b.meshPipelineLocked(prog, it.Material.RenderState(), pt); err != nil {
			return 0, err
		}
		if d.mesh, err = b.meshLocked(it.Model); err != nil {
			return 0, err
		}
		if d.obj, err = b.objectLocked(it); err != nil {
			return 0, err
		}
		if d.mat, err = b.materialLocked(it.Material, pt); err != nil {
			return 0, err
		}
		if prog.peel != nil {
			if d.peel, err = b.peelGroupLocked(prog, it.Material); err != nil {
				return 0, err
			}
		}
		draws = append(draws, d)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return 0, err
	}
	pass := beginPass(encoder, pt, clear)
	for _, d := range draws {
		pass.SetPipeline(d.pipe.Handle().(*wgpu.RenderPipeline))
		pass.SetBindGroup(groupFrame, b.frameProvider.BindGroup(), nil)
		pass.SetBindGroup(groupObject, d.obj.BindGroup(), nil)
		pass.SetBindGroup(groupMaterial, d.mat.BindGroup(), nil)
		if d.peel != nil {
			pass.SetBindGroup(groupPeel, d.peel.BindGroup(), nil)
		}
		pass.SetVertexBuffer(0, d.mesh.VertexBuffer(), 0, wgpu.WholeSize)
		pass.SetIndexBuffer(d.mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(d.mesh.IndexCount()), 1, 0, 0, 0)
	}
	pass.End()
	if err := b.submit(encoder); err != nil {
		return 0, err
	}
	return len(draws), nil
}

func (b *wgpuRendererBackendImpl) DrawQuad(target texture.RenderTarget, src texture.Texture, state pipeline.RenderState, clear *ClearOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pt, err := b.attachments(target)
	if err != nil {
		return err
	}
	in, ok := src.Handle().(*wgpuTexture)
	if !ok || src.Kind() != texture.KindColor || in.view == nil {
		return fmt.Errorf("texture %q is not a wgpu color texture", src.Label())
	}
	// The depth attachment joins the pass only when the state tests or writes depth.
	if !state.DepthTest && !state.DepthWrite {
		pt.depth = nil
	}

	pipe, err := b.quadPipelineLocked(state, pt)
	if err != nil {
		return err
	}
	group, err := b.quadGroupLocked(src.ID(), in)
	if err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := beginPass(encoder, pt, clear)
	pass.SetPipeline(pipe.Handle().(*wgpu.RenderPipeline))
	pass.SetBindGroup(0, group.BindGroup(), nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	return b.submit(encoder)
}

// ReadPixels copies an offscreen target back to the CPU. The main output is a surface image
// that cannot be copied from, so reading it returns an error.
func (b *wgpuRendererBackendImpl) ReadPixels(target texture.RenderTarget) (*exr.RGBAImage, error) {
	if target == nil {
		return nil, errors.New("the wgpu backend cannot read back the window surface: render into a target")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	color, ok := target.ColorTexture().Handle().(*wgpuTexture)
	if !ok || color.texture == nil {
		return nil, fmt.Errorf("render target %q was not created by the wgpu backend", target.Label())
	}
	return b.readTextureLocked(color)
}

func (b *wgpuRendererBackendImpl) ProgramCompiles() int {
	return b.programs.Compiles()
}

func (b *wgpuRendererBackendImpl) BoundVariant(materialID uint64) (material.VariantKey, bool) {
	return b.programs.BoundKey(materialID)
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, group := range []map[uint64]bind_group_provider.BindGroupProvider{b.meshes, b.objects, b.materials, b.quadGroups} {
		for k, p := range group {
			p.Release()
			delete(group, k)
		}
	}
	for k, p := range b.peelGroups {
		p.Release()
		delete(b.peelGroups, k)
	}
	if b.frameProvider != nil {
		b.frameProvider.Release()
		b.frameProvider = nil
	}
	for k, p := range b.pipelines {
		if rp, ok := p.Handle().(*wgpu.RenderPipeline); ok {
			rp.Release()
		}
		delete(b.pipelines, k)
	}
	if b.programs != nil {
		for _, p := range b.programs.Programs() {
			p.release()
		}
	}
	if b.mainDepth != nil {
		b.mainDepth.release()
		b.mainDepth = nil
	}
	for _, m := range []*wgpu.ShaderModule{b.meshVertex, b.quadVertex, b.quadFragment, b.quadToneMap} {
		if m != nil {
			m.Release()
		}
	}
	b.meshVertex, b.quadVertex, b.quadFragment, b.quadToneMap = nil, nil, nil, nil
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
}

func (p *wgpuProgram) release() {
	if p.layout != nil {
		p.layout.Release()
	}
	if p.peel != nil {
		p.peel.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}

// writeFrameLocked uploads the camera and lights of a submission to the frame bind group.
func (b *wgpuRendererBackendImpl) writeFrameLocked(frame FrameData) error {
	if b.frameProvider == nil {
		p := bind_group_provider.NewBindGroupProvider("frame", bind_group_provider.WithGroup(groupFrame))
		if err := b.initBindGroup(p, b.sharedLayouts[groupFrame], b.sharedDescs[groupFrame]); err != nil {
			p.Release()
			return err
		}
		b.frameProvider = p
	}
	cam := camera.NewGPUCameraUniform(frame.Camera)
	lights := frame.Lights.GPU()
	b.writeBuffers([]bind_group_provider.BufferWrite{
		{Provider: b.frameProvider, Binding: 0, Data: cam.Marshal()},
		{Provider: b.frameProvider, Binding: 1, Data: lights.Marshal()},
	})
	return nil
}

// meshLocked returns the vertex and index buffers of a model, uploading them on first use.
func (b *wgpuRendererBackendImpl) meshLocked(m model.Model) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := b.meshes[m.ID()]; ok {
		return p, nil
	}
	p := bind_group_provider.NewBindGroupProvider(m.Name())
	vertexData, indexData := m.VertexData(), m.IndexData()

	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.Label() + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(vb, 0, vertexData)
	p.SetVertexBuffer(vb)

	ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.Label() + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	b.queue.WriteBuffer(ib, 0, indexData)
	p.SetIndexBuffer(ib)
	p.SetIndexCount(m.IndexCount())

	b.meshes[m.ID()] = p
	return p, nil
}

// objectLocked returns the model-data bind group of a draw item with its transforms uploaded.
func (b *wgpuRendererBackendImpl) objectLocked(it DrawItem) (bind_group_provider.BindGroupProvider, error) {
	p, ok := b.objects[it.ObjectID]
	if !ok {
		p = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("object %d", it.ObjectID), bind_group_provider.WithGroup(groupObject))
		if err := b.initBindGroup(p, b.sharedLayouts[groupObject], b.sharedDescs[groupObject]); err != nil {
			p.Release()
			return nil, err
		}
		b.objects[it.ObjectID] = p
	}
	data := model.NewGPUModelData(it.ModelMatrix)
	b.writeBuffers([]bind_group_provider.BufferWrite{{Provider: p, Binding: 0, Data: data.Marshal()}})
	return p, nil
}

// materialLocked returns the params bind group of a material with its current values uploaded.
// A peeling material without a resolution gets the target size.
func (b *wgpuRendererBackendImpl) materialLocked(m material.Material, pt passTarget) (bind_group_provider.BindGroupProvider, error) {
	p, ok := b.materials[m.ID()]
	if !ok {
		p = bind_group_provider.NewBindGroupProvider("material "+m.Name(), bind_group_provider.WithGroup(groupMaterial))
		if err := b.initBindGroup(p, b.sharedLayouts[groupMaterial], b.sharedDescs[groupMaterial]); err != nil {
			p.Release()
			return nil, err
		}
		b.materials[m.ID()] = p
	}
	params := material.NewGPUMaterialParams(m)
	if params.Resolution[0] <= 0 || params.Resolution[1] <= 0 {
		params.Resolution = [2]float32{float32(pt.w), float32(pt.h)}
	}
	b.writeBuffers([]bind_group_provider.BufferWrite{{Provider: p, Binding: 0, Data: params.Marshal()}})
	return p, nil
}

// peelGroupLocked returns the group 3 bind group for the depth references a material holds.
func (b *wgpuRendererBackendImpl) peelGroupLocked(prog *wgpuProgram, m material.Material) (bind_group_provider.BindGroupProvider, error) {
	pm, ok := material.AsPeelable(m)
	if !ok {
		return nil, fmt.Errorf("material %q selected a peeling program without peel state", m.Name())
	}
	opaque := pm.Peel().OpaqueDepth()
	near := pm.Peel().NearDepth()
	if opaque == nil {
		return nil, fmt.Errorf("material %q peels without an opaque depth reference", m.Name())
	}

	key := peelGroupKey{variant: prog.key, opaque: opaque.ID()}
	if near != nil && !prog.key.NearIsNil {
		key.near = near.ID()
	}
	if p, ok := b.peelGroups[key]; ok {
		return p, nil
	}

	p := bind_group_provider.NewBindGroupProvider("peel "+prog.key.String(), bind_group_provider.WithGroup(groupPeel))
	bind := func(role shader.AnnotationArg, t texture.Texture) error {
		_, binding, ok := prog.fragment.ProviderBinding(role)
		if !ok {
			return nil
		}
		h, ok := t.Handle().(*wgpuTexture)
		if !ok || h.view == nil {
			return fmt.Errorf("texture %q is not a wgpu depth texture", t.Label())
		}
		p.SetTextureView(binding, h.view)
		return nil
	}
	if err := bind(shader.AnnotationArgOpaqueDepth, opaque); err != nil {
		return nil, err
	}
	if key.near != 0 {
		if err := bind(shader.AnnotationArgNearDepth, near); err != nil {
			return nil, err
		}
	}
	if err := b.initBindGroup(p, prog.peel, prog.fragment.BindGroupLayoutDescriptor(groupPeel)); err != nil {
		p.Release()
		return nil, err
	}
	b.peelGroups[key] = p
	return p, nil
}

// quadGroupLocked returns the bind group sampling a layer texture.
func (b *wgpuRendererBackendImpl) quadGroupLocked(id uint64, in *wgpuTexture) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := b.quadGroups[id]; ok {
		return p, nil
	}
	_, binding, ok := b.variants.QuadFragment().ProviderBinding(shader.AnnotationArgSourceTexture)
	if !ok {
		return nil, errors.New("quad fragment declares no source texture")
	}
	p := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("quad source %d", id),
		bind_group_provider.WithTextureView(binding, in.view))
	if err := b.initBindGroup(p, b.quadLayout, b.variants.QuadFragment().BindGroupLayoutDescriptor(0)); err != nil {
		p.Release()
		return nil, err
	}
	b.quadGroups[id] = p
	return p, nil
}

// initBindGroup creates the buffers a layout declares and the bind group itself. Texture
// bindings must already hold a view on the provider.
func (b *wgpuRendererBackendImpl) initBindGroup(provider bind_group_provider.BindGroupProvider, layout *wgpu.BindGroupLayout, descriptor wgpu.BindGroupLayoutDescriptor) error {
	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		if entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined {
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: tv}
			continue
		}

		var usage wgpu.BufferUsage
		switch entry.Buffer.Type {
		case wgpu.BufferBindingTypeUniform:
			usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
		default:
			return fmt.Errorf("%s: binding %d is neither a buffer nor a texture", provider.Label(), binding)
		}
		buf := provider.Buffer(binding)
		if buf == nil {
			var err error
			buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
				Size:  entry.Buffer.MinBindingSize,
				Usage: usage,
			})
			if err != nil {
				return err
			}
			provider.SetBuffer(binding, buf)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) writeBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}
