package renderer

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/half"
)

// attachmentKey names the attachment formats of a pass for the pipeline cache.
func attachmentKey(colorFormat wgpu.TextureFormat, hasDepth bool) string {
	if hasDepth {
		return fmt.Sprintf("%v+%v", colorFormat, wgpuDepthFormat)
	}
	return fmt.Sprint(colorFormat)
}

// meshPipelineLocked returns the render pipeline of a program for a state and pass, creating it on first use.
func (b *wgpuRendererBackendImpl) meshPipelineLocked(prog *wgpuProgram, state pipeline.RenderState, pt passTarget) (pipeline.Pipeline, error) {
	hasDepth := pt.depth != nil
	key := pipeline.Key("mesh|"+prog.key.String(), state, attachmentKey(pt.colorFormat, hasDepth))
	if p, ok := b.pipelines[key]; ok {
		return p, nil
	}
	p := pipeline.NewPipeline("mesh|"+prog.key.String(), state, pipeline.WithColorFormat(attachmentKey(pt.colorFormat, hasDepth)))

	vertex := b.variants.MeshVertex()
	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: prog.layout,
		Vertex: wgpu.VertexState{
			Module:     b.meshVertex,
			EntryPoint: vertex.EntryPoint(),
			Buffers:    vertex.VertexLayout(0),
		},
		Fragment: &wgpu.FragmentState{
			Module:     prog.module,
			EntryPoint: prog.fragment.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{colorTarget(state, pt.colorFormat)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(state.Side),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil(state, hasDepth),
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetHandle(created)
	b.pipelines[key] = p
	return p, nil
}

// quadPipelineLocked returns the fullscreen quad pipeline for a render state and pass.
func (b *wgpuRendererBackendImpl) quadPipelineLocked(state pipeline.RenderState, pt passTarget) (pipeline.Pipeline, error) {
	hasDepth := pt.depth != nil
	key := pipeline.Key("quad", state, attachmentKey(pt.colorFormat, hasDepth))
	if p, ok := b.pipelines[key]; ok {
		return p, nil
	}
	p := pipeline.NewPipeline("quad", state, pipeline.WithColorFormat(attachmentKey(pt.colorFormat, hasDepth)))
	module, frag := b.quadFragment, b.variants.QuadFragment()
	if state.ToneMapping != pipeline.ToneMappingNone {
		module, frag = b.quadToneMap, b.variants.QuadToneMapFragment()
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: b.quadPipeLayout,
		Vertex: wgpu.VertexState{
			Module:     b.quadVertex,
			EntryPoint: b.variants.QuadVertex().EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: frag.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{colorTarget(state, pt.colorFormat)},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil(state, hasDepth),
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetHandle(created)
	b.pipelines[key] = p
	return p, nil
}

func colorTarget(state pipeline.RenderState, format wgpu.TextureFormat) wgpu.ColorTargetState {
	target := wgpu.ColorTargetState{
		Format:    format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if state.Enabled() {
		color, alpha := state.Equation()
		target.Blend = &wgpu.BlendState{
			Color: blendComponent(color),
			Alpha: blendComponent(alpha),
		}
	}
	return target
}

func blendComponent(c pipeline.BlendComponent) wgpu.BlendComponent {
	return wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: blendFactor(c.SrcFactor),
		DstFactor: blendFactor(c.DstFactor),
	}
}

func blendFactor(f pipeline.BlendFactor) wgpu.BlendFactor {
	switch f {
	case pipeline.BlendFactorOne:
		return wgpu.BlendFactorOne
	case pipeline.BlendFactorSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case pipeline.BlendFactorOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	}
	return wgpu.BlendFactorZero
}

func cullMode(side pipeline.Side) wgpu.CullMode {
	switch side {
	case pipeline.SideFront:
		return wgpu.CullModeBack
	case pipeline.SideBack:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

// depthStencil returns nil for passes without a depth attachment.
func depthStencil(state pipeline.RenderState, hasDepth bool) *wgpu.DepthStencilState {
	if !hasDepth {
		return nil
	}
	depthCompare := wgpu.CompareFunctionLess
	if !state.DepthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}
	return &wgpu.DepthStencilState{
		Format:            wgpuDepthFormat,
		DepthWriteEnabled: state.DepthWrite,
		DepthCompare:      depthCompare,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

// readTextureLocked copies an RGBA16Float texture into a mapped staging buffer and expands it
// to float32.
func (b *wgpuRendererBackendImpl) readTextureLocked(t *wgpuTexture) (*exr.RGBAImage, error) {
	if t.format != wgpuColorFormat {
		return nil, fmt.Errorf("cannot read back texture format %v", t.format)
	}
	const texelBytes = 8
	rowBytes := uint32(t.w * texelBytes)
	// Buffer copies need rows aligned to 256 bytes.
	stride := (rowBytes + 255) &^ 255
	size := uint64(stride) * uint64(t.h)

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  stride,
				RowsPerImage: uint32(t.h),
			},
		},
		&wgpu.Extent3D{Width: uint32(t.w), Height: uint32(t.h), DepthOrArrayLayers: 1},
	)
	if err := b.submit(encoder); err != nil {
		return nil, err
	}

	var status wgpu.BufferMapAsyncStatus
	done := false
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	for !done {
		b.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map readback buffer: status %v", status)
	}
	defer staging.Unmap()

	data := staging.GetMappedRange(0, uint(size))
	img := exr.NewRGBAImage(image.Rect(0, 0, t.w, t.h))
	for y := 0; y < t.h; y++ {
		row := data[uint32(y)*stride : uint32(y)*stride+rowBytes]
		half.ConvertBytesToFloat32(img.Pix[y*t.w*4:(y+1)*t.w*4], row)
	}
	return img, nil
}
