package target_pool

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
)

// countingFactory allocates handle-less textures and records every creation and release.
type countingFactory struct {
	depthCreated  int
	targetCreated int
	released      int
	failAfter     int // fail the Nth CreateRenderTarget call (1-based); 0 disables
}

func (f *countingFactory) CreateDepthTexture(w, h int, label string) (texture.Texture, error) {
	f.depthCreated++
	return texture.NewTexture(texture.KindDepth, w, h, nil, func() { f.released++ }, texture.WithLabel(label)), nil
}

func (f *countingFactory) CreateRenderTarget(w, h int, label string) (texture.RenderTarget, error) {
	f.targetCreated++
	if f.failAfter > 0 && f.targetCreated == f.failAfter {
		return nil, errors.New("out of memory")
	}
	color := texture.NewTexture(texture.KindColor, w, h, nil, func() { f.released++ })
	return texture.NewRenderTarget(color, texture.WithTargetLabel(label)), nil
}

func TestAllocateCreatesEverythingAtOneSize(t *testing.T) {
	f := &countingFactory{}
	p := NewPool(f)
	if err := p.Allocate(64, 32, 3); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if f.depthCreated != 3 {
		t.Errorf("depth textures created = %d, want 3", f.depthCreated)
	}
	if f.targetCreated != 5 {
		t.Errorf("render targets created = %d, want 5 (shared, composite, 3 layers)", f.targetCreated)
	}
	assertUniformSize(t, p, 64, 32)
}

func TestSetLayerCountGrowKeepsExistingTargets(t *testing.T) {
	f := &countingFactory{}
	p := NewPool(f)
	if err := p.Allocate(16, 16, 3); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	before := p.Layers()
	created := f.targetCreated

	allocated, disposed, err := p.SetLayerCount(5)
	if err != nil {
		t.Fatalf("SetLayerCount: %v", err)
	}
	if allocated != 2 || disposed != 0 {
		t.Errorf("SetLayerCount(5) = (%d, %d), want (2, 0)", allocated, disposed)
	}
	if f.targetCreated-created != 2 {
		t.Errorf("factory created %d targets, want 2", f.targetCreated-created)
	}
	for i, rt := range before {
		if p.Layer(i) != rt {
			t.Errorf("layer %d identity changed on grow", i)
		}
	}
	if p.LayerCount() != 5 {
		t.Errorf("LayerCount = %d, want 5", p.LayerCount())
	}
}

func TestSetLayerCountShrinkDisposesTrailing(t *testing.T) {
	f := &countingFactory{}
	p := NewPool(f)
	if err := p.Allocate(16, 16, 5); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	before := p.Layers()

	allocated, disposed, err := p.SetLayerCount(2)
	if err != nil {
		t.Fatalf("SetLayerCount: %v", err)
	}
	if allocated != 0 || disposed != 3 {
		t.Errorf("SetLayerCount(2) = (%d, %d), want (0, 3)", allocated, disposed)
	}
	for i, rt := range before {
		if i < 2 {
			if rt.Disposed() || p.Layer(i) != rt {
				t.Errorf("layer %d should be kept", i)
			}
			continue
		}
		if !rt.Disposed() {
			t.Errorf("layer %d should be disposed", i)
		}
	}
	if f.released != 3 {
		t.Errorf("released = %d, want 3", f.released)
	}
}

func TestResizeRecreatesAndPreservesLayerCount(t *testing.T) {
	f := &countingFactory{}
	p := NewPool(f)
	if err := p.Allocate(16, 16, 2); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	oldDepth := p.OpaqueDepth()
	oldLayers := p.Layers()

	if err := p.Resize(40, 24); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if !oldDepth.Disposed() {
		t.Error("old opaque depth should be disposed after resize")
	}
	for i, rt := range oldLayers {
		if !rt.Disposed() {
			t.Errorf("old layer %d should be disposed after resize", i)
		}
	}
	if p.LayerCount() != 2 {
		t.Errorf("LayerCount = %d, want 2", p.LayerCount())
	}
	assertUniformSize(t, p, 40, 24)

	created := f.targetCreated
	if err := p.Resize(40, 24); err != nil {
		t.Fatalf("Resize same size: %v", err)
	}
	if f.targetCreated != created {
		t.Error("resize to the current size should not reallocate")
	}
}

func TestAllocateFailureLeavesPoolUnallocated(t *testing.T) {
	f := &countingFactory{failAfter: 4}
	p := NewPool(f)
	err := p.Allocate(8, 8, 3)
	if err == nil {
		t.Fatal("expected allocation failure")
	}
	if p.Allocated() {
		t.Error("pool should not report allocated after a failed Allocate")
	}
	if f.released != f.depthCreated+f.targetCreated-1 {
		t.Errorf("released %d of %d created resources", f.released, f.depthCreated+f.targetCreated-1)
	}
	if _, _, err := p.SetLayerCount(1); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("SetLayerCount on failed pool = %v, want ErrNotAllocated", err)
	}
}

func TestNegativeLayerCountIsZero(t *testing.T) {
	p := NewPool(&countingFactory{})
	if err := p.Allocate(4, 4, -3); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if p.LayerCount() != 0 || len(p.Layers()) != 0 {
		t.Errorf("LayerCount = %d, want 0", p.LayerCount())
	}
}

func TestPingPongRoles(t *testing.T) {
	a := texture.NewTexture(texture.KindDepth, 1, 1, nil, nil)
	b := texture.NewTexture(texture.KindDepth, 1, 1, nil, nil)
	pp := NewPingPong(a, b)

	for i := 0; i < 5; i++ {
		wantWrite := pp.At((i + 1) % 2)
		if pp.Write() != wantWrite {
			t.Errorf("pass %d: write = id %d, want id %d", i, pp.Write().ID(), wantWrite.ID())
		}
		if i == 0 {
			if pp.Near() != nil {
				t.Error("pass 0 must not have a near reference")
			}
		} else if pp.Near() != pp.At(i%2) {
			t.Errorf("pass %d: near = id %d, want id %d", i, pp.Near().ID(), pp.At(i%2).ID())
		}
		if i > 0 && pp.Near() == pp.Write() {
			t.Errorf("pass %d: near and write must differ", i)
		}
		pp.Swap()
	}

	pp.Reset()
	if pp.Pass() != 0 || pp.Near() != nil || pp.Write() != b {
		t.Error("Reset should rewind to pass 0")
	}
}

func assertUniformSize(t *testing.T, p Pool, w, h int) {
	t.Helper()
	textures := []texture.Texture{p.OpaqueDepth(), p.PingPong().At(0), p.PingPong().At(1)}
	for _, tex := range textures {
		if tex.Width() != w || tex.Height() != h {
			t.Errorf("depth texture %q is %dx%d, want %dx%d", tex.Label(), tex.Width(), tex.Height(), w, h)
		}
	}
	targets := append([]texture.RenderTarget{p.SharedTarget(), p.CompositeTarget()}, p.Layers()...)
	for _, rt := range targets {
		if rt.Width() != w || rt.Height() != h {
			t.Errorf("target %q is %dx%d, want %dx%d", rt.Label(), rt.Width(), rt.Height(), w, h)
		}
	}
}
