package texture

import (
	"errors"
	"testing"
)

func TestTextureDisposeReleasesOnce(t *testing.T) {
	released := 0
	tex := NewTexture(KindDepth, 4, 2, "native", func() { released++ }, WithLabel("depth-a"))

	if tex.Width() != 4 || tex.Height() != 2 || tex.Kind() != KindDepth || tex.Label() != "depth-a" {
		t.Fatalf("unexpected texture state: %dx%d %s %q", tex.Width(), tex.Height(), tex.Kind(), tex.Label())
	}
	if err := Check(tex); err != nil {
		t.Fatalf("Check before dispose: %v", err)
	}

	tex.Dispose()
	tex.Dispose()
	if released != 1 {
		t.Errorf("release called %d times, want 1", released)
	}
	if tex.Handle() != nil {
		t.Error("handle should be cleared after dispose")
	}
	if err := Check(tex); !errors.Is(err, ErrDisposed) {
		t.Errorf("Check after dispose = %v, want ErrDisposed", err)
	}
}

func TestTextureIDsAreUnique(t *testing.T) {
	a := NewTexture(KindColor, 1, 1, nil, nil)
	b := NewTexture(KindColor, 1, 1, nil, nil)
	if a.ID() == b.ID() {
		t.Errorf("duplicate texture id %d", a.ID())
	}
}

func TestRenderTargetBorrowsDepth(t *testing.T) {
	depth := NewTexture(KindDepth, 8, 8, nil, nil)
	color := NewTexture(KindColor, 8, 8, nil, nil)
	rt := NewRenderTarget(color, WithTargetLabel("layer-0"), WithDepthAttachment(depth))

	if rt.DepthTexture() != depth {
		t.Fatal("depth attachment not applied")
	}
	rt.Dispose()
	if !color.Disposed() {
		t.Error("owned color texture should be disposed with the target")
	}
	if depth.Disposed() {
		t.Error("borrowed depth texture must survive target dispose")
	}
	if rt.DepthTexture() != nil {
		t.Error("depth attachment should be detached on dispose")
	}
	if err := CheckTarget(rt); !errors.Is(err, ErrDisposed) {
		t.Errorf("CheckTarget after dispose = %v, want ErrDisposed", err)
	}
}

func TestCheckTargetReportsDisposedDepth(t *testing.T) {
	depth := NewTexture(KindDepth, 2, 2, nil, nil)
	rt := NewRenderTarget(NewTexture(KindColor, 2, 2, nil, nil), WithDepthAttachment(depth))
	depth.Dispose()
	if err := CheckTarget(rt); !errors.Is(err, ErrDisposed) {
		t.Errorf("CheckTarget = %v, want ErrDisposed", err)
	}
	if err := CheckTarget(nil); err != nil {
		t.Errorf("CheckTarget(nil) = %v, want nil", err)
	}
}
