package material

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/texture"
)

func depthTex() texture.Texture {
	return texture.NewTexture(texture.KindDepth, 4, 4, nil, nil)
}

func TestDisabledKeyIgnoresBindings(t *testing.T) {
	a := NewPeelMaterial(WithTransparent(true))
	b := NewPeelMaterial(WithTransparent(true))
	a.SetNearDepth(depthTex())
	a.SetOpaqueDepth(depthTex())
	b.SetOpaqueDepth(nil)

	if a.VariantKey() != b.VariantKey() {
		t.Errorf("disabled keys differ: %s vs %s", a.VariantKey(), b.VariantKey())
	}
	if a.VariantKey() != NewMaterial().VariantKey() {
		t.Errorf("disabled peel material key %s differs from plain material key %s", a.VariantKey(), NewMaterial().VariantKey())
	}
}

func TestEnabledKeyDependsOnNearNullness(t *testing.T) {
	m := NewPeelMaterial(WithTransparent(true))
	m.EnablePeeling(true)
	first := m.VariantKey()
	m.SetNearDepth(depthTex())
	peel := m.VariantKey()

	if first == peel {
		t.Fatalf("(enabled, nil near) and (enabled, bound near) share key %s", first)
	}
	if first != VariantFirstPass || peel != VariantPeel {
		t.Errorf("keys = %s, %s; want %s, %s", first, peel, VariantFirstPass, VariantPeel)
	}
	if first.String() != "1|1" || peel.String() != "1|0" || VariantDisabled.String() != "0|1" {
		t.Errorf("unexpected key strings %q %q %q", first, peel, VariantDisabled)
	}
}

func TestStaleRules(t *testing.T) {
	m := NewPeelMaterial()
	v := m.Version()

	steps := []struct {
		name      string
		apply     func()
		wantStale bool
	}{
		{"enable", func() { m.EnablePeeling(true) }, true},
		{"enable again", func() { m.EnablePeeling(true) }, false},
		{"bind near", func() { m.SetNearDepth(depthTex()) }, true},
		{"swap near texture", func() { m.SetNearDepth(depthTex()) }, false},
		{"bind opaque", func() { m.SetOpaqueDepth(depthTex()) }, false},
		{"resolution", func() { m.SetResolution([2]float32{640, 480}) }, false},
		{"opacity", func() { m.SetOpacity(0.3) }, false},
		{"clear near", func() { m.SetNearDepth(nil) }, true},
		{"disable", func() { m.EnablePeeling(false) }, true},
	}
	for _, s := range steps {
		s.apply()
		stale := m.Version() != v
		if stale != s.wantStale {
			t.Errorf("%s: stale = %v, want %v", s.name, stale, s.wantStale)
		}
		v = m.Version()
	}
}

func TestProgramCacheSharesProgramsByKey(t *testing.T) {
	built := map[VariantKey]int{}
	cache := NewProgramCache(func(k VariantKey) (string, error) {
		built[k]++
		return "program-" + k.String(), nil
	})

	a := NewPeelMaterial(WithTransparent(true))
	b := NewPeelMaterial(WithTransparent(true))
	for _, m := range []Peelable{a, b} {
		m.EnablePeeling(true)
		m.SetNearDepth(depthTex())
	}

	pa, err := cache.Program(a)
	if err != nil {
		t.Fatalf("Program(a): %v", err)
	}
	pb, err := cache.Program(b)
	if err != nil {
		t.Fatalf("Program(b): %v", err)
	}
	if pa != pb {
		t.Errorf("materials with equal keys got different programs: %q vs %q", pa, pb)
	}
	if cache.Compiles() != 1 || built[VariantPeel] != 1 {
		t.Errorf("compiles = %d, want 1", cache.Compiles())
	}
}

func TestProgramCacheReselectsOnlyOnVersionChange(t *testing.T) {
	cache := NewProgramCache(func(k VariantKey) (VariantKey, error) { return k, nil })
	m := NewPeelMaterial(WithTransparent(true))
	m.EnablePeeling(true)

	if p, _ := cache.Program(m); p != VariantFirstPass {
		t.Fatalf("program = %s, want %s", p, VariantFirstPass)
	}
	m.SetNearDepth(depthTex())
	if p, _ := cache.Program(m); p != VariantPeel {
		t.Fatalf("program = %s, want %s", p, VariantPeel)
	}
	selections := cache.Selections()

	m.SetNearDepth(depthTex())
	if _, err := cache.Program(m); err != nil {
		t.Fatal(err)
	}
	if cache.Selections() != selections {
		t.Errorf("swapping the near texture reselected the program")
	}
	if k, ok := cache.BoundKey(m.ID()); !ok || k != VariantPeel {
		t.Errorf("BoundKey = %s, %v", k, ok)
	}

	m.EnablePeeling(false)
	if p, _ := cache.Program(m); p != VariantDisabled {
		t.Errorf("program after disable = %s, want %s", p, VariantDisabled)
	}
	if cache.Compiles() != 3 {
		t.Errorf("compiles = %d, want 3", cache.Compiles())
	}
}

func TestProgramCachePrecompileAndErrors(t *testing.T) {
	boom := errors.New("compile failed")
	cache := NewProgramCache(func(k VariantKey) (int, error) {
		if k == VariantPeel {
			return 0, boom
		}
		return 1, nil
	})
	if err := cache.Precompile(VariantDisabled, VariantFirstPass); err != nil {
		t.Fatalf("Precompile: %v", err)
	}
	if len(cache.Programs()) != 2 {
		t.Errorf("programs = %d, want 2", len(cache.Programs()))
	}
	if _, err := cache.Variant(VariantPeel); !errors.Is(err, boom) {
		t.Errorf("Variant error = %v, want wrapped %v", err, boom)
	}
}

func TestTransparentDefaultsAndAlpha(t *testing.T) {
	m := NewPeelMaterial(WithTransparent(true), WithOpacity(0.5))
	if m.Blending() != pipeline.BlendingNormal || m.DepthWrite() {
		t.Errorf("transparent defaults: blending %s depthWrite %v", m.Blending(), m.DepthWrite())
	}
	m.SetOpacityScale(0.5)
	if m.Alpha() != 0.25 {
		t.Errorf("Alpha = %v, want 0.25", m.Alpha())
	}
	opaque := NewMaterial(WithOpacity(0.5))
	if opaque.Alpha() != 1 {
		t.Errorf("opaque Alpha = %v, want 1", opaque.Alpha())
	}

	m.SetBlending(pipeline.BlendingCustom)
	m.SetBlendFactors(pipeline.BlendFactorOne, pipeline.BlendFactorZero)
	m.SetDepthWrite(true)
	m.SetSide(pipeline.SideDouble)
	want := pipeline.RenderState{
		Blending: pipeline.BlendingCustom, BlendSrc: pipeline.BlendFactorOne, BlendDst: pipeline.BlendFactorZero,
		DepthTest: true, DepthWrite: true, Side: pipeline.SideDouble,
	}
	if m.RenderState() != want {
		t.Errorf("RenderState = %+v, want %+v", m.RenderState(), want)
	}
}

func TestGPUMaterialParamsMarshal(t *testing.T) {
	m := NewPeelMaterial(WithColor([3]float32{1, 0.5, 0.25}), WithTransparent(true), WithOpacity(0.75))
	m.SetResolution([2]float32{800, 600})
	g := NewGPUMaterialParams(m)
	if g.Size() != 32 {
		t.Errorf("Size = %d, want 32", g.Size())
	}
	if g.Color != [4]float32{1, 0.5, 0.25, 0.75} || g.Resolution != [2]float32{800, 600} {
		t.Errorf("params = %+v", g)
	}
	if len(g.Marshal()) != 32 {
		t.Error("marshal length mismatch")
	}
}
