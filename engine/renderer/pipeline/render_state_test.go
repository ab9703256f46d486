package pipeline

import "testing"

func TestEquation(t *testing.T) {
	tests := []struct {
		name      string
		state     RenderState
		src, dst  [4]float32
		wantColor float32
		wantAlpha float32
	}{
		{"none overwrites", Overwrite(), [4]float32{0.2, 0, 0, 0.5}, [4]float32{1, 0, 0, 1}, 0.2, 0.5},
		{"normal straight over", Over(), [4]float32{1, 0, 0, 0.25}, [4]float32{0.5, 0, 0, 1}, 0.25 + 0.5*0.75, 1},
		{"custom one zero", RenderState{Blending: BlendingCustom, BlendSrc: BlendFactorOne, BlendDst: BlendFactorZero},
			[4]float32{0.3, 0, 0, 0.4}, [4]float32{0.9, 0, 0, 0.9}, 0.3, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, a := tt.state.Equation()
			if got := c.Apply(tt.src[0], tt.dst[0], tt.src[3]); got != tt.wantColor {
				t.Errorf("color = %v, want %v", got, tt.wantColor)
			}
			if got := a.Apply(tt.src[3], tt.dst[3], tt.src[3]); got != tt.wantAlpha {
				t.Errorf("alpha = %v, want %v", got, tt.wantAlpha)
			}
		})
	}
}

func TestStateKeyDistinguishesState(t *testing.T) {
	peel := RenderState{Blending: BlendingCustom, BlendSrc: BlendFactorOne, BlendDst: BlendFactorZero, DepthTest: true, DepthWrite: true, Side: SideDouble}
	plain := RenderState{Blending: BlendingNormal, DepthTest: true, Side: SideFront}

	keys := map[string]string{}
	for name, s := range map[string]RenderState{"peel": peel, "plain": plain, "overwrite": Overwrite(), "over": Over(), "present": Present(ToneMappingACESFilmic)} {
		k := s.Key()
		if other, ok := keys[k]; ok {
			t.Errorf("%s and %s share key %q", name, other, k)
		}
		keys[k] = name
	}

	if peel.Key() != (RenderState{Blending: BlendingCustom, BlendSrc: BlendFactorOne, BlendDst: BlendFactorZero, DepthTest: true, DepthWrite: true, Side: SideDouble}).Key() {
		t.Error("equal states must produce equal keys")
	}
}

func TestNewPipelineKey(t *testing.T) {
	p := NewPipeline("1|0", Over(), WithColorFormat("rgba16float"))
	if p.PipelineKey() != Key("1|0", Over(), "rgba16float") {
		t.Errorf("PipelineKey = %q", p.PipelineKey())
	}
	if p.Handle() != nil {
		t.Error("handle should start nil")
	}
	p.SetHandle(42)
	if p.Handle() != 42 {
		t.Error("SetHandle did not store the handle")
	}
}

func TestToneMappingACESFilmic(t *testing.T) {
	if got := ToneMappingNone.Apply([3]float32{2, 0.5, -1}); got != [3]float32{2, 0.5, -1} {
		t.Errorf("none changed the color: %v", got)
	}

	black := ToneMappingACESFilmic.Apply([3]float32{})
	if black != [3]float32{} {
		t.Errorf("black maps to %v, want 0", black)
	}
	gray := ToneMappingACESFilmic.Apply([3]float32{1, 1, 1})
	if gray[0] < 0.7 || gray[0] > 0.82 {
		t.Errorf("linear 1 maps to %v, want about 0.76", gray[0])
	}
	for i := 1; i < 3; i++ {
		if d := gray[i] - gray[0]; d > 1e-3 || d < -1e-3 {
			t.Errorf("gray input lost neutrality: %v", gray)
		}
	}

	prev := float32(-1)
	for _, v := range []float32{0.01, 0.1, 0.5, 1, 2, 8, 100} {
		got := ToneMappingACESFilmic.Apply([3]float32{v, v, v})[0]
		if got <= prev || got > 1 {
			t.Errorf("Apply(%v) = %v, want increasing and at most 1 (previous %v)", v, got, prev)
		}
		prev = got
	}
}
