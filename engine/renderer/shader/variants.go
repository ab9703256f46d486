package shader

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/mesh_vertex.wgsl
var meshVertexSource string

//go:embed assets/mesh_fragment.wgsl
var meshFragmentSource string

//go:embed assets/quad_vertex.wgsl
var quadVertexSource string

//go:embed assets/quad_fragment.wgsl
var quadFragmentSource string

// Variants is the precompiled shader set used by the renderer: one mesh vertex shader shared by
// every material, one mesh fragment shader per material.VariantKey, and the fullscreen quad
// shaders: a plain copy and a tone-mapping copy for display output.
type Variants struct {
	meshVertex   Shader
	meshFragment map[material.VariantKey]Shader
	quadVertex   Shader
	quadFragment Shader
	quadToneMap  Shader
}

// NewVariants pre-processes and parses every shader of the set.
//
// Returns:
//   - *Variants: the compiled set
//   - error: the first shader that failed to pre-process or parse
func NewVariants() (*Variants, error) {
	v := &Variants{meshFragment: make(map[material.VariantKey]Shader)}
	var err error
	if v.meshVertex, err = NewShader("mesh_vertex", ShaderTypeVertex, meshVertexSource); err != nil {
		return nil, err
	}
	for _, key := range material.AllVariants() {
		frag, err := NewMeshFragment(key)
		if err != nil {
			return nil, err
		}
		v.meshFragment[key] = frag
	}
	if v.quadVertex, err = NewShader("quad_vertex", ShaderTypeVertex, quadVertexSource); err != nil {
		return nil, err
	}
	if v.quadFragment, err = NewShader("quad_fragment", ShaderTypeFragment, quadFragmentSource); err != nil {
		return nil, err
	}
	v.quadToneMap, err = NewShader("quad_fragment|tone_mapping", ShaderTypeFragment, quadFragmentSource,
		WithDefines(map[string]bool{FlagToneMapping: true}))
	if err != nil {
		return nil, err
	}
	return v, nil
}

// NewMeshFragment builds the mesh fragment shader for one variant key.
//
// Parameters:
//   - key: the variant key whose defines select the peel test
//
// Returns:
//   - Shader: the fragment shader
//   - error: if pre-processing or parsing fails
func NewMeshFragment(key material.VariantKey) (Shader, error) {
	return NewShader("mesh_fragment|"+key.String(), ShaderTypeFragment, meshFragmentSource, WithDefines(key.Defines()))
}

// MeshVertex returns the vertex shader shared by every mesh variant.
func (v *Variants) MeshVertex() Shader {
	return v.meshVertex
}

// MeshFragment returns the fragment shader compiled for a variant key.
//
// Parameters:
//   - key: the variant key
//
// Returns:
//   - Shader: the fragment shader
//   - error: if the key is not part of the set
func (v *Variants) MeshFragment(key material.VariantKey) (Shader, error) {
	s, ok := v.meshFragment[key]
	if !ok {
		return nil, fmt.Errorf("no mesh fragment variant %s", key)
	}
	return s, nil
}

// QuadVertex returns the fullscreen triangle vertex shader.
func (v *Variants) QuadVertex() Shader {
	return v.quadVertex
}

// QuadFragment returns the fullscreen texture copy fragment shader.
func (v *Variants) QuadFragment() Shader {
	return v.quadFragment
}

// QuadToneMapFragment returns the fullscreen copy that applies ACES filmic tone mapping.
func (v *Variants) QuadToneMapFragment() Shader {
	return v.quadToneMap
}

// All returns every shader of the set, mesh fragments ordered by variant key string.
//
// Returns:
//   - []Shader: the shaders
func (v *Variants) All() []Shader {
	keys := make([]material.VariantKey, 0, len(v.meshFragment))
	for k := range v.meshFragment {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	out := []Shader{v.meshVertex}
	for _, k := range keys {
		out = append(out, v.meshFragment[k])
	}
	return append(out, v.quadVertex, v.quadFragment, v.quadToneMap)
}

// MergeBindGroupLayouts combines the bind group layouts declared by the stages of one pipeline.
// A binding declared by more than one stage keeps the first entry with the visibilities ORed.
//
// Parameters:
//   - shaders: the pipeline stages
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: merged descriptors keyed by group index
func MergeBindGroupLayouts(shaders ...Shader) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, s := range shaders {
		for group, desc := range s.BindGroupLayoutDescriptors() {
			if merged[group] == nil {
				merged[group] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if prev, ok := merged[group][e.Binding]; ok {
					prev.Visibility |= e.Visibility
					merged[group][e.Binding] = prev
					continue
				}
				merged[group][e.Binding] = e
			}
		}
	}
	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(merged))
	for group, entries := range merged {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		out[group] = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("group-%d", group), Entries: list}
	}
	return out
}
