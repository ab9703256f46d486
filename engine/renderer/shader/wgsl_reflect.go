package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// layout is the host-shareable size and alignment of a WGSL type.
type layout struct {
	size, align uint64
}

// member is one field of a reflected struct. loc is -1 when the field carries no @location.
type member struct {
	name, typ string
	loc       int
	builtin   bool
}

type structDecl struct {
	name    string
	members []member
}

var (
	structRe  = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	memberRe  = regexp.MustCompile(`^((?:@\w+(?:\([^)]*\))?\s*)*)(\w+)\s*:\s*(.+)$`)
	locRe     = regexp.MustCompile(`@location\((\d+)\)`)
	bindingRe = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
	entryRe   = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
	}
)

// scalar and vector layouts used by the mesh and quad shaders. Both the templated and
// the shorthand spelling are accepted.
var primitiveLayouts = func() map[string]layout {
	m := map[string]layout{
		"f32": {4, 4}, "i32": {4, 4}, "u32": {4, 4}, "bool": {4, 4},
		"mat3x3<f32>": {48, 16}, "mat4x4<f32>": {64, 16},
		"mat3x3f": {48, 16}, "mat4x4f": {64, 16},
	}
	for _, s := range []string{"f32", "i32", "u32"} {
		short := s[:1]
		m["vec2<"+s+">"], m["vec2"+short] = layout{8, 8}, layout{8, 8}
		m["vec3<"+s+">"], m["vec3"+short] = layout{12, 16}, layout{12, 16}
		m["vec4<"+s+">"], m["vec4"+short] = layout{16, 16}, layout{16, 16}
	}
	return m
}()

var vertexFormats = map[string]wgpu.VertexFormat{
	"f32": wgpu.VertexFormatFloat32, "vec2<f32>": wgpu.VertexFormatFloat32x2, "vec2f": wgpu.VertexFormatFloat32x2,
	"vec3<f32>": wgpu.VertexFormatFloat32x3, "vec3f": wgpu.VertexFormatFloat32x3,
	"vec4<f32>": wgpu.VertexFormatFloat32x4, "vec4f": wgpu.VertexFormatFloat32x4,
	"u32": wgpu.VertexFormatUint32, "i32": wgpu.VertexFormatSint32,
}

// alignUp rounds v up to a multiple of a, which must be a power of two.
func alignUp(a, v uint64) uint64 {
	if a == 0 {
		return v
	}
	return (v + a - 1) &^ (a - 1)
}

// stripComments removes nested block comments and line comments from WGSL source.
//
// Parameters:
//   - source: raw WGSL source
//
// Returns:
//   - string: the source without comments, line structure preserved for line comments
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case strings.HasPrefix(source[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(source[i:], "*/"):
			depth--
			i++
		case depth > 0:
		case strings.HasPrefix(source[i:], "//"):
			nl := strings.IndexByte(source[i:], '\n')
			if nl < 0 {
				return sb.String()
			}
			i += nl - 1
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// parseStructs reflects every struct declaration in comment-free source.
func parseStructs(source string) []structDecl {
	var out []structDecl
	for _, m := range structRe.FindAllStringSubmatch(source, -1) {
		decl := structDecl{name: m[1]}
		for _, part := range splitFields(m[2]) {
			fm := memberRe.FindStringSubmatch(strings.TrimSpace(part))
			if fm == nil {
				continue
			}
			mem := member{name: fm[2], typ: strings.TrimSpace(fm[3]), loc: -1}
			mem.builtin = strings.Contains(fm[1], "@builtin")
			if lm := locRe.FindStringSubmatch(fm[1]); lm != nil {
				mem.loc, _ = strconv.Atoi(lm[1])
			}
			decl.members = append(decl.members, mem)
		}
		out = append(out, decl)
	}
	return out
}

// splitFields splits a struct body on commas outside angle brackets, so array<T, N> stays whole.
func splitFields(body string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range body {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, body[start:])
}

// resolveTypeLayout returns the size and alignment of a WGSL type. Fixed-size arrays are
// expanded with their element stride; runtime-sized arrays report a single element.
//
// Parameters:
//   - typ: the WGSL type, e.g. "mat4x4<f32>", "Lights", "array<DirectionalLight, 4>"
//   - known: layouts of structs resolved so far
//
// Returns:
//   - layout: the resolved layout
//   - bool: false when the type is unknown
func resolveTypeLayout(typ string, known map[string]layout) (layout, bool) {
	if l, ok := primitiveLayouts[typ]; ok {
		return l, true
	}
	if l, ok := known[typ]; ok {
		return l, true
	}
	inner, ok := strings.CutPrefix(typ, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return layout{}, false
	}
	elemName, countStr, fixed := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
	elem, ok := resolveTypeLayout(strings.TrimSpace(elemName), known)
	if !ok {
		return layout{}, false
	}
	stride := alignUp(elem.align, elem.size)
	if !fixed {
		return layout{stride, elem.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return layout{}, false
	}
	return layout{n * stride, elem.align}, true
}

// computeStructSizes lays out every struct, repeating until structs that reference other
// structs have been resolved. Structs that never resolve are left out of the result.
func computeStructSizes(structs []structDecl) map[string]layout {
	known := make(map[string]layout, len(structs))
	for progress := true; progress; {
		progress = false
		for _, s := range structs {
			if _, done := known[s.name]; done {
				continue
			}
			var offset uint64
			align := uint64(1)
			ok := true
			for _, m := range s.members {
				if m.builtin {
					continue
				}
				l, found := resolveTypeLayout(m.typ, known)
				if !found {
					ok = false
					break
				}
				offset = alignUp(l.align, offset) + l.size
				align = max(align, l.align)
			}
			if ok {
				known[s.name] = layout{alignUp(align, offset), align}
				progress = true
			}
		}
	}
	return known
}

// parseVertexLayouts builds one vertex buffer layout per vertex input struct, meaning a struct
// with @location members and no @builtin members. Structs with unsupported attribute types
// are skipped.
//
// Parameters:
//   - source: raw WGSL source
//
// Returns:
//   - map[int][]wgpu.VertexBufferLayout: layouts keyed by buffer slot in declaration order
func parseVertexLayouts(source string) map[int][]wgpu.VertexBufferLayout {
	out := make(map[int][]wgpu.VertexBufferLayout)
	for _, s := range parseStructs(stripComments(source)) {
		attrs, stride, ok := vertexAttributes(s)
		if !ok {
			continue
		}
		out[len(out)] = []wgpu.VertexBufferLayout{{
			ArrayStride: stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}}
	}
	return out
}

func vertexAttributes(s structDecl) ([]wgpu.VertexAttribute, uint64, bool) {
	var attrs []wgpu.VertexAttribute
	var offset uint64
	for _, m := range s.members {
		if m.builtin || m.loc < 0 {
			return nil, 0, false
		}
		format, ok := vertexFormats[m.typ]
		if !ok {
			return nil, 0, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{Format: format, Offset: offset, ShaderLocation: uint32(m.loc)})
		offset += primitiveLayouts[m.typ].size
	}
	return attrs, offset, len(attrs) > 0
}

// parseBindGroupLayouts reflects every @group/@binding variable into layout entries with the
// given stage visibility. Buffer entries get MinBindingSize from the bound type's layout.
//
// Parameters:
//   - source: raw WGSL source
//   - visibility: stage the entries are visible to
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group, entries sorted by binding
//   - map[int]map[int]string: variable names keyed by group and binding
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	cleaned := stripComments(source)
	sizes := computeStructSizes(parseStructs(cleaned))

	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)
	for _, m := range bindingRe.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		typ := strings.TrimSpace(m[5])

		e := classifyResource(uint32(binding), visibility, strings.TrimSpace(m[3]), typ)
		if e.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := resolveTypeLayout(typ, sizes); ok {
				e.Buffer.MinBindingSize = l.size
			}
		}
		entries[group] = append(entries[group], e)
		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][binding] = m[4]
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for g, es := range entries {
		sort.Slice(es, func(i, j int) bool { return es[i].Binding < es[j].Binding })
		out[g] = wgpu.BindGroupLayoutDescriptor{Entries: es}
	}
	return out, names
}

// classifyResource maps a WGSL variable declaration to a layout entry. Buffers are keyed off
// the address space, handle types off the type name. Storage textures are not reflected.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, space, typ string) wgpu.BindGroupLayoutEntry {
	e := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
	switch {
	case space == "uniform":
		e.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(space, "storage") && strings.Contains(space, "read_write"):
		e.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(space, "storage"):
		e.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case typ == "sampler":
		e.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typ == "sampler_comparison":
		e.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typ, "texture_depth_2d"):
		e.Texture.SampleType = wgpu.TextureSampleTypeDepth
		e.Texture.ViewDimension = textureDimension(strings.TrimPrefix(typ, "texture_depth_"))
	case strings.HasPrefix(typ, "texture_"):
		base, param, _ := strings.Cut(strings.TrimPrefix(typ, "texture_"), "<")
		e.Texture.ViewDimension = textureDimension(base)
		switch strings.TrimSuffix(param, ">") {
		case "i32":
			e.Texture.SampleType = wgpu.TextureSampleTypeSint
		case "u32":
			e.Texture.SampleType = wgpu.TextureSampleTypeUint
		default:
			e.Texture.SampleType = wgpu.TextureSampleTypeFloat
		}
	}
	return e
}

func textureDimension(name string) wgpu.TextureViewDimension {
	switch name {
	case "2d_array":
		return wgpu.TextureViewDimension2DArray
	case "cube":
		return wgpu.TextureViewDimensionCube
	case "3d":
		return wgpu.TextureViewDimension3D
	default:
		return wgpu.TextureViewDimension2D
	}
}

// parseEntryPoint returns the name of the first @vertex or @fragment function, or "" if none.
func parseEntryPoint(source string, shaderType ShaderType) string {
	re, ok := entryRe[shaderType]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(stripComments(source)); m != nil {
		return m[1]
	}
	return ""
}
