package renderer

import (
	"math"

	"github.com/Carmen-Shannon/oxy-peel/engine/light"
	"github.com/Carmen-Shannon/oxy-peel/engine/model"
	"github.com/Carmen-Shannon/oxy-peel/engine/renderer/pipeline"
	"github.com/go-gl/mathgl/mgl32"
)

// peelRelativeEpsilon keeps a surface that was already peeled from passing the near test
// again because of depth noise: a fragment survives only if its depth is beyond the near
// reference by more than this relative amount.
const peelRelativeEpsilon = 1e-7

// peelInputs are the depth references and screen resolution read by the peel fragment test.
type peelInputs struct {
	opaque     *softDepth
	near       *softDepth
	testNear   bool
	resolution [2]float32
}

// discard reports whether the fragment at pixel center (fx, fy) with depth z fails the peel test.
func (p *peelInputs) discard(fx, fy, z float32) bool {
	u, v := fx/p.resolution[0], fy/p.resolution[1]
	if p.opaque != nil && depthTexel(p.opaque, u, v) < z {
		return true
	}
	if p.testNear && p.near != nil && depthTexel(p.near, u, v) >= z*(1-peelRelativeEpsilon) {
		return true
	}
	return false
}

// depthTexel loads the texel under the normalized screen coordinate (u, v), clamped to the edge.
func depthTexel(d *softDepth, u, v float32) float32 {
	x := int(u * float32(d.w))
	y := int(v * float32(d.h))
	x = max(0, min(x, d.w-1))
	y = max(0, min(y, d.h-1))
	return d.z[y*d.w+x]
}

// fragmentShading is the per-draw fragment state: Lambert-lit base color, the peel test and
// the fixed-function blend and depth state.
type fragmentShading struct {
	color  [3]float32
	alpha  float32
	lights light.Environment
	peel   *peelInputs
	state  pipeline.RenderState
}

// rasterVertex is a vertex after projection: screen position, NDC depth, 1/w and the world
// normal pre-divided by w for perspective-correct interpolation.
type rasterVertex struct {
	x, y, z float32
	invW    float32
	n       mgl32.Vec3
}

// rasterTriangle is a screen-space triangle wound so that its signed area is positive.
type rasterTriangle struct {
	v     [3]rasterVertex
	area  float32
	front bool
	minX  int
	maxX  int
	minY  int
	maxY  int
}

// clipVertex is a vertex in clip space with its world-space normal.
type clipVertex struct {
	pos mgl32.Vec4
	n   mgl32.Vec3
}

// setupTriangles transforms, clips, projects and culls every triangle of a draw item.
//
// Parameters:
//   - it: the draw item
//   - viewProj: the camera view-projection matrix (depth range [0, w])
//   - width: the target width in pixels
//   - height: the target height in pixels
//   - side: which faces survive culling
//
// Returns:
//   - []rasterTriangle: the screen-space triangles in submission order
func setupTriangles(it DrawItem, viewProj mgl32.Mat4, width, height int, side pipeline.Side) []rasterTriangle {
	verts := it.Model.Vertices()
	indices := it.Model.Indices()
	mvp := viewProj.Mul4(it.ModelMatrix)
	normalMat := model.NormalMatrix(it.ModelMatrix)

	clip := make([]clipVertex, len(verts))
	for i, v := range verts {
		p := mgl32.Vec3(v.Position)
		n := mgl32.Vec3(v.Normal)
		clip[i] = clipVertex{
			pos: mvp.Mul4x1(p.Vec4(1)),
			n:   normalMat.Mul4x1(n.Vec4(0)).Vec3(),
		}
	}

	out := make([]rasterTriangle, 0, len(indices)/3)
	var poly, scratch []clipVertex
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		if int(a) >= len(clip) || int(b) >= len(clip) || int(c) >= len(clip) {
			continue
		}
		poly = append(poly[:0], clip[a], clip[b], clip[c])
		// near plane: z >= 0, far plane: z <= w
		scratch = clipPolygon(scratch[:0], poly, func(v mgl32.Vec4) float32 { return v.Z() })
		poly = clipPolygon(poly[:0], scratch, func(v mgl32.Vec4) float32 { return v.W() - v.Z() })
		if len(poly) < 3 {
			continue
		}
		for k := 1; k+1 < len(poly); k++ {
			tri, ok := projectTriangle(poly[0], poly[k], poly[k+1], width, height, side)
			if ok {
				out = append(out, tri)
			}
		}
	}
	return out
}

// clipPolygon clips a convex polygon against the half-space dist(v) >= 0 (Sutherland-Hodgman).
func clipPolygon(dst, poly []clipVertex, dist func(mgl32.Vec4) float32) []clipVertex {
	for i := range poly {
		cur, next := poly[i], poly[(i+1)%len(poly)]
		dc, dn := dist(cur.pos), dist(next.pos)
		if dc >= 0 {
			dst = append(dst, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			dst = append(dst, clipVertex{
				pos: cur.pos.Add(next.pos.Sub(cur.pos).Mul(t)),
				n:   cur.n.Add(next.n.Sub(cur.n).Mul(t)),
			})
		}
	}
	return dst
}

func projectTriangle(a, b, c clipVertex, width, height int, side pipeline.Side) (rasterTriangle, bool) {
	var tri rasterTriangle
	for i, cv := range [3]clipVertex{a, b, c} {
		w := cv.pos.W()
		if w <= 0 {
			return tri, false
		}
		invW := 1 / w
		tri.v[i] = rasterVertex{
			x:    (cv.pos.X()*invW*0.5 + 0.5) * float32(width),
			y:    (0.5 - cv.pos.Y()*invW*0.5) * float32(height),
			z:    cv.pos.Z() * invW,
			invW: invW,
			n:    cv.n.Mul(invW),
		}
	}

	area := edge(tri.v[0], tri.v[1], tri.v[2].x, tri.v[2].y)
	if area == 0 || math.IsNaN(float64(area)) {
		return tri, false
	}
	// Screen y points down, so counter-clockwise NDC winding has negative screen area.
	tri.front = area < 0
	switch side {
	case pipeline.SideFront:
		if !tri.front {
			return tri, false
		}
	case pipeline.SideBack:
		if tri.front {
			return tri, false
		}
	}
	if area < 0 {
		tri.v[1], tri.v[2] = tri.v[2], tri.v[1]
		area = -area
	}
	tri.area = area

	minX := min(tri.v[0].x, tri.v[1].x, tri.v[2].x)
	maxX := max(tri.v[0].x, tri.v[1].x, tri.v[2].x)
	minY := min(tri.v[0].y, tri.v[1].y, tri.v[2].y)
	maxY := max(tri.v[0].y, tri.v[1].y, tri.v[2].y)
	tri.minX = max(0, int(math.Floor(float64(minX))))
	tri.maxX = min(width-1, int(math.Ceil(float64(maxX))))
	tri.minY = max(0, int(math.Floor(float64(minY))))
	tri.maxY = min(height-1, int(math.Ceil(float64(maxY))))
	if tri.minX > tri.maxX || tri.minY > tri.maxY {
		return tri, false
	}
	return tri, true
}

// edge is the signed parallelogram area of (a, b, p); positive when p is right of a->b on a y-down screen.
func edge(a, b rasterVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether the edge a->b of a positively wound triangle is a top or left edge.
func topLeft(a, b rasterVertex) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return (dy == 0 && dx > 0) || dy < 0
}

func covers(e float32, tl bool) bool {
	return e > 0 || (e == 0 && tl)
}

// eachCovered calls fn for every pixel in rows [y0, y1) whose center tri covers under the
// top-left rule, with the barycentric weights of that center.
func eachCovered(tri *rasterTriangle, y0, y1 int, fn func(px, py int, l0, l1, l2 float32)) {
	rowStart, rowEnd := max(tri.minY, y0), min(tri.maxY, y1-1)
	if rowStart > rowEnd {
		return
	}
	v0, v1, v2 := tri.v[0], tri.v[1], tri.v[2]
	tl0, tl1, tl2 := topLeft(v1, v2), topLeft(v2, v0), topLeft(v0, v1)
	invArea := 1 / tri.area

	for py := rowStart; py <= rowEnd; py++ {
		fy := float32(py) + 0.5
		for px := tri.minX; px <= tri.maxX; px++ {
			fx := float32(px) + 0.5
			e0 := edge(v1, v2, fx, fy)
			e1 := edge(v2, v0, fx, fy)
			e2 := edge(v0, v1, fx, fy)
			if !covers(e0, tl0) || !covers(e1, tl1) || !covers(e2, tl2) {
				continue
			}
			fn(px, py, e0*invArea, e1*invArea, e2*invArea)
		}
	}
}

// depthAt interpolates the NDC depth of tri at barycentric weights (l0, l1, l2).
func (tri *rasterTriangle) depthAt(l0, l1, l2 float32) float32 {
	return l0*tri.v[0].z + l1*tri.v[1].z + l2*tri.v[2].z
}

// shade lights the fragment of tri at barycentric weights (l0, l1, l2) and returns its
// straight-alpha color. Back faces shade with the flipped normal.
func (sh *fragmentShading) shade(tri *rasterTriangle, l0, l1, l2 float32) [4]float32 {
	v0, v1, v2 := tri.v[0], tri.v[1], tri.v[2]
	invW := l0*v0.invW + l1*v1.invW + l2*v2.invW
	n := v0.n.Mul(l0).Add(v1.n.Mul(l1)).Add(v2.n.Mul(l2)).Mul(1 / invW)
	if n.Len() > 0 {
		n = n.Normalize()
	}
	if !tri.front {
		n = n.Mul(-1)
	}
	irr := sh.lights.Lambert(n)
	return [4]float32{sh.color[0] * irr.X(), sh.color[1] * irr.Y(), sh.color[2] * irr.Z(), sh.alpha}
}

// rasterizeBand draws every triangle into rows [y0, y1) of the target, in submission order.
//
// Parameters:
//   - color: the color buffer
//   - depth: the depth buffer, or nil for no depth test and no depth write
//   - tris: the triangles of the draw
//   - sh: the fragment state
//   - y0: first row, inclusive
//   - y1: last row, exclusive
func rasterizeBand(color *softColor, depth *softDepth, tris []rasterTriangle, sh *fragmentShading, y0, y1 int) {
	colorEq, alphaEq := sh.state.Equation()
	blend := sh.state.Enabled()
	testDepth := sh.state.DepthTest && depth != nil
	writeDepth := sh.state.DepthWrite && depth != nil

	for ti := range tris {
		tri := &tris[ti]
		eachCovered(tri, y0, y1, func(px, py int, l0, l1, l2 float32) {
			z := tri.depthAt(l0, l1, l2)
			if sh.peel != nil && sh.peel.discard(float32(px)+0.5, float32(py)+0.5, z) {
				return
			}
			idx := py*color.w + px
			if testDepth && !(z < depth.z[idx]) {
				return
			}

			src := sh.shade(tri, l0, l1, l2)
			d := color.pix[idx*4 : idx*4+4]
			if blend {
				a := src[3]
				d[0] = colorEq.Apply(src[0], d[0], a)
				d[1] = colorEq.Apply(src[1], d[1], a)
				d[2] = colorEq.Apply(src[2], d[2], a)
				d[3] = alphaEq.Apply(src[3], d[3], a)
			} else {
				copy(d, src[:])
			}
			if writeDepth {
				depth.z[idx] = z
			}
		})
	}
}
