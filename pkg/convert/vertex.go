package convert

import (
	"fmt"
	stdmath "math"
	"strings"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

// VertexFormat is the set of optional streams present in a vertex record.
// The three flags give exactly eight formats.
type VertexFormat uint8

const (
	FormatTexCoord1 VertexFormat = 1 << iota
	FormatTangent
	FormatBones
)

// VertexFormats lists all eight formats in bit order.
var VertexFormats = [8]VertexFormat{0, 1, 2, 3, 4, 5, 6, 7}

// Has reports whether every flag in f is set.
func (v VertexFormat) Has(f VertexFormat) bool {
	return v&f == f
}

// String returns a stable name such as "pos_norm_uv0_uv1_tan_bones".
func (v VertexFormat) String() string {
	parts := []string{"pos", "norm", "uv0"}
	if v.Has(FormatTexCoord1) {
		parts = append(parts, "uv1")
	}
	if v.Has(FormatTangent) {
		parts = append(parts, "tan")
	}
	if v.Has(FormatBones) {
		parts = append(parts, "bones")
	}
	return strings.Join(parts, "_")
}

// WeightEncoding selects how joint weights are stored.
type WeightEncoding uint8

const (
	// WeightsFloat keeps normalized float weights.
	WeightsFloat WeightEncoding = iota
	// WeightsFixed16 quantizes weights to uint16 fixed point, 65535 = 1.0.
	WeightsFixed16
)

// ParseWeightEncoding parses a config encoding name. Empty means
// WeightsFloat.
func ParseWeightEncoding(s string) (WeightEncoding, error) {
	switch s {
	case "", "float":
		return WeightsFloat, nil
	case "fixed16":
		return WeightsFixed16, nil
	default:
		return WeightsFloat, fmt.Errorf("%w: weight encoding %q", ErrOther, s)
	}
}

// String returns the config name of the encoding.
func (w WeightEncoding) String() string {
	switch w {
	case WeightsFloat:
		return "float"
	case WeightsFixed16:
		return "fixed16"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(w))
	}
}

// Vertex is one assembled vertex. Fields outside the set's format are zero.
type Vertex struct {
	Position     [3]float32
	Normal       [3]float32
	TexCoord0    [2]float32
	TexCoord1    [2]float32
	Tangent      [4]float32 // W is the bitangent sign
	Joints       [4]uint16
	Weights      [4]float32 // WeightsFloat
	FixedWeights [4]uint16  // WeightsFixed16
}

// VertexAttributeSet is the vertex stream of one primitive.
type VertexAttributeSet struct {
	Format         VertexFormat
	WeightEncoding WeightEncoding
	Vertices       []Vertex
}

// AssembleOptions controls vertex assembly.
type AssembleOptions struct {
	Transform      *math.Mat4 // nil leaves attributes in source space
	WeightEncoding WeightEncoding
}

// PrimitiveSource is a primitive as the assembler consumes it. Attribute
// keys are glTF semantics such as POSITION or TEXCOORD_1.
type PrimitiveSource struct {
	Attributes map[string]*Accessor
	Indices    *Accessor
	Mode       int
	Material   *int
	Targets    []map[string]*Accessor
}

// ResolvePrimitive builds the PrimitiveSource for prim.
func ResolvePrimitive(doc *formats.GLTF, prim *formats.GLTFPrimitive) (PrimitiveSource, error) {
	ps := PrimitiveSource{
		Attributes: make(map[string]*Accessor, len(prim.Attributes)),
		Mode:       formats.ModeTriangles,
		Material:   prim.Material,
	}
	if prim.Mode != nil {
		ps.Mode = *prim.Mode
	}

	for semantic, index := range prim.Attributes {
		a, err := ResolveAccessor(doc, index)
		if err != nil {
			return PrimitiveSource{}, fmt.Errorf("attribute %s: %w", semantic, err)
		}
		ps.Attributes[semantic] = a
	}

	if prim.Indices != nil {
		a, err := ResolveAccessor(doc, *prim.Indices)
		if err != nil {
			return PrimitiveSource{}, fmt.Errorf("indices: %w", err)
		}
		ps.Indices = a
	}

	for ti, target := range prim.Targets {
		resolved := make(map[string]*Accessor, len(target))
		for semantic, index := range target {
			a, err := ResolveAccessor(doc, index)
			if err != nil {
				return PrimitiveSource{}, fmt.Errorf("morph target %d %s: %w", ti, semantic, err)
			}
			resolved[semantic] = a
		}
		ps.Targets = append(ps.Targets, resolved)
	}

	return ps, nil
}

// ProbeFormat returns the format implied by the semantics prim declares.
// Bones count only when hasBones is set and both JOINTS_0 and WEIGHTS_0 are
// declared; declaring one without the other is an error.
func ProbeFormat(prim PrimitiveSource, hasBones bool) (VertexFormat, error) {
	var format VertexFormat
	if _, ok := prim.Attributes[formats.AttrTexCoord1]; ok {
		format |= FormatTexCoord1
	}
	if _, ok := prim.Attributes[formats.AttrTangent]; ok {
		format |= FormatTangent
	}
	if hasBones {
		_, joints := prim.Attributes[formats.AttrJoints0]
		_, weights := prim.Attributes[formats.AttrWeights0]
		switch {
		case joints && weights:
			format |= FormatBones
		case joints:
			return 0, fmt.Errorf("%w: %s without %s", ErrMissingAttributes, formats.AttrJoints0, formats.AttrWeights0)
		case weights:
			return 0, fmt.Errorf("%w: %s without %s", ErrMissingAttributes, formats.AttrWeights0, formats.AttrJoints0)
		}
	}
	return format, nil
}

// AssembleVertices decodes the streams of prim and builds one vertex per
// position. Every stream must have exactly as many elements as POSITION.
func AssembleVertices(prim PrimitiveSource, src BufferSource, hasBones bool, opts AssembleOptions) (*VertexAttributeSet, error) {
	var missing []string
	for _, semantic := range []string{formats.AttrPosition, formats.AttrNormal, formats.AttrTexCoord0} {
		if prim.Attributes[semantic] == nil {
			missing = append(missing, semantic)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingAttributes, strings.Join(missing, ", "))
	}

	format, err := ProbeFormat(prim, hasBones)
	if err != nil {
		return nil, err
	}

	positions, err := ReadVec3F32(prim.Attributes[formats.AttrPosition], src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", formats.AttrPosition, err)
	}
	count := len(positions)

	// checkCount rejects streams whose length differs from POSITION.
	checkCount := func(semantic string, n int) error {
		if n != count {
			return fmt.Errorf("%w: %s has %d elements, %s has %d",
				ErrCardinalityMismatch, semantic, n, formats.AttrPosition, count)
		}
		return nil
	}

	normals, err := ReadVec3F32(prim.Attributes[formats.AttrNormal], src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", formats.AttrNormal, err)
	}
	if err := checkCount(formats.AttrNormal, len(normals)); err != nil {
		return nil, err
	}

	uv0, err := ReadNormalizedVec2(prim.Attributes[formats.AttrTexCoord0], src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", formats.AttrTexCoord0, err)
	}
	if err := checkCount(formats.AttrTexCoord0, len(uv0)); err != nil {
		return nil, err
	}

	var uv1 [][2]float32
	if format.Has(FormatTexCoord1) {
		uv1, err = ReadNormalizedVec2(prim.Attributes[formats.AttrTexCoord1], src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", formats.AttrTexCoord1, err)
		}
		if err := checkCount(formats.AttrTexCoord1, len(uv1)); err != nil {
			return nil, err
		}
	}

	var tangents [][4]float32
	if format.Has(FormatTangent) {
		tangents, err = ReadVec4F32(prim.Attributes[formats.AttrTangent], src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", formats.AttrTangent, err)
		}
		if err := checkCount(formats.AttrTangent, len(tangents)); err != nil {
			return nil, err
		}
	}

	var joints [][4]uint16
	var weights [][4]float32
	if format.Has(FormatBones) {
		joints, err = ReadJoints(prim.Attributes[formats.AttrJoints0], src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", formats.AttrJoints0, err)
		}
		if err := checkCount(formats.AttrJoints0, len(joints)); err != nil {
			return nil, err
		}
		weights, err = ReadNormalizedVec4(prim.Attributes[formats.AttrWeights0], src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", formats.AttrWeights0, err)
		}
		if err := checkCount(formats.AttrWeights0, len(weights)); err != nil {
			return nil, err
		}
	}

	var xf *vertexTransform
	if opts.Transform != nil {
		xf = newVertexTransform(*opts.Transform)
	}

	set := &VertexAttributeSet{
		Format:         format,
		WeightEncoding: opts.WeightEncoding,
		Vertices:       make([]Vertex, count),
	}
	for i := range set.Vertices {
		v := &set.Vertices[i]
		v.Position = positions[i]
		v.Normal = normals[i]
		v.TexCoord0 = uv0[i]
		if uv1 != nil {
			v.TexCoord1 = uv1[i]
		}
		if tangents != nil {
			v.Tangent = tangents[i]
		}
		if joints != nil {
			v.Joints = joints[i]
			if opts.WeightEncoding == WeightsFixed16 {
				v.FixedWeights = QuantizeWeights(weights[i])
			} else {
				v.Weights = weights[i]
			}
		}
		if xf != nil {
			xf.apply(v, format.Has(FormatTangent))
		}
	}

	return set, nil
}

// vertexTransform moves attributes into the target space.
type vertexTransform struct {
	point  math.Mat4
	normal math.Mat4
}

func newVertexTransform(m math.Mat4) *vertexTransform {
	return &vertexTransform{point: m, normal: m.NormalMatrix()}
}

func (x *vertexTransform) apply(v *Vertex, tangent bool) {
	v.Position = x.point.TransformPoint(v.Position)
	v.Normal = normalize3(x.normal.TransformDirection(v.Normal))
	if tangent {
		t := normalize3(x.point.TransformDirection([3]float32{v.Tangent[0], v.Tangent[1], v.Tangent[2]}))
		v.Tangent = [4]float32{t[0], t[1], t[2], v.Tangent[3]}
	}
}

func normalize3(v [3]float32) [3]float32 {
	return math.V3(v).Normalize().Array()
}

// QuantizeWeights converts normalized weights to uint16 fixed point. When
// the weights sum to one the rounding error is folded into the largest
// weight so the quantized sum is exactly 65535.
func QuantizeWeights(w [4]float32) [4]uint16 {
	var q [4]uint16
	var sumF float32
	sum := 0
	largest := 0
	for i, f := range w {
		if f != f {
			f = 0 // NaN
		}
		f = min(max(f, 0), 1)
		q[i] = uint16(stdmath.Round(float64(f) * 65535))
		sum += int(q[i])
		sumF += f
		if q[i] > q[largest] {
			largest = i
		}
	}

	if stdmath.Abs(float64(sumF)-1) < 1e-3 && sum != 65535 {
		adjusted := int(q[largest]) + 65535 - sum
		q[largest] = uint16(min(max(adjusted, 0), 65535))
	}
	return q
}
