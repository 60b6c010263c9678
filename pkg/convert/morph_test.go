package convert

import (
	"errors"
	"testing"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

func TestConvertMorphTargets_Dense(t *testing.T) {
	a, src := denseAccessor(ComponentFloat, Vec3, 2, pack([][3]float32{{1, 0, 0}, {0, 0, 1}}))
	targets := []map[string]*Accessor{
		{formats.AttrPosition: a, formats.AttrNormal: a},
		{},
	}

	out, err := ConvertMorphTargets(targets, src, 2, nil)
	if err != nil {
		t.Fatalf("ConvertMorphTargets failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(out))
	}

	pos := out[0].Positions
	if pos == nil || pos.IsSparse() || len(pos.Full) != 2 || pos.Full[1] != [3]float32{0, 0, 1} {
		t.Errorf("unexpected positions %+v", pos)
	}
	if out[0].Normals == nil || out[0].Tangents != nil {
		t.Errorf("expected normals only besides positions, got %+v", out[0])
	}
	if out[1].Positions != nil || out[1].Normals != nil || out[1].Tangents != nil {
		t.Errorf("empty target should have no data, got %+v", out[1])
	}
}

func TestConvertMorphTargets_Sparse(t *testing.T) {
	data := pack([]uint16{3, 0}, [][3]float32{{0, 2, 0}})
	a := &Accessor{
		Count:         5,
		ComponentType: ComponentFloat,
		Dimensions:    Vec3,
		Sparse: &Sparse{
			Count:   1,
			Indices: SparseIndices{View: BufferView{ByteLength: 2}, ComponentType: ComponentUnsignedShort},
			Values:  SparseValues{View: BufferView{ByteOffset: 4, ByteLength: 12}},
		},
	}

	out, err := ConvertMorphTargets([]map[string]*Accessor{{formats.AttrPosition: a}}, Buffers{data}, 5, nil)
	if err != nil {
		t.Fatalf("ConvertMorphTargets failed: %v", err)
	}
	pos := out[0].Positions
	if !pos.IsSparse() {
		t.Fatalf("expected sparse data, got %+v", pos)
	}
	if len(pos.SparseIndices) != 1 || pos.SparseIndices[0] != 3 || pos.SparseValues[0] != [3]float32{0, 2, 0} {
		t.Errorf("got indices %v values %v", pos.SparseIndices, pos.SparseValues)
	}
}

func TestConvertMorphTargets_Transform(t *testing.T) {
	a, src := denseAccessor(ComponentFloat, Vec3, 1, pack([][3]float32{{1, 0, 0}}))
	n, _ := denseAccessor(ComponentFloat, Vec3, 1, pack([][3]float32{{0, 0, 1}}))

	// Translation must not move displacements.
	m := math.FlipYAxis180().Mul(math.Translate(5, 5, 5))
	out, err := ConvertMorphTargets([]map[string]*Accessor{{formats.AttrPosition: a, formats.AttrNormal: n}}, src, 1, &m)
	if err != nil {
		t.Fatalf("ConvertMorphTargets failed: %v", err)
	}
	if got := out[0].Positions.Full[0]; got != [3]float32{-1, 0, 0} {
		t.Errorf("position displacement: got %v, want [-1 0 0]", got)
	}
	if got := out[0].Normals.Full[0]; got != [3]float32{0, 0, -1} {
		t.Errorf("normal displacement: got %v, want [0 0 -1]", got)
	}
}

func TestConvertMorphTargets_Errors(t *testing.T) {
	a, src := denseAccessor(ComponentFloat, Vec3, 2, pack([][3]float32{{1, 0, 0}, {0, 0, 1}}))
	if _, err := ConvertMorphTargets([]map[string]*Accessor{{formats.AttrPosition: a}}, src, 3, nil); !errors.Is(err, ErrCardinalityMismatch) {
		t.Errorf("expected ErrCardinalityMismatch, got %v", err)
	}

	ints, isrc := denseAccessor(ComponentUnsignedShort, Vec3, 2, pack([]uint16{1, 2, 3, 4, 5, 6}))
	if _, err := ConvertMorphTargets([]map[string]*Accessor{{formats.AttrTangent: ints}}, isrc, 2, nil); !errors.Is(err, ErrUnsupportedDataType) {
		t.Errorf("expected ErrUnsupportedDataType, got %v", err)
	}
}

func TestConvertPrimitive_PartialTriangle(t *testing.T) {
	b := newDocBuilder()
	mesh := b.triangle(nil)
	indices := b.accessor(formats.ComponentUnsignedByte, "SCALAR", 4, []uint8{0, 1, 2, 0})
	b.doc.Meshes[mesh].Primitives[0].Indices = &indices
	src := b.buffers()

	prim, err := ResolvePrimitive(b.doc, &b.doc.Meshes[mesh].Primitives[0])
	if err != nil {
		t.Fatalf("ResolvePrimitive failed: %v", err)
	}
	if _, err := ConvertPrimitive(prim, src, false, AssembleOptions{}); !errors.Is(err, ErrCardinalityMismatch) {
		t.Errorf("expected ErrCardinalityMismatch, got %v", err)
	}
}
