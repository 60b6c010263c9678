package convert

import (
	"fmt"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

// MorphData holds the displacements of one morph attribute. Either Full has
// one entry per vertex, or SparseIndices and SparseValues list only the
// displaced vertices.
type MorphData struct {
	Full          [][3]float32 `json:"full,omitempty"`
	SparseIndices []uint32     `json:"sparse_indices,omitempty"`
	SparseValues  [][3]float32 `json:"sparse_values,omitempty"`
}

// IsSparse reports whether the data lists only displaced vertices.
func (d *MorphData) IsSparse() bool {
	return d.Full == nil && d.SparseIndices != nil
}

// MorphTarget is one blend shape of a primitive. Nil members are absent.
type MorphTarget struct {
	Positions *MorphData
	Normals   *MorphData
	Tangents  *MorphData
}

// ConvertMorphTargets decodes the morph targets of a primitive with
// vertexCount vertices. Displacements get the linear part of transform;
// normal displacements use its normal matrix.
func ConvertMorphTargets(targets []map[string]*Accessor, src BufferSource, vertexCount int, transform *math.Mat4) ([]MorphTarget, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	var dir, norm func([3]float32) [3]float32
	if transform != nil {
		m := *transform
		n := m.NormalMatrix()
		dir = m.TransformDirection
		norm = n.TransformDirection
	}

	out := make([]MorphTarget, len(targets))
	for ti, target := range targets {
		var err error
		mt := &out[ti]
		if mt.Positions, err = morphData(target[formats.AttrPosition], src, vertexCount, dir); err != nil {
			return nil, fmt.Errorf("morph target %d %s: %w", ti, formats.AttrPosition, err)
		}
		if mt.Normals, err = morphData(target[formats.AttrNormal], src, vertexCount, norm); err != nil {
			return nil, fmt.Errorf("morph target %d %s: %w", ti, formats.AttrNormal, err)
		}
		if mt.Tangents, err = morphData(target[formats.AttrTangent], src, vertexCount, dir); err != nil {
			return nil, fmt.Errorf("morph target %d %s: %w", ti, formats.AttrTangent, err)
		}
	}
	return out, nil
}

// morphData decodes one displacement stream. Accessors without a dense
// base and with sparse overrides stay sparse.
func morphData(a *Accessor, src BufferSource, vertexCount int, xf func([3]float32) [3]float32) (*MorphData, error) {
	if a == nil {
		return nil, nil
	}
	if a.Count != vertexCount {
		return nil, fmt.Errorf("%w: %d displacements for %d vertices", ErrCardinalityMismatch, a.Count, vertexCount)
	}

	data := &MorphData{}
	var values [][3]float32
	var err error
	if a.View == nil && a.Sparse != nil {
		data.SparseIndices, values, err = ReadSparseVec3F32(a, src)
		if err != nil {
			return nil, err
		}
		data.SparseValues = values
	} else {
		values, err = ReadVec3F32(a, src)
		if err != nil {
			return nil, err
		}
		data.Full = values
	}

	if xf != nil {
		for i := range values {
			values[i] = xf(values[i])
		}
	}
	return data, nil
}
