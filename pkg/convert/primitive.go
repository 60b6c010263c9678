package convert

import (
	"fmt"

	"github.com/Faultbox/wg3d/pkg/formats"
)

// Primitive is one converted draw batch: a vertex set, a triangle list and
// a material reference.
type Primitive struct {
	Vertices     *VertexAttributeSet
	Indices      []uint32 // Three per triangle
	Material     *int
	MorphTargets []MorphTarget
}

// ConvertPrimitive assembles the vertices, indices and morph targets of
// prim. Only triangle lists are accepted.
func ConvertPrimitive(prim PrimitiveSource, src BufferSource, hasBones bool, opts AssembleOptions) (*Primitive, error) {
	if prim.Mode != formats.ModeTriangles {
		return nil, fmt.Errorf("%w: mode %d", ErrUnsupportedPrimitiveMode, prim.Mode)
	}

	vertices, err := AssembleVertices(prim, src, hasBones, opts)
	if err != nil {
		return nil, err
	}
	count := len(vertices.Vertices)

	var indices []uint32
	if prim.Indices != nil {
		indices, err = ReadIndices(prim.Indices, src)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for i, idx := range indices {
			if int(idx) >= count {
				return nil, fmt.Errorf("%w: index %d is %d, primitive has %d vertices", ErrIndexOutOfRange, i, idx, count)
			}
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices do not form whole triangles", ErrCardinalityMismatch, len(indices))
	}

	targets, err := ConvertMorphTargets(prim.Targets, src, count, opts.Transform)
	if err != nil {
		return nil, err
	}

	return &Primitive{
		Vertices:     vertices,
		Indices:      indices,
		Material:     prim.Material,
		MorphTargets: targets,
	}, nil
}
