package convert

import (
	"fmt"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

// Mesh is the converted mesh of one scene node.
type Mesh struct {
	Name       string
	Node       int  // Scene-graph node the mesh hangs off
	Skeleton   *int // Index into the model's skeletons, nil when unskinned
	Primitives []Primitive
	Weights    []float32 // Default morph weights
}

// ConvertMesh converts the mesh referenced by node. transform is applied to
// every vertex. Primitives carry bones only when the node has a skin.
func ConvertMesh(doc *formats.GLTF, node int, transform math.Mat4, src BufferSource, weights WeightEncoding) (*Mesh, error) {
	n := &doc.Nodes[node]
	if n.Mesh == nil {
		return nil, fmt.Errorf("%w: node %d has no mesh", ErrInvalidReference, node)
	}
	if *n.Mesh < 0 || *n.Mesh >= len(doc.Meshes) {
		return nil, fmt.Errorf("%w: node %d mesh %d", ErrInvalidReference, node, *n.Mesh)
	}
	gm := &doc.Meshes[*n.Mesh]

	mesh := &Mesh{
		Name:       gm.Name,
		Node:       node,
		Skeleton:   n.Skin,
		Primitives: make([]Primitive, 0, len(gm.Primitives)),
		Weights:    gm.Weights,
	}
	if mesh.Name == "" {
		mesh.Name = n.Name
	}
	if mesh.Name == "" {
		mesh.Name = fmt.Sprintf("mesh_%d", *n.Mesh)
	}
	if len(mesh.Weights) == 0 {
		mesh.Weights = n.Weights
	}

	hasBones := n.Skin != nil
	opts := AssembleOptions{WeightEncoding: weights}
	if !transform.IsIdentity() {
		opts.Transform = &transform
	}

	for pi := range gm.Primitives {
		ps, err := ResolvePrimitive(doc, &gm.Primitives[pi])
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, pi, err)
		}
		if ps.Material != nil && (*ps.Material < 0 || *ps.Material >= len(doc.Materials)) {
			return nil, fmt.Errorf("mesh %q primitive %d: %w: material %d", mesh.Name, pi, ErrInvalidReference, *ps.Material)
		}
		prim, err := ConvertPrimitive(ps, src, hasBones, opts)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, pi, err)
		}
		mesh.Primitives = append(mesh.Primitives, *prim)
	}

	return mesh, nil
}
