package convert

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

// Basis is the change of basis applied to vertex data.
type Basis uint8

const (
	// BasisNone keeps source coordinates.
	BasisNone Basis = iota
	// BasisFlipY180 rotates 180 degrees about the Y axis.
	BasisFlipY180
)

// Matrix returns the basis change as a matrix.
func (b Basis) Matrix() math.Mat4 {
	if b == BasisFlipY180 {
		return math.FlipYAxis180()
	}
	return math.Identity()
}

// ParseBasis parses a config basis name. Empty means BasisNone.
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "", "none":
		return BasisNone, nil
	case "y_up_rotate_180":
		return BasisFlipY180, nil
	default:
		return BasisNone, fmt.Errorf("%w: basis %q", ErrOther, s)
	}
}

// String returns the config name of the basis.
func (b Basis) String() string {
	switch b {
	case BasisNone:
		return "none"
	case BasisFlipY180:
		return "y_up_rotate_180"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(b))
	}
}

// Options controls a conversion. The zero value converts in source space
// with float weights and no logging.
type Options struct {
	Basis          Basis
	WeightEncoding WeightEncoding

	// InferSkeletonRoot picks the scene-graph root above the first joint
	// for skins that declare no skeleton root.
	InferSkeletonRoot bool

	Images    ImageLoader    // Optional, loads external images
	Inspector ImageInspector // Optional, probes image format and size
	Logger    *zap.Logger    // Optional
}

// Model is the converted intermediate model.
type Model struct {
	Scene      int
	Meshes     []Mesh
	Skeletons  Skeletons
	Animations []Animation
	Materials  []Material
	Textures   []Texture
	Images     []Image
}

// Convert converts doc into a Model. It is all or nothing: the first
// failure aborts the conversion.
func Convert(doc *formats.GLTF, src BufferSource, opts Options) (*Model, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	scene, err := defaultScene(doc)
	if err != nil {
		return nil, err
	}
	model := &Model{Scene: scene}
	log.Debug("converting scene", zap.Int("scene", scene), zap.Int("nodes", len(doc.Nodes)))

	model.Textures, model.Images, err = ConvertTextures(doc, src, opts.Images, opts.Inspector)
	if err != nil {
		return nil, err
	}
	log.Debug("converted textures", zap.Int("textures", len(model.Textures)), zap.Int("images", len(model.Images)))

	model.Materials, err = ConvertMaterials(doc)
	if err != nil {
		return nil, err
	}

	graph := DocumentGraph{Doc: doc}
	model.Skeletons = make(Skeletons, len(doc.Skins))
	for i := range doc.Skins {
		skin, err := ResolveSkin(doc, i, opts.InferSkeletonRoot)
		if err != nil {
			return nil, err
		}
		skel, err := BuildSkeleton(skin, graph, src)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", i, err)
		}
		model.Skeletons[i] = skel
		log.Debug("built skeleton", zap.String("skin", skel.Name), zap.Int("joints", len(skel.Joints)))
	}

	basis := opts.Basis.Matrix()
	err = walkScene(doc, scene, func(node int, world math.Mat4) error {
		if doc.Nodes[node].Mesh == nil {
			return nil
		}
		mesh, err := ConvertMesh(doc, node, basis.Mul(world), src, opts.WeightEncoding)
		if err != nil {
			return fmt.Errorf("node %d: %w", node, err)
		}
		if err := checkJointRange(mesh, model.Skeletons); err != nil {
			return fmt.Errorf("node %d: %w", node, err)
		}
		for pi, prim := range mesh.Primitives {
			log.Debug("assembled primitive",
				zap.String("mesh", mesh.Name),
				zap.Int("primitive", pi),
				zap.Stringer("format", prim.Vertices.Format),
				zap.Int("vertices", len(prim.Vertices.Vertices)),
				zap.Int("triangles", len(prim.Indices)/3),
			)
		}
		model.Meshes = append(model.Meshes, *mesh)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !doc.HasAnimation() {
		log.Debug("document has no animation channels")
	}
	model.Animations, err = ConvertAnimations(doc, model.Skeletons, src)
	if err != nil {
		return nil, err
	}
	for _, anim := range model.Animations {
		log.Debug("sampled animation", zap.String("animation", anim.Name), zap.Int("channels", len(anim.Channels)))
	}

	return model, nil
}

// defaultScene returns the document's scene, falling back to scene 0.
func defaultScene(doc *formats.GLTF) (int, error) {
	if len(doc.Scenes) == 0 {
		return 0, ErrNoDefaultScene
	}
	scene := 0
	if doc.Scene != nil {
		scene = *doc.Scene
	}
	if scene < 0 || scene >= len(doc.Scenes) {
		return 0, fmt.Errorf("%w: scene %d of %d", ErrNoDefaultScene, scene, len(doc.Scenes))
	}
	return scene, nil
}

// walkScene visits the nodes of a scene depth-first, parents before
// children, with each node's accumulated world transform.
func walkScene(doc *formats.GLTF, scene int, visit func(node int, world math.Mat4) error) error {
	type frame struct {
		node   int
		parent math.Mat4
	}

	roots := doc.Scenes[scene].Nodes
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], math.Identity()})
	}

	visited := make(map[int]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node < 0 || f.node >= len(doc.Nodes) {
			return fmt.Errorf("%w: node %d", ErrInvalidReference, f.node)
		}
		if visited[f.node] {
			return fmt.Errorf("%w: node %d is reached twice in scene %d", ErrOther, f.node, scene)
		}
		visited[f.node] = true

		node := &doc.Nodes[f.node]
		world := f.parent.Mul(node.LocalMatrix())
		if err := visit(f.node, world); err != nil {
			return err
		}

		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node.Children[i], world})
		}
	}
	return nil
}

// checkJointRange verifies that every joint index of a skinned mesh exists
// in its skeleton.
func checkJointRange(mesh *Mesh, skeletons Skeletons) error {
	if mesh.Skeleton == nil {
		return nil
	}
	if *mesh.Skeleton < 0 || *mesh.Skeleton >= len(skeletons) {
		return fmt.Errorf("%w: mesh %q skin %d", ErrInvalidReference, mesh.Name, *mesh.Skeleton)
	}
	joints := len(skeletons[*mesh.Skeleton].Joints)

	for pi, prim := range mesh.Primitives {
		if !prim.Vertices.Format.Has(FormatBones) {
			continue
		}
		for vi, v := range prim.Vertices.Vertices {
			for _, j := range v.Joints {
				if int(j) >= joints {
					return fmt.Errorf("%w: mesh %q primitive %d vertex %d uses joint %d, skeleton has %d",
						ErrInvalidJoint, mesh.Name, pi, vi, j, joints)
				}
			}
		}
	}
	return nil
}
