package convert

import (
	"fmt"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

// MaxJoints is the largest joint count addressable by a uint16 joint index.
const MaxJoints = 65535

// restScaleULPs bounds the spread between rest-pose scale components.
// Scales decomposed from node matrices carry rounding from the column
// lengths, so this is looser than the per-keyframe check.
const restScaleULPs = 64

// SceneGraph is read-only access to the node hierarchy.
type SceneGraph interface {
	NodeCount() int
	Children(node int) []int
	NodeName(node int) string
	LocalTransform(node int) (translation math.Vec3, rotation math.Quat, scale math.Vec3)
}

// DocumentGraph adapts a parsed document to SceneGraph.
type DocumentGraph struct {
	Doc *formats.GLTF
}

// NodeCount implements SceneGraph.
func (g DocumentGraph) NodeCount() int { return len(g.Doc.Nodes) }

// Children implements SceneGraph.
func (g DocumentGraph) Children(node int) []int { return g.Doc.Nodes[node].Children }

// NodeName implements SceneGraph.
func (g DocumentGraph) NodeName(node int) string { return g.Doc.Nodes[node].Name }

// LocalTransform implements SceneGraph.
func (g DocumentGraph) LocalTransform(node int) (math.Vec3, math.Quat, math.Vec3) {
	return g.Doc.Nodes[node].TRS()
}

// SkinSource is a skin as the skeleton builder consumes it.
type SkinSource struct {
	Name                string
	Joints              []int // Node index per joint; order defines the joint index
	Skeleton            *int  // Declared root node
	InverseBindMatrices *Accessor
}

// ResolveSkin builds the SkinSource for the skin at index. When inferRoot is
// set and the skin declares no root, the scene-graph root above the first
// joint is used.
func ResolveSkin(doc *formats.GLTF, index int, inferRoot bool) (SkinSource, error) {
	if index < 0 || index >= len(doc.Skins) {
		return SkinSource{}, fmt.Errorf("%w: skin %d", ErrInvalidReference, index)
	}
	skin := &doc.Skins[index]

	src := SkinSource{
		Name:     skin.Name,
		Joints:   skin.Joints,
		Skeleton: skin.Skeleton,
	}
	if src.Name == "" {
		src.Name = fmt.Sprintf("skeleton_%d", index)
	}

	if src.Skeleton == nil && inferRoot && len(skin.Joints) > 0 {
		if root, ok := topAncestor(doc.NodeParents(), skin.Joints[0]); ok {
			src.Skeleton = &root
		}
	}

	if skin.InverseBindMatrices != nil {
		ibm, err := ResolveAccessor(doc, *skin.InverseBindMatrices)
		if err != nil {
			return SkinSource{}, fmt.Errorf("skin %d inverse bind matrices: %w", index, err)
		}
		src.InverseBindMatrices = ibm
	}

	return src, nil
}

// topAncestor walks parents up from node. It gives up on cycles.
func topAncestor(parents []int, node int) (int, bool) {
	if node < 0 || node >= len(parents) {
		return 0, false
	}
	for steps := 0; parents[node] >= 0; steps++ {
		if steps > len(parents) {
			return 0, false
		}
		node = parents[node]
	}
	return node, true
}

// Joint is one bone of a skeleton.
type Joint struct {
	Name              string
	Node              int     // Scene-graph node index
	Parent            *uint16 // nil for joints whose parent node is not a joint
	Translation       math.Vec3
	Rotation          math.Quat
	Scale             float32 // Uniform
	InverseBindMatrix math.Mat4
}

// Skeleton is a dense joint index space over a set of scene-graph nodes.
type Skeleton struct {
	Name   string
	Root   int // Scene-graph node index of the declared root
	Joints []Joint

	nodeToJoint map[int]uint16
}

// JointIndex returns the joint index of a scene-graph node.
func (s *Skeleton) JointIndex(node int) (uint16, bool) {
	j, ok := s.nodeToJoint[node]
	return j, ok
}

// NodeIndex returns the scene-graph node of a joint.
func (s *Skeleton) NodeIndex(joint uint16) (int, bool) {
	if int(joint) >= len(s.Joints) {
		return 0, false
	}
	return s.Joints[joint].Node, true
}

// BuildSkeleton flattens a skin into a Skeleton.
func BuildSkeleton(skin SkinSource, graph SceneGraph, src BufferSource) (*Skeleton, error) {
	if len(skin.Joints) > MaxJoints {
		return nil, fmt.Errorf("%w: skin %q has %d joints, max %d", ErrTooManyJoints, skin.Name, len(skin.Joints), MaxJoints)
	}
	if skin.Skeleton == nil {
		return nil, fmt.Errorf("%w: skin %q", ErrNoSkeleton, skin.Name)
	}
	root := *skin.Skeleton
	nodeCount := graph.NodeCount()
	if root < 0 || root >= nodeCount {
		return nil, fmt.Errorf("%w: skin %q root node %d, graph has %d nodes", ErrSkeletonRootNotFound, skin.Name, root, nodeCount)
	}

	parents, err := descendantParents(graph, root)
	if err != nil {
		return nil, fmt.Errorf("skin %q: %w", skin.Name, err)
	}

	skel := &Skeleton{
		Name:        skin.Name,
		Root:        root,
		Joints:      make([]Joint, len(skin.Joints)),
		nodeToJoint: make(map[int]uint16, len(skin.Joints)),
	}
	for i, node := range skin.Joints {
		if node < 0 || node >= nodeCount {
			return nil, fmt.Errorf("%w: skin %q joint %d references node %d", ErrInvalidJoint, skin.Name, i, node)
		}
		if prev, dup := skel.nodeToJoint[node]; dup {
			return nil, fmt.Errorf("%w: skin %q lists node %d as joints %d and %d", ErrInvalidJoint, skin.Name, node, prev, i)
		}
		skel.nodeToJoint[node] = uint16(i)
	}

	ibms, err := inverseBindMatrices(skin, src)
	if err != nil {
		return nil, err
	}

	for i, node := range skin.Joints {
		j := &skel.Joints[i]
		j.Node = node
		j.InverseBindMatrix = ibms[i]
		j.Name = graph.NodeName(node)
		if j.Name == "" {
			j.Name = fmt.Sprintf("joint_%d", i)
		}

		if node != root {
			parentNode, reachable := parents[node]
			if !reachable {
				return nil, fmt.Errorf("%w: skin %q joint %d (node %d) is not below root node %d",
					ErrSkeletonRootNotFound, skin.Name, i, node, root)
			}
			if pj, ok := skel.nodeToJoint[parentNode]; ok {
				j.Parent = &pj
			}
		}

		t, r, s := graph.LocalTransform(node)
		if !uniform(s, restScaleULPs) {
			return nil, fmt.Errorf("%w: skin %q joint %d rest scale %v", ErrNonUniformScaling, skin.Name, i, s)
		}
		j.Translation = t
		j.Rotation = r
		j.Scale = s.X
	}

	return skel, nil
}

// descendantParents walks the graph from root and records the parent of
// every node below it.
func descendantParents(graph SceneGraph, root int) (map[int]int, error) {
	parents := make(map[int]int)
	visited := map[int]bool{root: true}
	stack := []int{root}
	nodeCount := graph.NodeCount()

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range graph.Children(node) {
			if child < 0 || child >= nodeCount {
				return nil, fmt.Errorf("%w: node %d has child %d outside the graph", ErrInvalidReference, node, child)
			}
			if visited[child] {
				return nil, fmt.Errorf("%w: node %d is reached twice below node %d", ErrOther, child, root)
			}
			visited[child] = true
			parents[child] = node
			stack = append(stack, child)
		}
	}
	return parents, nil
}

func inverseBindMatrices(skin SkinSource, src BufferSource) ([]math.Mat4, error) {
	if skin.InverseBindMatrices == nil {
		ibms := make([]math.Mat4, len(skin.Joints))
		for i := range ibms {
			ibms[i] = math.Identity()
		}
		return ibms, nil
	}

	ibms, err := ReadMat4F32(skin.InverseBindMatrices, src)
	if err != nil {
		return nil, fmt.Errorf("skin %q inverse bind matrices: %w", skin.Name, err)
	}
	if len(ibms) != len(skin.Joints) {
		return nil, fmt.Errorf("%w: skin %q has %d joints and %d inverse bind matrices",
			ErrCardinalityMismatch, skin.Name, len(skin.Joints), len(ibms))
	}
	return ibms, nil
}

// uniform reports whether all three components agree within maxULPs.
func uniform(s math.Vec3, maxULPs uint32) bool {
	return math.ApproxEqualULPs(s.X, s.Y, maxULPs) && math.ApproxEqualULPs(s.X, s.Z, maxULPs)
}

// Skeletons resolves nodes across several skeletons.
type Skeletons []*Skeleton

// Resolve returns the first skeleton containing node and its joint index.
func (ss Skeletons) Resolve(node int) (skeleton int, joint uint16, ok bool) {
	for i, s := range ss {
		if j, found := s.JointIndex(node); found {
			return i, j, true
		}
	}
	return 0, 0, false
}

// JointIndex implements JointResolver with first-match semantics.
func (ss Skeletons) JointIndex(node int) (uint16, bool) {
	_, j, ok := ss.Resolve(node)
	return j, ok
}
