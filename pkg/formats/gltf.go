// glTF JSON document model.
package formats

import (
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Faultbox/wg3d/pkg/math"
)

// glTF document errors.
var (
	ErrInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	ErrInvalidGLTFJSON    = errors.New("invalid glTF JSON")
)

// Component type codes used by accessors.
const (
	ComponentByte          = 5120
	ComponentUnsignedByte  = 5121
	ComponentShort         = 5122
	ComponentUnsignedShort = 5123
	ComponentUnsignedInt   = 5125
	ComponentFloat         = 5126
)

// Accessor element types.
const (
	AccessorScalar = "SCALAR"
	AccessorVec2   = "VEC2"
	AccessorVec3   = "VEC3"
	AccessorVec4   = "VEC4"
	AccessorMat2   = "MAT2"
	AccessorMat3   = "MAT3"
	AccessorMat4   = "MAT4"
)

// Primitive topology modes.
const (
	ModePoints        = 0
	ModeLines         = 1
	ModeLineLoop      = 2
	ModeLineStrip     = 3
	ModeTriangles     = 4
	ModeTriangleStrip = 5
	ModeTriangleFan   = 6
)

// Attribute semantics read by the converter.
const (
	AttrPosition  = "POSITION"
	AttrNormal    = "NORMAL"
	AttrTangent   = "TANGENT"
	AttrTexCoord0 = "TEXCOORD_0"
	AttrTexCoord1 = "TEXCOORD_1"
	AttrJoints0   = "JOINTS_0"
	AttrWeights0  = "WEIGHTS_0"
)

// Animation target paths.
const (
	PathTranslation = "translation"
	PathRotation    = "rotation"
	PathScale       = "scale"
	PathWeights     = "weights"
)

// Animation interpolation modes. CATMULLROMSPLINE comes from pre-release
// exporters and is still accepted.
const (
	InterpolationLinear      = "LINEAR"
	InterpolationStep        = "STEP"
	InterpolationCubicSpline = "CUBICSPLINE"
	InterpolationCatmullRom  = "CATMULLROMSPLINE"
)

// Material alpha modes.
const (
	AlphaOpaque = "OPAQUE"
	AlphaMask   = "MASK"
	AlphaBlend  = "BLEND"
)

// Sampler filter and wrap codes.
const (
	FilterNearest              = 9728
	FilterLinear               = 9729
	FilterNearestMipmapNearest = 9984
	FilterLinearMipmapNearest  = 9985
	FilterNearestMipmapLinear  = 9986
	FilterLinearMipmapLinear   = 9987

	WrapClampToEdge    = 33071
	WrapMirroredRepeat = 33648
	WrapRepeat         = 10497
)

// GLTFAsset holds the asset metadata block.
type GLTFAsset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

// GLTFScene lists the root nodes of a scene.
type GLTFScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// GLTFNode is one node of the scene graph.
type GLTFNode struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Skin        *int         `json:"skin,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`      // Column-major
	Translation *[3]float32  `json:"translation,omitempty"` // Default (0,0,0)
	Rotation    *[4]float32  `json:"rotation,omitempty"`    // XYZW, default identity
	Scale       *[3]float32  `json:"scale,omitempty"`       // Default (1,1,1)
	Weights     []float32    `json:"weights,omitempty"`     // Morph weights
}

// TRS returns the node's local transform split into translation, rotation
// and scale. Nodes given by matrix are decomposed.
func (n *GLTFNode) TRS() (math.Vec3, math.Quat, math.Vec3) {
	if n.Matrix != nil {
		return math.Mat4(*n.Matrix).Decompose()
	}

	t := math.Vec3{}
	if n.Translation != nil {
		t = math.V3(*n.Translation)
	}
	r := math.QuatIdentity()
	if n.Rotation != nil {
		r = math.QuatFromArray(*n.Rotation)
	}
	s := math.Vec3{X: 1, Y: 1, Z: 1}
	if n.Scale != nil {
		s = math.V3(*n.Scale)
	}
	return t, r, s
}

// LocalMatrix returns the node's local transform as a matrix.
func (n *GLTFNode) LocalMatrix() math.Mat4 {
	if n.Matrix != nil {
		return math.Mat4(*n.Matrix)
	}
	t, r, s := n.TRS()
	return math.FromTRS(t, r, s)
}

// GLTFMesh is a set of primitives.
type GLTFMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []GLTFPrimitive `json:"primitives"`
	Weights    []float32       `json:"weights,omitempty"`
}

// GLTFPrimitive is one drawable batch of a mesh.
type GLTFPrimitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices,omitempty"`
	Material   *int             `json:"material,omitempty"`
	Mode       *int             `json:"mode,omitempty"` // Default ModeTriangles
	Targets    []map[string]int `json:"targets,omitempty"`
}

// GLTFAccessor describes a typed view into a buffer view.
type GLTFAccessor struct {
	Name          string      `json:"name,omitempty"`
	BufferView    *int        `json:"bufferView,omitempty"`
	ByteOffset    int         `json:"byteOffset,omitempty"`
	ComponentType int         `json:"componentType"`
	Normalized    bool        `json:"normalized,omitempty"`
	Count         int         `json:"count"`
	Type          string      `json:"type"`
	Max           []float32   `json:"max,omitempty"`
	Min           []float32   `json:"min,omitempty"`
	Sparse        *GLTFSparse `json:"sparse,omitempty"`
}

// GLTFSparse overrides selected accessor elements.
type GLTFSparse struct {
	Count   int               `json:"count"`
	Indices GLTFSparseIndices `json:"indices"`
	Values  GLTFSparseValues  `json:"values"`
}

// GLTFSparseIndices locates the sparse index stream.
type GLTFSparseIndices struct {
	BufferView    int `json:"bufferView"`
	ByteOffset    int `json:"byteOffset,omitempty"`
	ComponentType int `json:"componentType"`
}

// GLTFSparseValues locates the sparse value stream.
type GLTFSparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

// GLTFBufferView is a byte range of a buffer.
type GLTFBufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride,omitempty"` // 0 means tightly packed
	Target     *int   `json:"target,omitempty"`
}

// GLTFBuffer is a raw binary blob referenced by URI or by the GLB BIN chunk.
type GLTFBuffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// GLTFMaterial describes surface appearance.
type GLTFMaterial struct {
	Name                 string                    `json:"name,omitempty"`
	PBRMetallicRoughness *GLTFPBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *GLTFNormalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *GLTFOcclusionTextureInfo `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *GLTFTextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32               `json:"emissiveFactor,omitempty"`
	AlphaMode            string                    `json:"alphaMode,omitempty"`
	AlphaCutoff          *float32                  `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                      `json:"doubleSided,omitempty"`
}

// GLTFPBRMetallicRoughness is the metallic-roughness material model.
type GLTFPBRMetallicRoughness struct {
	BaseColorFactor          *[4]float32      `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *GLTFTextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32         `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32         `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *GLTFTextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// GLTFTextureInfo references a texture and the UV set it samples.
type GLTFTextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

// GLTFNormalTextureInfo references a normal map.
type GLTFNormalTextureInfo struct {
	GLTFTextureInfo
	Scale *float32 `json:"scale,omitempty"`
}

// GLTFOcclusionTextureInfo references an occlusion map.
type GLTFOcclusionTextureInfo struct {
	GLTFTextureInfo
	Strength *float32 `json:"strength,omitempty"`
}

// GLTFTexture pairs an image with a sampler.
type GLTFTexture struct {
	Name    string `json:"name,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
	Source  *int   `json:"source,omitempty"`
}

// GLTFImage is an image referenced by URI or embedded in a buffer view.
type GLTFImage struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// GLTFSampler holds texture filtering and wrapping.
type GLTFSampler struct {
	Name      string `json:"name,omitempty"`
	MagFilter *int   `json:"magFilter,omitempty"`
	MinFilter *int   `json:"minFilter,omitempty"`
	WrapS     *int   `json:"wrapS,omitempty"`
	WrapT     *int   `json:"wrapT,omitempty"`
}

// GLTFSkin binds a mesh to a joint hierarchy.
type GLTFSkin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int   `json:"skeleton,omitempty"`
	Joints              []int  `json:"joints"`
}

// GLTFAnimation is a set of channels sharing a timeline.
type GLTFAnimation struct {
	Name     string                 `json:"name,omitempty"`
	Channels []GLTFAnimationChannel `json:"channels"`
	Samplers []GLTFAnimationSampler `json:"samplers"`
}

// GLTFAnimationChannel connects a sampler to a node property.
type GLTFAnimationChannel struct {
	Sampler int                 `json:"sampler"`
	Target  GLTFAnimationTarget `json:"target"`
}

// GLTFAnimationTarget names the animated node and property.
type GLTFAnimationTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

// GLTFAnimationSampler pairs keyframe times with values.
type GLTFAnimationSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"` // Default LINEAR
}

// GLTF represents a parsed glTF 2.0 document.
type GLTF struct {
	Asset       GLTFAsset        `json:"asset"`
	Scene       *int             `json:"scene,omitempty"`
	Scenes      []GLTFScene      `json:"scenes,omitempty"`
	Nodes       []GLTFNode       `json:"nodes,omitempty"`
	Meshes      []GLTFMesh       `json:"meshes,omitempty"`
	Accessors   []GLTFAccessor   `json:"accessors,omitempty"`
	BufferViews []GLTFBufferView `json:"bufferViews,omitempty"`
	Buffers     []GLTFBuffer     `json:"buffers,omitempty"`
	Materials   []GLTFMaterial   `json:"materials,omitempty"`
	Textures    []GLTFTexture    `json:"textures,omitempty"`
	Images      []GLTFImage      `json:"images,omitempty"`
	Samplers    []GLTFSampler    `json:"samplers,omitempty"`
	Skins       []GLTFSkin       `json:"skins,omitempty"`
	Animations  []GLTFAnimation  `json:"animations,omitempty"`

	ExtensionsUsed     []string `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`

	// BinaryChunk is the GLB BIN chunk, nil for plain .gltf files.
	BinaryChunk []byte `json:"-"`
}

// ParseGLTF parses a glTF JSON document.
func ParseGLTF(data []byte) (*GLTF, error) {
	doc := &GLTF{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGLTFJSON, err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidGLTFVersion, doc.Asset.Version)
	}

	return doc, nil
}

// Parse parses either a GLB container or a glTF JSON document, detected by
// the GLB magic.
func Parse(data []byte) (*GLTF, error) {
	if IsGLB(data) {
		return ParseGLB(data)
	}
	return ParseGLTF(data)
}

// ParseFile parses a .gltf or .glb file from disk.
func ParseFile(path string) (*GLTF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading glTF file: %w", err)
	}
	return Parse(data)
}

// NodeParents returns, for every node, the index of the node listing it as
// a child, or -1 for roots.
func (g *GLTF) NodeParents() []int {
	parents := make([]int, len(g.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range g.Nodes {
		for _, child := range node.Children {
			if child >= 0 && child < len(parents) {
				parents[child] = i
			}
		}
	}
	return parents
}

// HasAnimation returns true if the document has any animation channel.
func (g *GLTF) HasAnimation() bool {
	for _, anim := range g.Animations {
		if len(anim.Channels) > 0 {
			return true
		}
	}
	return false
}
