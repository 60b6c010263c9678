// Package export writes converted models as JSON and prints summaries.
package export

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"

	"github.com/Faultbox/wg3d/pkg/convert"
)

// Document is the JSON form of a converted model.
type Document struct {
	Scene      int         `json:"scene"`
	Meshes     []Mesh      `json:"meshes"`
	Skeletons  []Skeleton  `json:"skeletons"`
	Animations []Animation `json:"animations"`
	Materials  []Material  `json:"materials"`
	Textures   []Texture   `json:"textures"`
	Images     []Image     `json:"images"`
}

type Mesh struct {
	Name       string      `json:"name"`
	Node       int         `json:"node"`
	Skeleton   *int        `json:"skeleton,omitempty"`
	Weights    []float32   `json:"weights,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

type Primitive struct {
	Format         string        `json:"format"`
	WeightEncoding string        `json:"weight_encoding,omitempty"`
	Material       *int          `json:"material,omitempty"`
	Indices        []uint32      `json:"indices"`
	Vertices       Vertices      `json:"vertices"`
	MorphTargets   []MorphTarget `json:"morph_targets,omitempty"`
}

// Vertices is a structure-of-arrays view of a vertex set. Streams outside
// the format are omitted.
type Vertices struct {
	Positions    [][3]float32 `json:"positions"`
	Normals      [][3]float32 `json:"normals"`
	TexCoords0   [][2]float32 `json:"texcoords0"`
	TexCoords1   [][2]float32 `json:"texcoords1,omitempty"`
	Tangents     [][4]float32 `json:"tangents,omitempty"`
	Joints       [][4]uint16  `json:"joints,omitempty"`
	Weights      [][4]float32 `json:"weights,omitempty"`
	FixedWeights [][4]uint16  `json:"fixed_weights,omitempty"`
}

type MorphTarget struct {
	Positions *convert.MorphData `json:"positions,omitempty"`
	Normals   *convert.MorphData `json:"normals,omitempty"`
	Tangents  *convert.MorphData `json:"tangents,omitempty"`
}

type Skeleton struct {
	Name   string  `json:"name"`
	Root   int     `json:"root"`
	Joints []Joint `json:"joints"`
}

type Joint struct {
	Name              string      `json:"name"`
	Node              int         `json:"node"`
	Parent            *uint16     `json:"parent"`
	Translation       [3]float32  `json:"translation"`
	Rotation          [4]float32  `json:"rotation"`
	Scale             float32     `json:"scale"`
	InverseBindMatrix [16]float32 `json:"inverse_bind_matrix"`
}

type Animation struct {
	Name     string    `json:"name"`
	Channels []Channel `json:"channels"`
}

// Channel stores keyframe times and values side by side. Spline channels
// keep their two trailing tangent entries in Values.
type Channel struct {
	Skeleton      int         `json:"skeleton"`
	Joint         uint16      `json:"joint"`
	Property      string      `json:"property"`
	Interpolation string      `json:"interpolation"`
	Times         []float32   `json:"times"`
	Values        [][]float32 `json:"values"`
}

type Material struct {
	Name                     string                `json:"name"`
	AlphaMode                string                `json:"alpha_mode"`
	AlphaCutoff              float32               `json:"alpha_cutoff"`
	DoubleSided              bool                  `json:"double_sided"`
	BaseColorFactor          [4]float32            `json:"base_color_factor"`
	BaseColorTexture         *convert.TextureRef   `json:"base_color_texture,omitempty"`
	MetallicFactor           float32               `json:"metallic_factor"`
	RoughnessFactor          float32               `json:"roughness_factor"`
	MetallicRoughnessTexture *convert.TextureRef   `json:"metallic_roughness_texture,omitempty"`
	Normal                   *convert.NormalMap    `json:"normal,omitempty"`
	Occlusion                *convert.OcclusionMap `json:"occlusion,omitempty"`
	Emission                 *convert.Emission     `json:"emission,omitempty"`
}

type Texture struct {
	Name      string `json:"name"`
	Image     int    `json:"image"`
	MagFilter string `json:"mag_filter"`
	MinFilter string `json:"min_filter"`
	WrapS     string `json:"wrap_s"`
	WrapT     string `json:"wrap_t"`
}

// Image carries image metadata only. Pixel bytes stay out of the document.
type Image struct {
	Name     string `json:"name"`
	URI      string `json:"uri,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Format   string `json:"format,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Bytes    int    `json:"bytes"`
}

// name returns s in Unicode normal form C, so that engines matching joints
// and materials by name compare canonical bytes.
func name(s string) string {
	return norm.NFC.String(s)
}

// NewDocument builds the JSON form of model. Names are NFC-normalized.
func NewDocument(model *convert.Model) *Document {
	doc := &Document{
		Scene:      model.Scene,
		Meshes:     make([]Mesh, len(model.Meshes)),
		Skeletons:  make([]Skeleton, len(model.Skeletons)),
		Animations: make([]Animation, len(model.Animations)),
		Materials:  make([]Material, len(model.Materials)),
		Textures:   make([]Texture, len(model.Textures)),
		Images:     make([]Image, len(model.Images)),
	}

	for i := range model.Meshes {
		doc.Meshes[i] = newMesh(&model.Meshes[i])
	}
	for i, s := range model.Skeletons {
		doc.Skeletons[i] = newSkeleton(s)
	}
	for i := range model.Animations {
		doc.Animations[i] = newAnimation(&model.Animations[i])
	}
	for i := range model.Materials {
		doc.Materials[i] = newMaterial(&model.Materials[i])
	}
	for i, t := range model.Textures {
		doc.Textures[i] = Texture{
			Name:      name(t.Name),
			Image:     t.Image,
			MagFilter: t.Sampler.MagFilter.String(),
			MinFilter: t.Sampler.MinFilter.String(),
			WrapS:     t.Sampler.WrapS.String(),
			WrapT:     t.Sampler.WrapT.String(),
		}
	}
	for i, img := range model.Images {
		doc.Images[i] = Image{
			Name:     name(img.Name),
			URI:      img.URI,
			MimeType: img.MimeType,
			Format:   img.Format,
			Width:    img.Width,
			Height:   img.Height,
			Bytes:    len(img.Data),
		}
	}

	return doc
}

func newMesh(m *convert.Mesh) Mesh {
	out := Mesh{
		Name:       name(m.Name),
		Node:       m.Node,
		Skeleton:   m.Skeleton,
		Weights:    m.Weights,
		Primitives: make([]Primitive, len(m.Primitives)),
	}
	for i := range m.Primitives {
		out.Primitives[i] = newPrimitive(&m.Primitives[i])
	}
	return out
}

func newPrimitive(p *convert.Primitive) Primitive {
	set := p.Vertices
	out := Primitive{
		Format:   set.Format.String(),
		Material: p.Material,
		Indices:  p.Indices,
	}
	if set.Format.Has(convert.FormatBones) {
		out.WeightEncoding = set.WeightEncoding.String()
	}

	n := len(set.Vertices)
	v := &out.Vertices
	v.Positions = make([][3]float32, n)
	v.Normals = make([][3]float32, n)
	v.TexCoords0 = make([][2]float32, n)
	for i, vert := range set.Vertices {
		v.Positions[i] = vert.Position
		v.Normals[i] = vert.Normal
		v.TexCoords0[i] = vert.TexCoord0
		if set.Format.Has(convert.FormatTexCoord1) {
			v.TexCoords1 = append(v.TexCoords1, vert.TexCoord1)
		}
		if set.Format.Has(convert.FormatTangent) {
			v.Tangents = append(v.Tangents, vert.Tangent)
		}
		if set.Format.Has(convert.FormatBones) {
			v.Joints = append(v.Joints, vert.Joints)
			if set.WeightEncoding == convert.WeightsFixed16 {
				v.FixedWeights = append(v.FixedWeights, vert.FixedWeights)
			} else {
				v.Weights = append(v.Weights, vert.Weights)
			}
		}
	}

	for _, mt := range p.MorphTargets {
		out.MorphTargets = append(out.MorphTargets, MorphTarget(mt))
	}
	return out
}

func newSkeleton(s *convert.Skeleton) Skeleton {
	out := Skeleton{Name: name(s.Name), Root: s.Root, Joints: make([]Joint, len(s.Joints))}
	for i, j := range s.Joints {
		out.Joints[i] = Joint{
			Name:              name(j.Name),
			Node:              j.Node,
			Parent:            j.Parent,
			Translation:       j.Translation.Array(),
			Rotation:          j.Rotation.Array(),
			Scale:             j.Scale,
			InverseBindMatrix: j.InverseBindMatrix,
		}
	}
	return out
}

func newAnimation(a *convert.Animation) Animation {
	out := Animation{Name: name(a.Name), Channels: make([]Channel, len(a.Channels))}
	for i := range a.Channels {
		ch := &a.Channels[i]
		c := Channel{
			Skeleton:      ch.Skeleton,
			Joint:         ch.Joint,
			Property:      ch.Property.String(),
			Interpolation: ch.Interpolation.String(),
			Times:         ch.Times(),
		}
		switch {
		case ch.Translations != nil:
			for _, k := range ch.Translations {
				v := k.Value.Array()
				c.Values = append(c.Values, v[:])
			}
		case ch.Rotations != nil:
			for _, k := range ch.Rotations {
				v := k.Value.Array()
				c.Values = append(c.Values, v[:])
			}
		case ch.Scales != nil:
			for _, k := range ch.Scales {
				c.Values = append(c.Values, []float32{k.Value})
			}
		case ch.Weights != nil:
			for _, k := range ch.Weights {
				c.Values = append(c.Values, k.Value)
			}
		}
		out.Channels[i] = c
	}
	return out
}

func newMaterial(m *convert.Material) Material {
	return Material{
		Name:                     name(m.Name),
		AlphaMode:                m.AlphaMode.String(),
		AlphaCutoff:              m.AlphaCutoff,
		DoubleSided:              m.DoubleSided,
		BaseColorFactor:          m.BaseColorFactor,
		BaseColorTexture:         m.BaseColorTexture,
		MetallicFactor:           m.MetallicFactor,
		RoughnessFactor:          m.RoughnessFactor,
		MetallicRoughnessTexture: m.MetallicRoughnessTexture,
		Normal:                   m.Normal,
		Occlusion:                m.Occlusion,
		Emission:                 m.Emission,
	}
}

// Encode writes model to w as JSON, indented when pretty is set.
func Encode(w io.Writer, model *convert.Model, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(NewDocument(model))
}

// WriteFile writes model as JSON to path, creating parent directories.
func WriteFile(path string, model *convert.Model, pretty bool) error {
	var buf bytes.Buffer
	if err := Encode(&buf, model, pretty); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// OutputPath returns the JSON path for an input file. An empty dir writes
// next to the input.
func OutputPath(input, dir string) string {
	base := filepath.Base(input)
	name := base[:len(base)-len(filepath.Ext(base))] + ".wg3d.json"
	if dir == "" {
		return filepath.Join(filepath.Dir(input), name)
	}
	return filepath.Join(dir, name)
}
