package convert

import (
	"fmt"

	"github.com/Faultbox/wg3d/pkg/formats"
)

// AlphaMode controls how material alpha is interpreted.
type AlphaMode uint8

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// String returns the glTF alpha mode name.
func (m AlphaMode) String() string {
	switch m {
	case AlphaOpaque:
		return formats.AlphaOpaque
	case AlphaMask:
		return formats.AlphaMask
	case AlphaBlend:
		return formats.AlphaBlend
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// TextureRef points at a converted texture and the UV set it samples.
type TextureRef struct {
	Texture  int `json:"texture"`
	TexCoord int `json:"tex_coord"`
}

// NormalMap is a tangent-space normal texture.
type NormalMap struct {
	TextureRef
	Scale float32 `json:"scale"`
}

// OcclusionMap is an ambient occlusion texture.
type OcclusionMap struct {
	TextureRef
	Strength float32 `json:"strength"`
}

// Emission is the emissive term. A zero factor without a texture means the
// material has no emission and Emission is nil.
type Emission struct {
	Factor  [3]float32  `json:"factor"`
	Texture *TextureRef `json:"texture,omitempty"`
}

// Material is a converted metallic-roughness material.
type Material struct {
	Name        string
	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool

	BaseColorFactor  [4]float32
	BaseColorTexture *TextureRef

	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *TextureRef

	Normal    *NormalMap
	Occlusion *OcclusionMap
	Emission  *Emission
}

// ConvertMaterials converts every material of doc. Unnamed materials get
// "material_<n>". A texture reference to a missing texture fails.
func ConvertMaterials(doc *formats.GLTF) ([]Material, error) {
	out := make([]Material, len(doc.Materials))
	for i := range doc.Materials {
		m, err := convertMaterial(doc, i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		out[i] = *m
	}
	return out, nil
}

func convertMaterial(doc *formats.GLTF, index int) (*Material, error) {
	src := &doc.Materials[index]
	m := &Material{
		Name:            src.Name,
		AlphaCutoff:     0.5,
		DoubleSided:     src.DoubleSided,
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}
	if m.Name == "" {
		m.Name = fmt.Sprintf("material_%d", index)
	}

	switch src.AlphaMode {
	case "", formats.AlphaOpaque:
		m.AlphaMode = AlphaOpaque
	case formats.AlphaMask:
		m.AlphaMode = AlphaMask
	case formats.AlphaBlend:
		m.AlphaMode = AlphaBlend
	default:
		return nil, fmt.Errorf("%w: alpha mode %q", ErrOther, src.AlphaMode)
	}
	if src.AlphaCutoff != nil {
		m.AlphaCutoff = *src.AlphaCutoff
	}

	var err error
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			m.BaseColorFactor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			m.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			m.RoughnessFactor = *pbr.RoughnessFactor
		}
		if m.BaseColorTexture, err = textureRef(doc, pbr.BaseColorTexture); err != nil {
			return nil, fmt.Errorf("base color: %w", err)
		}
		if m.MetallicRoughnessTexture, err = textureRef(doc, pbr.MetallicRoughnessTexture); err != nil {
			return nil, fmt.Errorf("metallic roughness: %w", err)
		}
	}

	if nt := src.NormalTexture; nt != nil {
		ref, err := textureRef(doc, &nt.GLTFTextureInfo)
		if err != nil {
			return nil, fmt.Errorf("normal map: %w", err)
		}
		m.Normal = &NormalMap{TextureRef: *ref, Scale: 1}
		if nt.Scale != nil {
			m.Normal.Scale = *nt.Scale
		}
	}

	if ot := src.OcclusionTexture; ot != nil {
		ref, err := textureRef(doc, &ot.GLTFTextureInfo)
		if err != nil {
			return nil, fmt.Errorf("occlusion map: %w", err)
		}
		m.Occlusion = &OcclusionMap{TextureRef: *ref, Strength: 1}
		if ot.Strength != nil {
			m.Occlusion.Strength = *ot.Strength
		}
	}

	emissiveTex, err := textureRef(doc, src.EmissiveTexture)
	if err != nil {
		return nil, fmt.Errorf("emission: %w", err)
	}
	var factor [3]float32
	if src.EmissiveFactor != nil {
		factor = *src.EmissiveFactor
	}
	if emissiveTex != nil || factor != [3]float32{} {
		m.Emission = &Emission{Factor: factor, Texture: emissiveTex}
	}

	return m, nil
}

// textureRef validates info against the document's textures.
func textureRef(doc *formats.GLTF, info *formats.GLTFTextureInfo) (*TextureRef, error) {
	if info == nil {
		return nil, nil
	}
	if info.Index < 0 || info.Index >= len(doc.Textures) {
		return nil, fmt.Errorf("%w: texture %d", ErrMissingImageBuffer, info.Index)
	}
	return &TextureRef{Texture: info.Index, TexCoord: info.TexCoord}, nil
}
