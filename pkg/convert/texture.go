package convert

import (
	"fmt"

	"github.com/Faultbox/wg3d/pkg/formats"
)

// Filter is a texture filtering mode.
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

var filterCodes = map[int]Filter{
	formats.FilterNearest:              FilterNearest,
	formats.FilterLinear:               FilterLinear,
	formats.FilterNearestMipmapNearest: FilterNearestMipmapNearest,
	formats.FilterLinearMipmapNearest:  FilterLinearMipmapNearest,
	formats.FilterNearestMipmapLinear:  FilterNearestMipmapLinear,
	formats.FilterLinearMipmapLinear:   FilterLinearMipmapLinear,
}

// String returns a human-readable filter name.
func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterLinear:
		return "Linear"
	case FilterNearestMipmapNearest:
		return "NearestMipmapNearest"
	case FilterLinearMipmapNearest:
		return "LinearMipmapNearest"
	case FilterNearestMipmapLinear:
		return "NearestMipmapLinear"
	case FilterLinearMipmapLinear:
		return "LinearMipmapLinear"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(f))
	}
}

// Wrap is a texture coordinate wrapping mode.
type Wrap uint8

const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

var wrapCodes = map[int]Wrap{
	formats.WrapRepeat:         WrapRepeat,
	formats.WrapClampToEdge:    WrapClampToEdge,
	formats.WrapMirroredRepeat: WrapMirroredRepeat,
}

// String returns a human-readable wrap name.
func (w Wrap) String() string {
	switch w {
	case WrapRepeat:
		return "Repeat"
	case WrapClampToEdge:
		return "ClampToEdge"
	case WrapMirroredRepeat:
		return "MirroredRepeat"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(w))
	}
}

// Sampler holds texture filtering and wrapping. Unset filters default to
// nearest and unset wrap modes to repeat.
type Sampler struct {
	MagFilter Filter
	MinFilter Filter
	WrapS     Wrap
	WrapT     Wrap
}

// Image is a texture image. Data is nil for external images that were not
// loaded; Format, Width and Height are set when an ImageInspector ran.
type Image struct {
	Name     string
	URI      string
	MimeType string
	Data     []byte
	Format   string
	Width    int
	Height   int
}

// Texture pairs an image with a sampler.
type Texture struct {
	Name    string
	Image   int // Index into the model's images
	Sampler Sampler
}

// ImageLoader fetches external image bytes by URI.
type ImageLoader interface {
	LoadImage(uri string) ([]byte, error)
}

// ImageInspector reports the encoding and size of image bytes without
// decoding pixels.
type ImageInspector interface {
	Inspect(data []byte) (format string, width, height int, err error)
}

// ConvertTextures converts every texture and image of doc. Images embedded
// in buffer views are copied out of the buffer; textures sharing an image
// share its entry. loader and inspector may be nil.
func ConvertTextures(doc *formats.GLTF, src BufferSource, loader ImageLoader, inspector ImageInspector) ([]Texture, []Image, error) {
	images := make([]Image, len(doc.Images))
	for i := range doc.Images {
		img, err := convertImage(doc, i, src, loader, inspector)
		if err != nil {
			return nil, nil, fmt.Errorf("image %d: %w", i, err)
		}
		images[i] = *img
	}

	textures := make([]Texture, len(doc.Textures))
	for i := range doc.Textures {
		gt := &doc.Textures[i]
		if gt.Source == nil || *gt.Source < 0 || *gt.Source >= len(images) {
			return nil, nil, fmt.Errorf("%w: texture %d has no image", ErrMissingImageBuffer, i)
		}

		sampler, err := convertSampler(doc, gt.Sampler)
		if err != nil {
			return nil, nil, fmt.Errorf("texture %d: %w", i, err)
		}

		textures[i] = Texture{Name: gt.Name, Image: *gt.Source, Sampler: sampler}
		if textures[i].Name == "" {
			textures[i].Name = images[*gt.Source].Name
		}
	}

	return textures, images, nil
}

func convertImage(doc *formats.GLTF, index int, src BufferSource, loader ImageLoader, inspector ImageInspector) (*Image, error) {
	gi := &doc.Images[index]
	img := &Image{Name: gi.Name, URI: gi.URI, MimeType: gi.MimeType}
	if img.Name == "" {
		img.Name = fmt.Sprintf("image_%d", index)
	}

	switch {
	case gi.BufferView != nil:
		view, err := resolveView(doc, *gi.BufferView)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingImageBuffer, err)
		}
		data, err := src.Slice(view.Buffer, view.ByteOffset, view.ByteLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingImageBuffer, err)
		}
		img.Data = append([]byte(nil), data...)
	case gi.URI != "" && loader != nil:
		data, err := loader.LoadImage(gi.URI)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingImageBuffer, err)
		}
		img.Data = data
	case gi.URI == "":
		return nil, fmt.Errorf("%w: image has neither URI nor buffer view", ErrMissingImageBuffer)
	}

	if inspector != nil && img.Data != nil {
		format, w, h, err := inspector.Inspect(img.Data)
		if err != nil {
			return nil, fmt.Errorf("inspecting image: %w", err)
		}
		img.Format, img.Width, img.Height = format, w, h
	}

	return img, nil
}

func convertSampler(doc *formats.GLTF, index *int) (Sampler, error) {
	s := Sampler{MagFilter: FilterNearest, MinFilter: FilterNearest, WrapS: WrapRepeat, WrapT: WrapRepeat}
	if index == nil {
		return s, nil
	}
	if *index < 0 || *index >= len(doc.Samplers) {
		return s, fmt.Errorf("%w: sampler %d", ErrInvalidReference, *index)
	}
	gs := &doc.Samplers[*index]

	var err error
	if s.MagFilter, err = lookupCode(filterCodes, gs.MagFilter, FilterNearest); err != nil {
		return s, fmt.Errorf("mag filter: %w", err)
	}
	if s.MinFilter, err = lookupCode(filterCodes, gs.MinFilter, FilterNearest); err != nil {
		return s, fmt.Errorf("min filter: %w", err)
	}
	if s.WrapS, err = lookupCode(wrapCodes, gs.WrapS, WrapRepeat); err != nil {
		return s, fmt.Errorf("wrap s: %w", err)
	}
	if s.WrapT, err = lookupCode(wrapCodes, gs.WrapT, WrapRepeat); err != nil {
		return s, fmt.Errorf("wrap t: %w", err)
	}
	return s, nil
}

func lookupCode[T any](codes map[int]T, code *int, def T) (T, error) {
	if code == nil {
		return def, nil
	}
	v, ok := codes[*code]
	if !ok {
		return def, fmt.Errorf("%w: code %d", ErrOther, *code)
	}
	return v, nil
}
