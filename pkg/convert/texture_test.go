package convert

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Faultbox/wg3d/pkg/formats"
)

type fakeInspector struct{ calls int }

func (f *fakeInspector) Inspect(data []byte) (string, int, int, error) {
	f.calls++
	if len(data) == 0 {
		return "", 0, 0, errors.New("empty image")
	}
	return "fake", len(data), 1, nil
}

type fakeLoader map[string][]byte

func (f fakeLoader) LoadImage(uri string) ([]byte, error) {
	data, ok := f[uri]
	if !ok {
		return nil, fmt.Errorf("no such image %q", uri)
	}
	return data, nil
}

func TestConvertTextures(t *testing.T) {
	b := newDocBuilder()
	embedded := b.view([]byte{1, 2, 3, 4, 5})

	b.doc.Images = []formats.GLTFImage{
		{Name: "albedo", BufferView: &embedded, MimeType: "image/png"},
		{URI: "normal.png"},
	}
	b.doc.Samplers = []formats.GLTFSampler{{
		MagFilter: intPtr(formats.FilterLinear),
		MinFilter: intPtr(formats.FilterLinearMipmapLinear),
		WrapS:     intPtr(formats.WrapClampToEdge),
	}}
	b.doc.Textures = []formats.GLTFTexture{
		{Source: intPtr(0), Sampler: intPtr(0)},
		{Source: intPtr(0)},
		{Name: "bump", Source: intPtr(1)},
	}
	src := b.buffers()

	inspector := &fakeInspector{}
	loader := fakeLoader{"normal.png": {9, 9}}
	textures, images, err := ConvertTextures(b.doc, src, loader, inspector)
	if err != nil {
		t.Fatalf("ConvertTextures failed: %v", err)
	}

	if len(images) != 2 || len(textures) != 3 {
		t.Fatalf("expected 2 images and 3 textures, got %d and %d", len(images), len(textures))
	}
	if textures[0].Image != textures[1].Image {
		t.Error("textures with the same source should share the image")
	}
	if inspector.calls != 2 {
		t.Errorf("expected each image inspected once, got %d calls", inspector.calls)
	}

	if images[0].Format != "fake" || images[0].Width != 5 {
		t.Errorf("unexpected inspected image %+v", images[0])
	}
	src[0][b.doc.BufferViews[embedded].ByteOffset] = 0xFF
	if images[0].Data[0] != 1 {
		t.Error("embedded image data should be copied out of the buffer")
	}
	if images[1].Name != "image_1" || len(images[1].Data) != 2 {
		t.Errorf("unexpected external image %+v", images[1])
	}

	want := Sampler{MagFilter: FilterLinear, MinFilter: FilterLinearMipmapLinear, WrapS: WrapClampToEdge, WrapT: WrapRepeat}
	if textures[0].Sampler != want {
		t.Errorf("sampler: got %+v, want %+v", textures[0].Sampler, want)
	}
	defaults := Sampler{MagFilter: FilterNearest, MinFilter: FilterNearest, WrapS: WrapRepeat, WrapT: WrapRepeat}
	if textures[1].Sampler != defaults {
		t.Errorf("default sampler: got %+v, want %+v", textures[1].Sampler, defaults)
	}
	if textures[0].Name != "albedo" || textures[2].Name != "bump" {
		t.Errorf("texture names: got %q, %q", textures[0].Name, textures[2].Name)
	}
}

func TestConvertTextures_ExternalWithoutLoader(t *testing.T) {
	doc := &formats.GLTF{
		Images:   []formats.GLTFImage{{URI: "albedo.png"}},
		Textures: []formats.GLTFTexture{{Source: intPtr(0)}},
	}

	_, images, err := ConvertTextures(doc, Buffers{}, nil, nil)
	if err != nil {
		t.Fatalf("ConvertTextures failed: %v", err)
	}
	if images[0].URI != "albedo.png" || images[0].Data != nil {
		t.Errorf("unexpected image %+v", images[0])
	}
}

func TestConvertTextures_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     *formats.GLTF
		wantErr error
	}{
		{
			name: "texture without source",
			doc: &formats.GLTF{
				Textures: []formats.GLTFTexture{{}},
			},
			wantErr: ErrMissingImageBuffer,
		},
		{
			name: "image view missing",
			doc: &formats.GLTF{
				Images: []formats.GLTFImage{{BufferView: intPtr(2)}},
			},
			wantErr: ErrMissingImageBuffer,
		},
		{
			name: "image without data",
			doc: &formats.GLTF{
				Images: []formats.GLTFImage{{}},
			},
			wantErr: ErrMissingImageBuffer,
		},
		{
			name: "external image fails to load",
			doc: &formats.GLTF{
				Images: []formats.GLTFImage{{URI: "missing.png"}},
			},
			wantErr: ErrMissingImageBuffer,
		},
		{
			name: "unknown filter",
			doc: &formats.GLTF{
				Images:   []formats.GLTFImage{{URI: "a.png"}},
				Samplers: []formats.GLTFSampler{{MagFilter: intPtr(1234)}},
				Textures: []formats.GLTFTexture{{Source: intPtr(0), Sampler: intPtr(0)}},
			},
			wantErr: ErrOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := fakeLoader{"a.png": {1}}
			if _, _, err := ConvertTextures(tt.doc, Buffers{}, loader, nil); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
