package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/wg3d/pkg/formats"
)

// documentJSON returns a document with one buffer of byteLength bytes at
// uri and one image at imageURI. An empty uri refers to the GLB chunk.
func documentJSON(uri string, byteLength int, imageURI string) string {
	buffer := fmt.Sprintf(`{"byteLength": %d}`, byteLength)
	if uri != "" {
		buffer = fmt.Sprintf(`{"uri": %q, "byteLength": %d}`, uri, byteLength)
	}
	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "buffers": [%s],
  "images": [{"uri": %q}]
}`, buffer, imageURI)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestManager_OpenExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "mesh data.bin"), []byte{1, 2, 3, 4})
	writeFile(t, filepath.Join(dir, "data", "albedo.png"), []byte("png"))
	writeFile(t, filepath.Join(dir, "model.gltf"), []byte(documentJSON("data/mesh%20data.bin", 4, "data/albedo.png")))

	m := NewManager()
	asset, err := m.Open(filepath.Join(dir, "model.gltf"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if len(asset.Buffers) != 1 || string(asset.Buffers[0]) != "\x01\x02\x03\x04" {
		t.Errorf("unexpected buffers %v", asset.Buffers)
	}

	img, err := asset.LoadImage(asset.Doc.Images[0].URI)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if string(img) != "png" {
		t.Errorf("unexpected image bytes %q", img)
	}
}

func TestManager_OpenDataURI(t *testing.T) {
	dir := t.TempDir()
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString([]byte{9, 8, 7})
	writeFile(t, filepath.Join(dir, "model.gltf"), []byte(documentJSON(uri, 3, "data:image/png;base64,cG5n")))

	asset, err := NewManager().Open(filepath.Join(dir, "model.gltf"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(asset.Buffers[0]) != "\x09\x08\x07" {
		t.Errorf("unexpected buffer %v", asset.Buffers[0])
	}

	img, err := asset.LoadImage(asset.Doc.Images[0].URI)
	if err != nil || string(img) != "png" {
		t.Errorf("LoadImage = %q, %v", img, err)
	}
}

func TestManager_OpenGLB(t *testing.T) {
	dir := t.TempDir()
	// The chunk is padded to 8 bytes, the buffer declares 6
	glb := formats.EncodeGLB([]byte(documentJSON("", 6, "albedo.png")), []byte{1, 2, 3, 4, 5, 6})
	writeFile(t, filepath.Join(dir, "model.glb"), glb)

	asset, err := NewManager().Open(filepath.Join(dir, "model.glb"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(asset.Buffers[0]) != 6 {
		t.Errorf("expected buffer trimmed to 6 bytes, got %d", len(asset.Buffers[0]))
	}
}

func TestManager_OpenErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{
			name:    "external buffer too short",
			file:    "model.gltf",
			data:    []byte(documentJSON("mesh.bin", 8, "a.png")),
			wantErr: ErrInvalidBufferLength,
		},
		{
			name:    "data uri length mismatch",
			file:    "model.gltf",
			data:    []byte(documentJSON("data:application/octet-stream;base64,AAAA", 4, "a.png")),
			wantErr: ErrInvalidBufferLength,
		},
		{
			name:    "data uri not base64",
			file:    "model.gltf",
			data:    []byte(documentJSON("data:text/plain,hello", 5, "a.png")),
			wantErr: ErrInvalidDataURI,
		},
		{
			name:    "glb chunk too short",
			file:    "model.glb",
			data:    formats.EncodeGLB([]byte(documentJSON("", 16, "a.png")), []byte{1, 2, 3, 4}),
			wantErr: ErrInvalidBufferLength,
		},
		{
			name:    "gltf without binary chunk",
			file:    "model.gltf",
			data:    []byte(documentJSON("", 4, "a.png")),
			wantErr: ErrMissingBinChunk,
		},
		{
			name:    "not a gltf file",
			file:    "model.gltf",
			data:    []byte("{"),
			wantErr: formats.ErrInvalidGLTFJSON,
		},
		{
			name:    "missing buffer file",
			file:    "model.gltf",
			data:    []byte(documentJSON("absent.bin", 4, "a.png")),
			wantErr: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "mesh.bin"), []byte{1, 2, 3, 4})
			writeFile(t, filepath.Join(dir, tt.file), tt.data)

			if _, err := NewManager().Open(filepath.Join(dir, tt.file)); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestManager_CachesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shared.bin"), []byte{1, 2, 3, 4})
	writeFile(t, filepath.Join(dir, "a.gltf"), []byte(documentJSON("shared.bin", 4, "x.png")))
	writeFile(t, filepath.Join(dir, "b.gltf"), []byte(documentJSON("shared.bin", 4, "x.png")))

	m := NewManager()
	for _, name := range []string{"a.gltf", "b.gltf"} {
		if _, err := m.Open(filepath.Join(dir, name)); err != nil {
			t.Fatalf("Open %s failed: %v", name, err)
		}
	}

	hits, misses, files := m.Stats()
	if hits != 1 || misses != 3 || files != 3 {
		t.Errorf("expected 1 hit, 3 misses and 3 files, got %d, %d and %d", hits, misses, files)
	}

	m.Close()
	if _, _, files := m.Stats(); files != 0 {
		t.Errorf("expected empty cache after Close, got %d entries", files)
	}
}

func TestCache(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get("a"); ok {
		t.Error("expected miss on empty cache")
	}
	c.Set("a", []byte("x"))
	if data, ok := c.Get("a"); !ok || string(data) != "x" {
		t.Errorf("Get = %q, %v", data, ok)
	}

	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}

	c.Clear()
	if hits, misses := c.Stats(); hits != 0 || misses != 0 || c.Len() != 0 {
		t.Error("expected Clear to reset entries and stats")
	}
}
