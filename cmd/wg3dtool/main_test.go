package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

// triangleGLTF returns a one-triangle document with an embedded buffer.
func triangleGLTF() []byte {
	var bin bytes.Buffer
	binary.Write(&bin, binary.LittleEndian, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	binary.Write(&bin, binary.LittleEndian, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	binary.Write(&bin, binary.LittleEndian, [][2]float32{{0, 0}, {1, 0}, {0, 1}})

	return []byte(fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "tri", "mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0, "NORMAL": 1, "TEXCOORD_0": 2}}]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 0, "byteOffset": 36, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 0, "byteOffset": 72, "componentType": 5126, "count": 3, "type": "VEC2"}
  ],
  "bufferViews": [{"buffer": 0, "byteLength": %d}],
  "buffers": [{"uri": "data:application/octet-stream;base64,%s", "byteLength": %d}]
}`, bin.Len(), base64.StdEncoding.EncodeToString(bin.Bytes()), bin.Len()))
}

func writeTriangle(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, triangleGLTF(), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestRun_Convert(t *testing.T) {
	dir := t.TempDir()
	input := writeTriangle(t, dir, "tri.gltf")
	outDir := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	code := run([]string{"convert", "-o", outDir, "-basis", "y_up_rotate_180", input}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("convert exited %d: %s", code, stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(outDir, "tri.wg3d.json"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	var doc struct {
		Meshes []struct {
			Name       string `json:"name"`
			Primitives []struct {
				Format   string `json:"format"`
				Vertices struct {
					Positions [][3]float32 `json:"positions"`
				} `json:"vertices"`
			} `json:"primitives"`
		} `json:"meshes"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(doc.Meshes) != 1 || doc.Meshes[0].Name != "tri" {
		t.Fatalf("unexpected meshes %+v", doc.Meshes)
	}
	prim := doc.Meshes[0].Primitives[0]
	if prim.Format != "pos_norm_uv0" || prim.Vertices.Positions[1] != [3]float32{-1, 0, 0} {
		t.Errorf("unexpected primitive %+v", prim)
	}
	if !strings.Contains(stdout.String(), "(1 files converted)") {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
}

func TestRun_ConvertKeepsGoingOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeTriangle(t, dir, "good.gltf")
	missing := filepath.Join(dir, "missing.gltf")

	var stdout, stderr bytes.Buffer
	code := run([]string{"convert", missing, good}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("expected exit status 1, got %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "good.wg3d.json")); err != nil {
		t.Errorf("good file should still be converted: %v", err)
	}
	if !strings.Contains(stderr.String(), "1 of 2 files failed") {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestRun_Inspect(t *testing.T) {
	input := writeTriangle(t, t.TempDir(), "tri.gltf")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"inspect", input}, &stdout, &stderr); code != 0 {
		t.Fatalf("inspect exited %d: %s", code, stderr.String())
	}
	for _, want := range []string{"Meshes:     1 (1 primitives)", "Triangles:  1", "pos_norm_uv0"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("inspect output missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestRun_Config(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wg3d.yaml")

	var stdout, stderr bytes.Buffer
	code := run([]string{"config", "-basis", "y_up_rotate_180", "-weights", "fixed16", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("config exited %d: %s", code, stderr.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	for _, want := range []string{"basis: y_up_rotate_180", "weight_encoding: fixed16"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("saved config missing %q:\n%s", want, data)
		}
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, 1},
		{"help", []string{"help"}, 0},
		{"unknown command", []string{"explode"}, 1},
		{"convert without files", []string{"convert"}, 1},
		{"inspect two files", []string{"inspect", "a.gltf", "b.gltf"}, 1},
		{"config two paths", []string{"config", "a.yaml", "b.yaml"}, 1},
		{"invalid basis", []string{"convert", "-basis", "sideways", "a.gltf"}, 1},
		{"unknown flag", []string{"convert", "-frobnicate"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
