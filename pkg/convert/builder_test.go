package convert

import (
	"github.com/Faultbox/wg3d/pkg/formats"
)

// docBuilder assembles a document and its single binary buffer for tests.
type docBuilder struct {
	doc *formats.GLTF
	bin []byte
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: &formats.GLTF{Asset: formats.GLTFAsset{Version: "2.0"}}}
}

// view appends raw bytes as a new buffer view, 4-byte aligned.
func (b *docBuilder) view(data []byte) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	b.doc.BufferViews = append(b.doc.BufferViews, formats.GLTFBufferView{
		Buffer:     0,
		ByteOffset: len(b.bin),
		ByteLength: len(data),
	})
	b.bin = append(b.bin, data...)
	return len(b.doc.BufferViews) - 1
}

// accessor packs values into a new view and returns the accessor index.
func (b *docBuilder) accessor(componentType int, typ string, count int, values any) int {
	v := b.view(pack(values))
	b.doc.Accessors = append(b.doc.Accessors, formats.GLTFAccessor{
		BufferView:    &v,
		ComponentType: componentType,
		Count:         count,
		Type:          typ,
	})
	return len(b.doc.Accessors) - 1
}

func (b *docBuilder) vec3(values ...[3]float32) int {
	return b.accessor(formats.ComponentFloat, "VEC3", len(values), values)
}

func (b *docBuilder) vec2(values ...[2]float32) int {
	return b.accessor(formats.ComponentFloat, "VEC2", len(values), values)
}

func (b *docBuilder) scalars(values ...float32) int {
	return b.accessor(formats.ComponentFloat, "SCALAR", len(values), values)
}

// buffers finalizes the buffer list.
func (b *docBuilder) buffers() Buffers {
	b.doc.Buffers = []formats.GLTFBuffer{{ByteLength: len(b.bin)}}
	return Buffers{b.bin}
}

// triangle adds a one-triangle mesh and returns its index.
func (b *docBuilder) triangle(extra map[string]int) int {
	attrs := map[string]int{
		"POSITION":   b.vec3([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}),
		"NORMAL":     b.vec3([3]float32{0, 0, 1}, [3]float32{0, 0, 1}, [3]float32{0, 0, 1}),
		"TEXCOORD_0": b.vec2([2]float32{0, 0}, [2]float32{1, 0}, [2]float32{0, 1}),
	}
	for k, v := range extra {
		attrs[k] = v
	}
	b.doc.Meshes = append(b.doc.Meshes, formats.GLTFMesh{
		Primitives: []formats.GLTFPrimitive{{Attributes: attrs}},
	})
	return len(b.doc.Meshes) - 1
}
