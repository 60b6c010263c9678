// Package convert turns a parsed glTF 2.0 document into the WG3D
// intermediate model: decoded vertex streams, skeletons, animation channels,
// materials and texture references.
//
// The package performs no I/O. Buffer bytes arrive through a BufferSource
// and every decoded stream is an owned slice independent of the buffer.
package convert

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"slices"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

// ComponentType is the numeric type of one accessor component.
type ComponentType int

const (
	ComponentByte          ComponentType = formats.ComponentByte
	ComponentUnsignedByte  ComponentType = formats.ComponentUnsignedByte
	ComponentShort         ComponentType = formats.ComponentShort
	ComponentUnsignedShort ComponentType = formats.ComponentUnsignedShort
	ComponentUnsignedInt   ComponentType = formats.ComponentUnsignedInt
	ComponentFloat         ComponentType = formats.ComponentFloat
)

// Size returns the component size in bytes, or 0 for unknown types.
func (c ComponentType) Size() int {
	switch c {
	case ComponentByte, ComponentUnsignedByte:
		return 1
	case ComponentShort, ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	default:
		return 0
	}
}

// String returns the glTF name of the component type.
func (c ComponentType) String() string {
	switch c {
	case ComponentByte:
		return "BYTE"
	case ComponentUnsignedByte:
		return "UNSIGNED_BYTE"
	case ComponentShort:
		return "SHORT"
	case ComponentUnsignedShort:
		return "UNSIGNED_SHORT"
	case ComponentUnsignedInt:
		return "UNSIGNED_INT"
	case ComponentFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Dimensions is the shape of one accessor element.
type Dimensions uint8

const (
	Scalar Dimensions = iota + 1
	Vec2
	Vec3
	Vec4
	Mat2
	Mat3
	Mat4
)

// ParseDimensions converts a glTF accessor type name.
func ParseDimensions(s string) (Dimensions, error) {
	switch s {
	case formats.AccessorScalar:
		return Scalar, nil
	case formats.AccessorVec2:
		return Vec2, nil
	case formats.AccessorVec3:
		return Vec3, nil
	case formats.AccessorVec4:
		return Vec4, nil
	case formats.AccessorMat2:
		return Mat2, nil
	case formats.AccessorMat3:
		return Mat3, nil
	case formats.AccessorMat4:
		return Mat4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDimensions, s)
	}
}

// Components returns the number of components per element.
func (d Dimensions) Components() int {
	switch d {
	case Scalar:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4, Mat2:
		return 4
	case Mat3:
		return 9
	case Mat4:
		return 16
	default:
		return 0
	}
}

// String returns the glTF name of the shape.
func (d Dimensions) String() string {
	switch d {
	case Scalar:
		return formats.AccessorScalar
	case Vec2:
		return formats.AccessorVec2
	case Vec3:
		return formats.AccessorVec3
	case Vec4:
		return formats.AccessorVec4
	case Mat2:
		return formats.AccessorMat2
	case Mat3:
		return formats.AccessorMat3
	case Mat4:
		return formats.AccessorMat4
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(d))
	}
}

// BufferView is a byte range of one buffer.
type BufferView struct {
	Buffer     int
	ByteOffset int
	ByteLength int
	ByteStride int // 0 means tightly packed
}

// stride returns the effective stride for elements of elemSize bytes.
func (v *BufferView) stride(elemSize int) (int, error) {
	if v.ByteStride == 0 {
		return elemSize, nil
	}
	if v.ByteStride < elemSize {
		return 0, fmt.Errorf("%w: stride %d, element %d bytes", ErrInvalidStride, v.ByteStride, elemSize)
	}
	return v.ByteStride, nil
}

// Accessor is a read-only typed view into a buffer. It owns no bytes.
type Accessor struct {
	Index         int // Position in the document's accessor list
	Count         int
	ComponentType ComponentType
	Dimensions    Dimensions
	Normalized    bool
	View          *BufferView // nil for a zero-filled base
	ByteOffset    int         // Relative to the view
	Sparse        *Sparse
}

// Sparse overrides Count elements of the dense base.
type Sparse struct {
	Count   int
	Indices SparseIndices
	Values  SparseValues
}

// SparseIndices locates the sparse index stream.
type SparseIndices struct {
	View          BufferView
	ByteOffset    int
	ComponentType ComponentType
}

// SparseValues locates the sparse value stream. Values share the
// accessor's component type and shape.
type SparseValues struct {
	View       BufferView
	ByteOffset int
}

// ElementSize returns the byte size of one tightly packed element.
func (a *Accessor) ElementSize() int {
	return a.ComponentType.Size() * a.Dimensions.Components()
}

func (a *Accessor) String() string {
	return fmt.Sprintf("accessor %d (%s %s x%d)", a.Index, a.ComponentType, a.Dimensions, a.Count)
}

// ResolveAccessor builds the accessor at index from the document.
func ResolveAccessor(doc *formats.GLTF, index int) (*Accessor, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", ErrInvalidReference, index)
	}
	src := &doc.Accessors[index]

	dims, err := ParseDimensions(src.Type)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", index, err)
	}
	ct := ComponentType(src.ComponentType)
	if ct.Size() == 0 {
		return nil, fmt.Errorf("%w: accessor %d has component type %d", ErrUnsupportedDataType, index, src.ComponentType)
	}
	if src.Count < 0 || src.ByteOffset < 0 {
		return nil, fmt.Errorf("%w: accessor %d has negative count or offset", ErrOther, index)
	}

	a := &Accessor{
		Index:         index,
		Count:         src.Count,
		ComponentType: ct,
		Dimensions:    dims,
		Normalized:    src.Normalized,
		ByteOffset:    src.ByteOffset,
	}

	if src.BufferView != nil {
		view, err := resolveView(doc, *src.BufferView)
		if err != nil {
			return nil, fmt.Errorf("accessor %d: %w", index, err)
		}
		a.View = &view
	}

	if sp := src.Sparse; sp != nil {
		indexType := ComponentType(sp.Indices.ComponentType)
		switch indexType {
		case ComponentUnsignedByte, ComponentUnsignedShort, ComponentUnsignedInt:
		default:
			return nil, fmt.Errorf("%w: accessor %d sparse indices are %s", ErrUnsupportedDataType, index, indexType)
		}
		indexView, err := resolveView(doc, sp.Indices.BufferView)
		if err != nil {
			return nil, fmt.Errorf("accessor %d sparse indices: %w", index, err)
		}
		valueView, err := resolveView(doc, sp.Values.BufferView)
		if err != nil {
			return nil, fmt.Errorf("accessor %d sparse values: %w", index, err)
		}
		if sp.Count < 1 || sp.Count > src.Count {
			return nil, fmt.Errorf("%w: accessor %d has %d sparse elements, want 1 to %d",
				ErrOther, index, sp.Count, src.Count)
		}
		if sp.Indices.ByteOffset < 0 || sp.Values.ByteOffset < 0 {
			return nil, fmt.Errorf("%w: accessor %d has a negative sparse offset", ErrOther, index)
		}
		a.Sparse = &Sparse{
			Count:   sp.Count,
			Indices: SparseIndices{View: indexView, ByteOffset: sp.Indices.ByteOffset, ComponentType: indexType},
			Values:  SparseValues{View: valueView, ByteOffset: sp.Values.ByteOffset},
		}
	}

	return a, nil
}

func resolveView(doc *formats.GLTF, index int) (BufferView, error) {
	if index < 0 || index >= len(doc.BufferViews) {
		return BufferView{}, fmt.Errorf("%w: buffer view %d", ErrMissingBuffer, index)
	}
	v := &doc.BufferViews[index]
	return BufferView{
		Buffer:     v.Buffer,
		ByteOffset: v.ByteOffset,
		ByteLength: v.ByteLength,
		ByteStride: v.ByteStride,
	}, nil
}

// expect checks the accessor against the shape and component types a call
// site can decode.
func (a *Accessor) expect(dims Dimensions, types ...ComponentType) error {
	if a.Dimensions != dims {
		return fmt.Errorf("%w: %s, want %s", ErrUnsupportedDimensions, a, dims)
	}
	if !slices.Contains(types, a.ComponentType) {
		return fmt.Errorf("%w: %s, want one of %v", ErrUnsupportedDataType, a, types)
	}
	return nil
}

// readStrided slices count elements of elemSize bytes spaced by the view's
// stride and decodes each one.
func readStrided[T any](view *BufferView, offset, count, elemSize int, src BufferSource, decode func([]byte) T) ([]T, error) {
	if count < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: %d elements at offset %d", ErrBufferOutOfBounds, count, offset)
	}
	if count == 0 {
		return make([]T, 0), nil
	}

	stride, err := view.stride(elemSize)
	if err != nil {
		return nil, err
	}
	// stride*count may overflow int, so the bound is checked by division.
	if offset > view.ByteLength-elemSize || count-1 > (view.ByteLength-offset-elemSize)/stride {
		return nil, fmt.Errorf("%w: %d elements of %d bytes at offset %d exceed view of %d bytes",
			ErrBufferOutOfBounds, count, elemSize, offset, view.ByteLength)
	}
	span := stride*(count-1) + elemSize

	out := make([]T, count)

	data, err := src.Slice(view.Buffer, view.ByteOffset+offset, span)
	if err != nil {
		return nil, err
	}
	for i := range out {
		off := i * stride
		out[i] = decode(data[off : off+elemSize])
	}
	return out, nil
}

// readElements decodes every element of a, applying sparse overrides.
// decode is chosen once by the caller for the accessor's component type
// and shape.
func readElements[T any](a *Accessor, src BufferSource, decode func([]byte) T) ([]T, error) {
	size := a.ElementSize()

	var out []T
	if a.View != nil {
		var err error
		out, err = readStrided(a.View, a.ByteOffset, a.Count, size, src, decode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
	} else {
		if a.Count < 0 {
			return nil, fmt.Errorf("%w: %s has a negative count", ErrBufferOutOfBounds, a)
		}
		out = make([]T, a.Count)
	}

	if a.Sparse == nil {
		return out, nil
	}

	indices, values, err := readSparse(a, src, decode)
	if err != nil {
		return nil, err
	}
	for i, idx := range indices {
		out[idx] = values[i]
	}
	return out, nil
}

// readSparse decodes the sparse index and value streams of a.
func readSparse[T any](a *Accessor, src BufferSource, decode func([]byte) T) ([]uint32, []T, error) {
	sp := a.Sparse
	indexDecode, err := indexDecoder(sp.Indices.ComponentType)
	if err != nil {
		return nil, nil, fmt.Errorf("%s sparse indices: %w", a, err)
	}
	indices, err := readStrided(&sp.Indices.View, sp.Indices.ByteOffset, sp.Count, sp.Indices.ComponentType.Size(), src, indexDecode)
	if err != nil {
		return nil, nil, fmt.Errorf("%s sparse indices: %w", a, err)
	}
	for _, idx := range indices {
		if int(idx) >= a.Count {
			return nil, nil, fmt.Errorf("%w: %s sparse index %d", ErrBufferOutOfBounds, a, idx)
		}
	}

	values, err := readStrided(&sp.Values.View, sp.Values.ByteOffset, sp.Count, a.ElementSize(), src, decode)
	if err != nil {
		return nil, nil, fmt.Errorf("%s sparse values: %w", a, err)
	}
	return indices, values, nil
}

// Normalization of integer components to floats.

// NormalizeU8 maps [0, 255] to [0, 1].
func NormalizeU8(v uint8) float32 { return float32(v) / 255 }

// NormalizeU16 maps [0, 65535] to [0, 1].
func NormalizeU16(v uint16) float32 { return float32(v) / 65535 }

// NormalizeI8 maps [-127, 127] to [-1, 1]. -128 clamps to -1.
func NormalizeI8(v int8) float32 { return max(float32(v)/127, -1) }

// NormalizeI16 maps [-32767, 32767] to [-1, 1]. -32768 clamps to -1.
func NormalizeI16(v int16) float32 { return max(float32(v)/32767, -1) }

// componentFunc decodes one component from the start of b.
type componentFunc func(b []byte) float32

func readF32(b []byte) float32 {
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(b))
}

// floatComponent returns the float decoder for ct. Integer types are
// normalized.
func floatComponent(ct ComponentType) (componentFunc, error) {
	switch ct {
	case ComponentFloat:
		return readF32, nil
	case ComponentUnsignedByte:
		return func(b []byte) float32 { return NormalizeU8(b[0]) }, nil
	case ComponentByte:
		return func(b []byte) float32 { return NormalizeI8(int8(b[0])) }, nil
	case ComponentUnsignedShort:
		return func(b []byte) float32 { return NormalizeU16(binary.LittleEndian.Uint16(b)) }, nil
	case ComponentShort:
		return func(b []byte) float32 { return NormalizeI16(int16(binary.LittleEndian.Uint16(b))) }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDataType, ct)
	}
}

// indexDecoder returns the decoder for unsigned integer scalars.
func indexDecoder(ct ComponentType) (func([]byte) uint32, error) {
	switch ct {
	case ComponentUnsignedByte:
		return func(b []byte) uint32 { return uint32(b[0]) }, nil
	case ComponentUnsignedShort:
		return func(b []byte) uint32 { return uint32(binary.LittleEndian.Uint16(b)) }, nil
	case ComponentUnsignedInt:
		return binary.LittleEndian.Uint32, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDataType, ct)
	}
}

// Float-only shapes.

// ReadScalarF32 decodes a FLOAT scalar accessor.
func ReadScalarF32(a *Accessor, src BufferSource) ([]float32, error) {
	if err := a.expect(Scalar, ComponentFloat); err != nil {
		return nil, err
	}
	return readElements(a, src, readF32)
}

// ReadVec2F32 decodes a FLOAT vec2 accessor.
func ReadVec2F32(a *Accessor, src BufferSource) ([][2]float32, error) {
	if err := a.expect(Vec2, ComponentFloat); err != nil {
		return nil, err
	}
	return readElements(a, src, func(b []byte) [2]float32 {
		return [2]float32{readF32(b), readF32(b[4:])}
	})
}

// ReadVec3F32 decodes a FLOAT vec3 accessor.
func ReadVec3F32(a *Accessor, src BufferSource) ([][3]float32, error) {
	if err := a.expect(Vec3, ComponentFloat); err != nil {
		return nil, err
	}
	return readElements(a, src, func(b []byte) [3]float32 {
		return [3]float32{readF32(b), readF32(b[4:]), readF32(b[8:])}
	})
}

// ReadVec4F32 decodes a FLOAT vec4 accessor.
func ReadVec4F32(a *Accessor, src BufferSource) ([][4]float32, error) {
	if err := a.expect(Vec4, ComponentFloat); err != nil {
		return nil, err
	}
	return readElements(a, src, func(b []byte) [4]float32 {
		return [4]float32{readF32(b), readF32(b[4:]), readF32(b[8:]), readF32(b[12:])}
	})
}

// ReadMat4F32 decodes a FLOAT mat4 accessor. Matrices are column-major in
// both the buffer and math.Mat4.
func ReadMat4F32(a *Accessor, src BufferSource) ([]math.Mat4, error) {
	if err := a.expect(Mat4, ComponentFloat); err != nil {
		return nil, err
	}
	return readElements(a, src, func(b []byte) math.Mat4 {
		var m math.Mat4
		for i := range m {
			m[i] = readF32(b[i*4:])
		}
		return m
	})
}

// Raw integer streams. These are never normalized.

// ReadIndices decodes an unsigned integer scalar accessor.
func ReadIndices(a *Accessor, src BufferSource) ([]uint32, error) {
	if err := a.expect(Scalar, ComponentUnsignedByte, ComponentUnsignedShort, ComponentUnsignedInt); err != nil {
		return nil, err
	}
	decode, err := indexDecoder(a.ComponentType)
	if err != nil {
		return nil, err
	}
	return readElements(a, src, decode)
}

// ReadJoints decodes a JOINTS_n accessor of unsigned bytes or shorts.
func ReadJoints(a *Accessor, src BufferSource) ([][4]uint16, error) {
	if err := a.expect(Vec4, ComponentUnsignedByte, ComponentUnsignedShort); err != nil {
		return nil, err
	}
	if a.ComponentType == ComponentUnsignedByte {
		return readElements(a, src, func(b []byte) [4]uint16 {
			return [4]uint16{uint16(b[0]), uint16(b[1]), uint16(b[2]), uint16(b[3])}
		})
	}
	return readElements(a, src, func(b []byte) [4]uint16 {
		return [4]uint16{
			binary.LittleEndian.Uint16(b),
			binary.LittleEndian.Uint16(b[2:]),
			binary.LittleEndian.Uint16(b[4:]),
			binary.LittleEndian.Uint16(b[6:]),
		}
	})
}

// Normalized streams. FLOAT passes through; integer components are
// normalized whether or not the accessor sets the normalized flag.

var normalizedTypes = []ComponentType{
	ComponentFloat,
	ComponentUnsignedByte,
	ComponentUnsignedShort,
	ComponentByte,
	ComponentShort,
}

// ReadNormalizedScalar decodes a scalar stream such as morph weights.
func ReadNormalizedScalar(a *Accessor, src BufferSource) ([]float32, error) {
	if err := a.expect(Scalar, normalizedTypes...); err != nil {
		return nil, err
	}
	comp, err := floatComponent(a.ComponentType)
	if err != nil {
		return nil, err
	}
	return readElements(a, src, func(b []byte) float32 { return comp(b) })
}

// ReadNormalizedVec2 decodes a vec2 stream such as texture coordinates.
func ReadNormalizedVec2(a *Accessor, src BufferSource) ([][2]float32, error) {
	if err := a.expect(Vec2, normalizedTypes...); err != nil {
		return nil, err
	}
	comp, err := floatComponent(a.ComponentType)
	if err != nil {
		return nil, err
	}
	cs := a.ComponentType.Size()
	return readElements(a, src, func(b []byte) [2]float32 {
		return [2]float32{comp(b), comp(b[cs:])}
	})
}

// ReadNormalizedVec4 decodes a vec4 stream such as joint weights or
// rotations.
func ReadNormalizedVec4(a *Accessor, src BufferSource) ([][4]float32, error) {
	if err := a.expect(Vec4, normalizedTypes...); err != nil {
		return nil, err
	}
	comp, err := floatComponent(a.ComponentType)
	if err != nil {
		return nil, err
	}
	cs := a.ComponentType.Size()
	return readElements(a, src, func(b []byte) [4]float32 {
		return [4]float32{comp(b), comp(b[cs:]), comp(b[2*cs:]), comp(b[3*cs:])}
	})
}

// ReadSparseVec3F32 decodes only the sparse overrides of a FLOAT vec3
// accessor, for accessors without a dense base.
func ReadSparseVec3F32(a *Accessor, src BufferSource) ([]uint32, [][3]float32, error) {
	if err := a.expect(Vec3, ComponentFloat); err != nil {
		return nil, nil, err
	}
	if a.Sparse == nil {
		return nil, nil, fmt.Errorf("%w: %s is not sparse", ErrOther, a)
	}
	return readSparse(a, src, func(b []byte) [3]float32 {
		return [3]float32{readF32(b), readF32(b[4:]), readF32(b[8:])}
	})
}
