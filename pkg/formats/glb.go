// GLB binary container parser.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// GLB format errors.
var (
	ErrInvalidGLBMagic   = errors.New("invalid GLB magic: expected 'glTF'")
	ErrInvalidGLBVersion = errors.New("unsupported GLB container version")
	ErrMissingJSONChunk  = errors.New("GLB has no JSON chunk")
	ErrTruncatedGLBData  = errors.New("truncated GLB data")
)

const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	glbHeaderSize = 12

	// GLBChunkJSON is the chunk type of the JSON document.
	GLBChunkJSON = 0x4E4F534A
	// GLBChunkBIN is the chunk type of the binary buffer.
	GLBChunkBIN = 0x004E4942
)

// GLBHeader is the 12-byte GLB file header.
type GLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32 // Total file length in bytes
}

// GLBChunkHeader precedes each chunk's payload.
type GLBChunkHeader struct {
	Length uint32 // Payload length in bytes
	Type   uint32
}

// IsGLB reports whether data starts with the GLB magic.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic
}

// ParseGLB parses a GLB container. The first chunk must be JSON; an
// optional BIN chunk becomes GLTF.BinaryChunk. Unknown chunks are skipped.
func ParseGLB(data []byte) (*GLTF, error) {
	if len(data) < glbHeaderSize {
		return nil, ErrTruncatedGLBData
	}

	r := bytes.NewReader(data)

	var header GLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrTruncatedGLBData, err)
	}
	if header.Magic != glbMagic {
		return nil, ErrInvalidGLBMagic
	}
	if header.Version != glbVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGLBVersion, header.Version)
	}
	if header.Length < glbHeaderSize {
		return nil, fmt.Errorf("%w: header says %d bytes", ErrTruncatedGLBData, header.Length)
	}
	if int(header.Length) > len(data) {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrTruncatedGLBData, header.Length, len(data))
	}

	// Trailing bytes past the declared length are ignored
	data = data[:header.Length]
	r = bytes.NewReader(data[glbHeaderSize:])

	var jsonChunk, binChunk []byte
	first := true
	for r.Len() > 0 {
		var ch GLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			return nil, fmt.Errorf("%w: chunk header: %v", ErrTruncatedGLBData, err)
		}
		if int(ch.Length) > r.Len() {
			return nil, fmt.Errorf("%w: chunk of %d bytes, %d remaining", ErrTruncatedGLBData, ch.Length, r.Len())
		}

		payload := make([]byte, ch.Length)
		if _, err := r.Read(payload); err != nil && ch.Length > 0 {
			return nil, fmt.Errorf("%w: chunk payload: %v", ErrTruncatedGLBData, err)
		}

		switch {
		case first && ch.Type != GLBChunkJSON:
			return nil, ErrMissingJSONChunk
		case ch.Type == GLBChunkJSON && jsonChunk == nil:
			jsonChunk = payload
		case ch.Type == GLBChunkBIN && binChunk == nil:
			binChunk = payload
		}
		first = false
	}

	if jsonChunk == nil {
		return nil, ErrMissingJSONChunk
	}

	doc, err := ParseGLTF(jsonChunk)
	if err != nil {
		return nil, err
	}
	doc.BinaryChunk = binChunk

	return doc, nil
}

// EncodeGLB packs a JSON document and an optional binary buffer into a GLB
// container, padding the JSON chunk with spaces and the BIN chunk with zeros.
func EncodeGLB(jsonDoc, bin []byte) []byte {
	jsonPad := (4 - len(jsonDoc)%4) % 4
	binPad := (4 - len(bin)%4) % 4

	total := glbHeaderSize + 8 + len(jsonDoc) + jsonPad
	if bin != nil {
		total += 8 + len(bin) + binPad
	}

	var buf bytes.Buffer
	buf.Grow(total)
	binary.Write(&buf, binary.LittleEndian, GLBHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(total)})

	binary.Write(&buf, binary.LittleEndian, GLBChunkHeader{Length: uint32(len(jsonDoc) + jsonPad), Type: GLBChunkJSON})
	buf.Write(jsonDoc)
	buf.Write(bytes.Repeat([]byte{' '}, jsonPad))

	if bin != nil {
		binary.Write(&buf, binary.LittleEndian, GLBChunkHeader{Length: uint32(len(bin) + binPad), Type: GLBChunkBIN})
		buf.Write(bin)
		buf.Write(make([]byte, binPad))
	}

	return buf.Bytes()
}
