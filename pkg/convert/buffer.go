package convert

import "fmt"

// BufferSource hands out byte ranges of the asset's binary buffers. The
// returned slice is only valid for the duration of one decode call.
type BufferSource interface {
	Slice(buffer, offset, length int) ([]byte, error)
}

// Buffers is a BufferSource over fully loaded buffers, indexed like the
// document's buffer list. A nil entry is a buffer that failed to load.
type Buffers [][]byte

// Slice implements BufferSource.
func (b Buffers) Slice(buffer, offset, length int) ([]byte, error) {
	if buffer < 0 || buffer >= len(b) || b[buffer] == nil {
		return nil, fmt.Errorf("%w: buffer %d", ErrMissingBuffer, buffer)
	}
	data := b[buffer]
	if offset < 0 || length < 0 || offset+length > len(data) {
		return nil, fmt.Errorf("%w: buffer %d has %d bytes, need [%d, %d)",
			ErrBufferOutOfBounds, buffer, len(data), offset, offset+length)
	}
	return data[offset : offset+length : offset+length], nil
}
