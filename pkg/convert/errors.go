package convert

import "errors"

// Conversion errors. Every failure returned by this package wraps exactly
// one of these, so callers can classify with errors.Is or Kind.
var (
	ErrUnsupportedDataType      = errors.New("unsupported accessor component type")
	ErrUnsupportedDimensions    = errors.New("unsupported accessor dimensions")
	ErrInvalidStride            = errors.New("byte stride smaller than element size")
	ErrMissingBuffer            = errors.New("missing buffer")
	ErrBufferOutOfBounds        = errors.New("buffer region out of bounds")
	ErrMissingAttributes        = errors.New("missing vertex attributes")
	ErrCardinalityMismatch      = errors.New("stream cardinality mismatch")
	ErrNoSkeleton               = errors.New("skin has no skeleton root")
	ErrSkeletonRootNotFound     = errors.New("skeleton root not found in node graph")
	ErrTooManyJoints            = errors.New("too many joints")
	ErrInvalidJoint             = errors.New("invalid joint reference")
	ErrNonUniformScaling        = errors.New("non-uniform scaling")
	ErrNonMonotonicTimes        = errors.New("keyframe times are not monotonic")
	ErrIndexOutOfRange          = errors.New("vertex index out of range")
	ErrUnsupportedPrimitiveMode = errors.New("unsupported primitive mode")
	ErrMissingImageBuffer       = errors.New("missing image buffer")
	ErrNoDefaultScene           = errors.New("no default scene")
	ErrInvalidReference         = errors.New("reference to undefined object")
	ErrOther                    = errors.New("conversion error")
)

// ErrorKind is the coarse classification of a conversion failure.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindMissingAttribute
	KindUnsupportedEncoding
	KindCardinalityMismatch
	KindMissingBuffer
	KindSkeletonStructure
	KindInvalidJoint
	KindNonUniformScale
	KindOther
)

// String returns a human-readable kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMissingAttribute:
		return "missing-attribute"
	case KindUnsupportedEncoding:
		return "unsupported-encoding"
	case KindCardinalityMismatch:
		return "cardinality-mismatch"
	case KindMissingBuffer:
		return "missing-buffer"
	case KindSkeletonStructure:
		return "skeleton-structure"
	case KindInvalidJoint:
		return "invalid-joint"
	case KindNonUniformScale:
		return "non-uniform-scale"
	default:
		return "other"
	}
}

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrMissingAttributes, KindMissingAttribute},
	{ErrUnsupportedDataType, KindUnsupportedEncoding},
	{ErrUnsupportedDimensions, KindUnsupportedEncoding},
	{ErrInvalidStride, KindUnsupportedEncoding},
	{ErrUnsupportedPrimitiveMode, KindUnsupportedEncoding},
	{ErrCardinalityMismatch, KindCardinalityMismatch},
	{ErrMissingBuffer, KindMissingBuffer},
	{ErrBufferOutOfBounds, KindMissingBuffer},
	{ErrMissingImageBuffer, KindMissingBuffer},
	{ErrNoSkeleton, KindSkeletonStructure},
	{ErrSkeletonRootNotFound, KindSkeletonStructure},
	{ErrTooManyJoints, KindSkeletonStructure},
	{ErrInvalidJoint, KindInvalidJoint},
	{ErrNonUniformScaling, KindNonUniformScale},
}

// Kind classifies err. Errors not produced by this package map to KindOther.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindOther
}
