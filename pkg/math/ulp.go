package math

import "math"

// ULPDistance returns the number of representable float32 values between
// a and b. Positive and negative zero are 0 apart. NaN is infinitely far
// from everything.
func ULPDistance(a, b float32) uint32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return math.MaxUint32
	}
	ia := orderedBits(a)
	ib := orderedBits(b)
	if ia > ib {
		return uint32(ia - ib)
	}
	return uint32(ib - ia)
}

// orderedBits maps float bits onto a monotonic integer line so that
// adjacent floats differ by exactly one.
func orderedBits(f float32) int64 {
	bits := int64(math.Float32bits(f))
	if bits&0x80000000 != 0 {
		return -(bits & 0x7fffffff)
	}
	return bits
}

// ApproxEqualULPs reports whether a and b are within maxULPs representable
// values of each other.
func ApproxEqualULPs(a, b float32, maxULPs uint32) bool {
	if a == b {
		return true
	}
	return ULPDistance(a, b) <= maxULPs
}
