package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatArrayRoundTrip(t *testing.T) {
	a := [4]float32{0.1, 0.2, 0.3, 0.9}
	if got := QuatFromArray(a).Array(); got != a {
		t.Errorf("QuatFromArray(%v).Array() = %v", a, got)
	}
}

func TestQuatToMat4(t *testing.T) {
	m := QuatIdentity().ToMat4()

	identity := Identity()
	for i := 0; i < 16; i++ {
		if math.Abs(float64(m[i]-identity[i])) > 0.0001 {
			t.Errorf("Identity quat should produce identity matrix, element %d: got %v, want %v", i, m[i], identity[i])
		}
	}
}

func TestQuatFromMat3(t *testing.T) {
	tests := []struct {
		name string
		axis Vec3
		deg  float64
	}{
		{"x 30", Vec3{1, 0, 0}, 30},
		{"y 90", Vec3{0, 1, 0}, 90},
		{"z 170", Vec3{0, 0, 1}, 170},
		{"y 180", Vec3{0, 1, 0}, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := QuatFromAxisAngle(tt.axis, float32(tt.deg*math.Pi/180))
			m := want.ToMat4()
			got := QuatFromMat3([9]float32{m[0], m[1], m[2], m[4], m[5], m[6], m[8], m[9], m[10]})
			if got.Dot4(want) < 0 {
				got = Quat{-got.X, -got.Y, -got.Z, -got.W}
			}
			if math.Abs(float64(got.Dot4(want))-1) > 0.0001 {
				t.Errorf("QuatFromMat3: got %+v, want %+v", got, want)
			}
		})
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	// 90 degrees around Y axis
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	expectedW := float32(math.Cos(math.Pi / 4))
	expectedY := float32(math.Sin(math.Pi / 4))

	if math.Abs(float64(q.W-expectedW)) > 0.001 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(float64(q.Y-expectedY)) > 0.001 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}

func TestQuatMulIdentity(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 1}, 0.5)
	if got := q.Mul(QuatIdentity()); got != q {
		t.Errorf("q * identity = %+v, want %+v", got, q)
	}
}
