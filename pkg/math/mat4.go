package math

import "github.com/chewxy/math32"

// Mat4 is a 4x4 matrix in column-major order (OpenGL compatible).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
//
// Points are column vectors, so A.Mul(B) applies B first.
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromRows builds a matrix from row-major rows, as they appear in MHX2
// files: rows[r][c] is row r, column c, with the translation in column 3.
func FromRows(rows [4][4]float32) Mat4 {
	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[c*4+r] = rows[r][c]
		}
	}
	return m
}

// Rows returns the matrix as row-major rows. Inverse of FromRows.
func (m Mat4) Rows() [4][4]float32 {
	var rows [4][4]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			rows[r][c] = m[c*4+r]
		}
	}
	return rows
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float32 {
	return m[c*4+r]
}

// Set assigns the element at row r, column c.
func (m *Mat4) Set(r, c int, v float32) {
	m[c*4+r] = v
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var t Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			t[r*4+c] = m[c*4+r]
		}
	}
	return t
}

// IsIdentity reports whether m is exactly the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// ApproxEqual reports whether every element of m is within eps of other.
func (m Mat4) ApproxEqual(other Mat4, eps float32) bool {
	for i := range m {
		if math32.Abs(m[i]-other[i]) > eps {
			return false
		}
	}
	return true
}

// Perspective returns a perspective projection matrix.
// fovY is in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	nf := 1 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// LookAt returns a view matrix looking from eye to center with up direction.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// RotateY returns a rotation matrix around the Y axis.
// angle is in radians.
func RotateY(angle float32) Mat4 {
	s, c := math32.Sincos(angle)

	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			result[col*4+row] = sum
		}
	}
	return result
}

// TransformVec3 transforms a point by this matrix (w=1), dividing by the
// resulting w when it is neither 0 nor 1.
func (m Mat4) TransformVec3(v Vec3) Vec3 {
	x := m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]
	y := m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]
	z := m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]
	w := m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// TransformDirection transforms a direction vector (ignores translation).
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		m[0]*d.X + m[4]*d.Y + m[8]*d.Z,
		m[1]*d.X + m[5]*d.Y + m[9]*d.Z,
		m[2]*d.X + m[6]*d.Y + m[10]*d.Z,
	}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Ptr returns a pointer to the first element (for OpenGL uniform calls).
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

// Determinant returns the determinant of m.
func (m Mat4) Determinant() float32 {
	s, c := m.minors()
	return s[0]*c[5] - s[1]*c[4] + s[2]*c[3] + s[3]*c[2] - s[4]*c[1] + s[5]*c[0]
}

// Invert returns the inverse of m and false if m is singular.
func (m Mat4) Invert() (Mat4, bool) {
	s, c := m.minors()
	det := s[0]*c[5] - s[1]*c[4] + s[2]*c[3] + s[3]*c[2] - s[4]*c[1] + s[5]*c[0]
	if det == 0 {
		return Identity(), false
	}
	inv := 1 / det

	// a(r,c) addresses row r, column c.
	a := func(r, col int) float32 { return m[col*4+r] }

	var rows [4][4]float32
	rows[0][0] = (a(1, 1)*c[5] - a(1, 2)*c[4] + a(1, 3)*c[3]) * inv
	rows[0][1] = (-a(0, 1)*c[5] + a(0, 2)*c[4] - a(0, 3)*c[3]) * inv
	rows[0][2] = (a(3, 1)*s[5] - a(3, 2)*s[4] + a(3, 3)*s[3]) * inv
	rows[0][3] = (-a(2, 1)*s[5] + a(2, 2)*s[4] - a(2, 3)*s[3]) * inv

	rows[1][0] = (-a(1, 0)*c[5] + a(1, 2)*c[2] - a(1, 3)*c[1]) * inv
	rows[1][1] = (a(0, 0)*c[5] - a(0, 2)*c[2] + a(0, 3)*c[1]) * inv
	rows[1][2] = (-a(3, 0)*s[5] + a(3, 2)*s[2] - a(3, 3)*s[1]) * inv
	rows[1][3] = (a(2, 0)*s[5] - a(2, 2)*s[2] + a(2, 3)*s[1]) * inv

	rows[2][0] = (a(1, 0)*c[4] - a(1, 1)*c[2] + a(1, 3)*c[0]) * inv
	rows[2][1] = (-a(0, 0)*c[4] + a(0, 1)*c[2] - a(0, 3)*c[0]) * inv
	rows[2][2] = (a(3, 0)*s[4] - a(3, 1)*s[2] + a(3, 3)*s[0]) * inv
	rows[2][3] = (-a(2, 0)*s[4] + a(2, 1)*s[2] - a(2, 3)*s[0]) * inv

	rows[3][0] = (-a(1, 0)*c[3] + a(1, 1)*c[1] - a(1, 2)*c[0]) * inv
	rows[3][1] = (a(0, 0)*c[3] - a(0, 1)*c[1] + a(0, 2)*c[0]) * inv
	rows[3][2] = (-a(3, 0)*s[3] + a(3, 1)*s[1] - a(3, 2)*s[0]) * inv
	rows[3][3] = (a(2, 0)*s[3] - a(2, 1)*s[1] + a(2, 2)*s[0]) * inv

	return FromRows(rows), true
}

// Inverse returns the inverse of the matrix.
// Returns identity if the matrix is singular.
func (m Mat4) Inverse() Mat4 {
	inv, _ := m.Invert()
	return inv
}

// minors returns the 2x2 sub-determinants of the top two rows (s) and the
// bottom two rows (c) used by the Laplace expansion.
func (m Mat4) minors() (s, c [6]float32) {
	a := func(r, col int) float32 { return m[col*4+r] }

	s[0] = a(0, 0)*a(1, 1) - a(1, 0)*a(0, 1)
	s[1] = a(0, 0)*a(1, 2) - a(1, 0)*a(0, 2)
	s[2] = a(0, 0)*a(1, 3) - a(1, 0)*a(0, 3)
	s[3] = a(0, 1)*a(1, 2) - a(1, 1)*a(0, 2)
	s[4] = a(0, 1)*a(1, 3) - a(1, 1)*a(0, 3)
	s[5] = a(0, 2)*a(1, 3) - a(1, 2)*a(0, 3)

	c[5] = a(2, 2)*a(3, 3) - a(3, 2)*a(2, 3)
	c[4] = a(2, 1)*a(3, 3) - a(3, 1)*a(2, 3)
	c[3] = a(2, 1)*a(3, 2) - a(3, 1)*a(2, 2)
	c[2] = a(2, 0)*a(3, 3) - a(3, 0)*a(2, 3)
	c[1] = a(2, 0)*a(3, 2) - a(3, 0)*a(2, 2)
	c[0] = a(2, 0)*a(3, 1) - a(3, 0)*a(2, 1)
	return s, c
}
