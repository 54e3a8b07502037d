package pdf

import "math"

// Matrix is a PDF transformation matrix [a b c d e f]. A point maps as
// x' = a*x + c*y + e, y' = b*x + d*y + f.
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix returns the identity matrix
func IdentityMatrix() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale returns a scaling matrix
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// MatrixFrom builds a matrix from a six-number array
func MatrixFrom(a Array) (Matrix, bool) {
	v, ok := Numbers(a)
	if !ok || len(v) != 6 {
		return Matrix{}, false
	}
	return Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
}

// Multiply returns the matrix that applies m first and then n
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Transform applies the matrix to a point
func (m Matrix) Transform(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// TransformVector applies the matrix without its translation
func (m Matrix) TransformVector(x, y float64) (float64, float64) {
	return m.A*x + m.C*y, m.B*x + m.D*y
}

// Inverse returns the inverse matrix, or false when m is singular
func (m Matrix) Inverse() (Matrix, bool) {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-12 {
		return Matrix{}, false
	}
	return Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}, true
}

// Expansion returns the mean scale factor, used to convert line widths
func (m Matrix) Expansion() float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}

// Array returns the matrix as a PDF array
func (m Matrix) Array() Array {
	return Array{Real(m.A), Real(m.B), Real(m.C), Real(m.D), Real(m.E), Real(m.F)}
}
