package transform

import (
	"golang.org/x/image/math/f32"
)

// Transform is a 4x4 affine matrix stored in row-major order, m[4*r+c].
// Translation lives in row 3 and scale lives on the diagonal. Setters write those cells
// directly and overwrite earlier values; transforms are never composed.
//
// Transform is a value type. Drawables copy it into each draw call.
type Transform struct {
	m f32.Mat4
}

// New returns an identity Transform.
//
// Returns:
//   - Transform: the identity transform
func New() Transform {
	return Transform{m: f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// FromMatrix wraps an existing row-major matrix.
//
// Parameters:
//   - m: the row-major matrix
//
// Returns:
//   - Transform: a transform holding a copy of m
func FromMatrix(m f32.Mat4) Transform {
	return Transform{m: m}
}

// Translate overwrites the translation cells in row 3.
//
// Parameters:
//   - x: the x translation
//   - y: the y translation
//   - z: the z translation
func (t *Transform) Translate(x, y, z float32) {
	t.m[12], t.m[13], t.m[14] = x, y, z
}

// Scale overwrites the scale cells on the diagonal.
//
// Parameters:
//   - x: the x scale
//   - y: the y scale
//   - z: the z scale
func (t *Transform) Scale(x, y, z float32) {
	t.m[0], t.m[5], t.m[10] = x, y, z
}

// SetX overwrites the x translation only.
func (t *Transform) SetX(x float32) { t.m[12] = x }

// SetY overwrites the y translation only.
func (t *Transform) SetY(y float32) { t.m[13] = y }

// SetZ overwrites the z translation only.
func (t *Transform) SetZ(z float32) { t.m[14] = z }

// X returns the x translation.
func (t Transform) X() float32 { return t.m[12] }

// Y returns the y translation.
func (t Transform) Y() float32 { return t.m[13] }

// Z returns the z translation.
func (t Transform) Z() float32 { return t.m[14] }

// Matrix returns a copy of the row-major matrix, suitable for upload as a mat4x4<f32> uniform.
// Uploaded as-is, WGSL reads each row as a column, so `matrix * v` in a shader equals Apply.
//
// Returns:
//   - f32.Mat4: the matrix in row-major order
func (t Transform) Matrix() f32.Mat4 {
	return t.m
}

// Rows returns the matrix as four row vectors.
func (t Transform) Rows() [4][4]float32 {
	var rows [4][4]float32
	for r := range 4 {
		copy(rows[r][:], t.m[r*4:r*4+4])
	}
	return rows
}

// Apply multiplies the row vector v by the matrix, so translation in row 3 moves the point.
//
// Parameters:
//   - v: the homogeneous point (x, y, z, w)
//
// Returns:
//   - f32.Vec4: v * M
func (t Transform) Apply(v f32.Vec4) f32.Vec4 {
	var out f32.Vec4
	for c := range 4 {
		out[c] = v[0]*t.m[c] + v[1]*t.m[4+c] + v[2]*t.m[8+c] + v[3]*t.m[12+c]
	}
	return out
}

// Apply2D transforms a point on the z = 0 plane and returns its x and y.
func (t Transform) Apply2D(x, y float32) (float32, float32) {
	p := t.Apply(f32.Vec4{x, y, 0, 1})
	return p[0], p[1]
}
