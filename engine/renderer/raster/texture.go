package raster

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
)

// Texture is an RGBA8 render target held in host memory, row 0 at the top.
type Texture struct {
	width, height int
	pix           []uint8
}

// NewTexture allocates a texture cleared to transparent black.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - *Texture: the new texture
func NewTexture(width, height int) *Texture {
	return &Texture{
		width:  width,
		height: height,
		pix:    make([]uint8, 4*width*height),
	}
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// At returns the normalized RGBA value of a pixel. Out-of-range coordinates read as transparent black.
func (t *Texture) At(x, y int) [4]float32 {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return [4]float32{}
	}
	i := 4 * (y*t.width + x)
	return [4]float32{
		float32(t.pix[i]) / 255,
		float32(t.pix[i+1]) / 255,
		float32(t.pix[i+2]) / 255,
		float32(t.pix[i+3]) / 255,
	}
}

// Set quantizes a normalized RGBA value into a pixel.
func (t *Texture) Set(x, y int, c [4]float32) {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return
	}
	i := 4 * (y*t.width + x)
	for ch := range 4 {
		t.pix[i+ch] = quantize(c[ch])
	}
}

// Clear fills every pixel with c.
func (t *Texture) Clear(c [4]float32) {
	var px [4]uint8
	for ch := range 4 {
		px[ch] = quantize(c[ch])
	}
	for i := 0; i < len(t.pix); i += 4 {
		copy(t.pix[i:i+4], px[:])
	}
}

// Sample reads the texel nearest to uv, mirroring coordinates outside [0, 1].
//
// Parameters:
//   - uv: the texture coordinate, (0, 0) at the top-left
//
// Returns:
//   - [4]float32: the normalized RGBA texel
func (t *Texture) Sample(uv [2]float32) [4]float32 {
	if t.width == 0 || t.height == 0 {
		return [4]float32{}
	}
	x := texel(mirror(uv[0]), t.width)
	y := texel(mirror(uv[1]), t.height)
	return t.At(x, y)
}

// ToImage copies the pixels into a non-premultiplied image.
func (t *Texture) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.width, t.height))
	copy(img.Pix, t.pix)
	return img
}

// CopyFrom replaces the pixels with those of src, which must have the same size.
func (t *Texture) CopyFrom(src *Texture) {
	copy(t.pix, src.pix)
}

// ColorAt returns the pixel as a color.NRGBA, for comparisons in tests and tooling.
func (t *Texture) ColorAt(x, y int) color.NRGBA {
	i := 4 * (y*t.width + x)
	return color.NRGBA{R: t.pix[i], G: t.pix[i+1], B: t.pix[i+2], A: t.pix[i+3]}
}

func quantize(v float32) uint8 {
	return uint8(math32.Floor(math32.Max(0, math32.Min(1, v))*255 + 0.5))
}

// mirror folds a coordinate into [0, 1] with mirrored repetition.
func mirror(v float32) float32 {
	v = math32.Mod(math32.Abs(v), 2)
	if v > 1 {
		v = 2 - v
	}
	return v
}

func texel(v float32, size int) int {
	i := int(math32.Floor(v * float32(size)))
	if i >= size {
		i = size - 1
	}
	return i
}
