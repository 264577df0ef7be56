// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Vertex is a single vertex of the shared full-screen quad: a clip-space position and a texture coordinate.
type Vertex struct {
	// Position is the clip-space position of the vertex in the range [-1, 1] on each axis.
	Position [2]float32
	// TexCoords is the texture coordinate of the vertex, with (0, 0) at the top-left of a texture.
	TexCoords [2]float32
}

// QuadVertices is the six-vertex, two-triangle quad reused by every full-screen draw.
// Texture coordinates follow the WebGPU convention where v grows downward.
var QuadVertices = [6]Vertex{
	{Position: [2]float32{-1, -1}, TexCoords: [2]float32{0, 1}},
	{Position: [2]float32{1, -1}, TexCoords: [2]float32{1, 1}},
	{Position: [2]float32{1, 1}, TexCoords: [2]float32{1, 0}},
	{Position: [2]float32{1, 1}, TexCoords: [2]float32{1, 0}},
	{Position: [2]float32{-1, 1}, TexCoords: [2]float32{0, 0}},
	{Position: [2]float32{-1, -1}, TexCoords: [2]float32{0, 1}},
}

// SamplerStagingData holds the configuration for the sampler shared by every texture binding.
// Zero-valued fields fall back to the renderer defaults (nearest filtering, mirrored wrapping).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}
