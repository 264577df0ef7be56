package raster

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-lumen/common"
	"github.com/Carmen-Shannon/oxy-lumen/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var additive = &wgpu.BlendState{
	Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
	Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
}

var alphaBlend = &wgpu.BlendState{
	Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
	Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
}

func solid(c [4]float32) Kernel {
	return Kernel{
		Vertex: PassThrough,
		Fragment: func(Fragment, *Env) ([4]float32, bool) {
			return c, true
		},
	}
}

func TestDrawQuadCoversEveryPixelOnce(t *testing.T) {
	for _, size := range [][2]int{{128, 128}, {7, 5}, {256, 128}} {
		dst := NewTexture(size[0], size[1])
		n := DrawQuad(dst, common.QuadVertices, solid([4]float32{0.2, 0.2, 0.2, 0.2}), &Env{}, BlendFunc(additive))
		require.Equal(t, size[0]*size[1], n)
		for y := range size[1] {
			for x := range size[0] {
				require.Equal(t, uint8(51), dst.ColorAt(x, y).R, "pixel %d,%d", x, y)
			}
		}
	}
}

func TestDrawQuadInterpolatesTexCoords(t *testing.T) {
	dst := NewTexture(8, 4)
	seen := map[[2]int][2]float32{}
	k := Kernel{
		Vertex: PassThrough,
		Fragment: func(in Fragment, _ *Env) ([4]float32, bool) {
			seen[in.Pixel] = in.UV
			return [4]float32{}, false
		},
	}
	assert.Equal(t, 0, DrawQuad(dst, common.QuadVertices, k, &Env{}, Replace))
	require.Len(t, seen, 32)
	uv := seen[[2]int{0, 0}]
	assert.InDelta(t, 0.5/8, uv[0], 1e-5)
	assert.InDelta(t, 0.5/4, uv[1], 1e-5)
	uv = seen[[2]int{7, 3}]
	assert.InDelta(t, 7.5/8, uv[0], 1e-5)
	assert.InDelta(t, 3.5/4, uv[1], 1e-5)
}

func TestDrawQuadAppliesVertexKernel(t *testing.T) {
	dst := NewTexture(16, 16)
	k := Kernel{
		Vertex: func(p [2]float32, u shader.Uniforms) [2]float32 {
			s := u.Vec2("dim_scales")
			return [2]float32{p[0] * s[0], p[1] * s[1]}
		},
		Fragment: func(in Fragment, _ *Env) ([4]float32, bool) {
			return [4]float32{1, 0, 0, 1}, true
		},
	}
	n := DrawQuad(dst, common.QuadVertices, k, &Env{Uniforms: shader.Uniforms{"dim_scales": [2]float32{1, 0.5}}}, Replace)
	assert.Equal(t, 16*8, n)
	assert.Equal(t, uint8(0), dst.ColorAt(8, 0).A)
	assert.Equal(t, uint8(255), dst.ColorAt(8, 4).A)
	assert.Equal(t, uint8(255), dst.ColorAt(8, 11).A)
	assert.Equal(t, uint8(0), dst.ColorAt(8, 12).A)
}

func TestBlendFunc(t *testing.T) {
	tests := []struct {
		name  string
		state *wgpu.BlendState
		src   [4]float32
		dst   [4]float32
		want  [4]float32
	}{
		{"nil replaces", nil, [4]float32{0.5, 0.5, 0.5, 0.5}, [4]float32{1, 1, 1, 1}, [4]float32{0.5, 0.5, 0.5, 0.5}},
		{"additive saturates", additive, [4]float32{0.75, 0.5, 0, 1}, [4]float32{0.5, 0.25, 0, 1}, [4]float32{1, 0.75, 0, 1}},
		{"alpha over transparent", alphaBlend, [4]float32{1, 0, 0, 1}, [4]float32{}, [4]float32{1, 0, 0, 1}},
		{"alpha half", alphaBlend, [4]float32{1, 0, 0, 0.5}, [4]float32{0, 0, 1, 1}, [4]float32{0.5, 0, 0.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlendFunc(tt.state)(tt.src, tt.dst)
			for ch := range 4 {
				assert.InDelta(t, tt.want[ch], got[ch], 1e-6, "channel %d", ch)
			}
		})
	}
}

func TestTextureSampleMirrorsOutOfRange(t *testing.T) {
	tex := NewTexture(4, 1)
	for x := range 4 {
		tex.Set(x, 0, [4]float32{float32(x) / 4, 0, 0, 1})
	}
	tests := []struct {
		u    float32
		want int
	}{
		{0.1, 0},
		{0.9, 3},
		{1.0, 3},
		{1.1, 3},
		{1.9, 0},
		{-0.1, 0},
		{-0.9, 3},
	}
	for _, tt := range tests {
		got := tex.Sample([2]float32{tt.u, 0.5})
		assert.Equal(t, tex.At(tt.want, 0), got, "u=%v", tt.u)
	}
}

func TestTextureClearAndImage(t *testing.T) {
	tex := NewTexture(3, 2)
	tex.Clear([4]float32{0, 0, 0, 1})
	img := tex.ToImage()
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, uint8(255), img.NRGBAAt(2, 1).A)
	assert.Equal(t, [4]float32{}, tex.At(-1, 0))
}
