package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float32 // NDC depth per pixel, cleared to +inf
}

func NewFrameBuffer(w, h int) *FrameBuffer {
	fb := &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, w*h*4),
		ZBuf:   make([]float32, w*h),
	}
	fb.Clear([4]uint8{})
	return fb
}

// Clear fills the color buffer and resets depth.
func (fb *FrameBuffer) Clear(c [4]uint8) {
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i], fb.Color[i+1], fb.Color[i+2], fb.Color[i+3] = c[0], c[1], c[2], c[3]
	}
	inf := float32(math.Inf(1))
	for i := range fb.ZBuf {
		fb.ZBuf[i] = inf
	}
}

// Covered counts pixels with non-zero alpha.
func (fb *FrameBuffer) Covered() int {
	n := 0
	for i := 3; i < len(fb.Color); i += 4 {
		if fb.Color[i] != 0 {
			n++
		}
	}
	return n
}

// LightConfig holds the fixed lighting used for the preview.
type LightConfig struct {
	LightDir mgl32.Vec3
	RimDir   mgl32.Vec3
	HalfMain mgl32.Vec3
	Ambient  float64
	Hemi     float64
	Direct   float64
	Rim      float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64
	Base     [3]uint8
}

func DefaultLightConfig() LightConfig {
	lightDir := mgl32.Vec3{0.4, 0.8, 0.6}.Normalize()
	viewDir := mgl32.Vec3{0, 0, -1}
	return LightConfig{
		LightDir: lightDir,
		RimDir:   mgl32.Vec3{-0.5, 0.4, -0.7}.Normalize(),
		HalfMain: lightDir.Sub(viewDir).Normalize(),
		Ambient:  0.3,
		Hemi:     0.4,
		Direct:   1.2,
		Rim:      0.4,
		SpecInt:  0.3,
		SpecPow:  10,
		Exposure: 1.0,
		InvGamma: 1.0 / 2.2,
		Base:     [3]uint8{230, 90, 90},
	}
}

// Shade returns the combined lighting scalar for a world-space normal.
func (lc *LightConfig) Shade(n mgl32.Vec3) float64 {
	ndlMain := math.Abs(float64(n.Dot(lc.LightDir)))
	ndlRim := math.Abs(float64(n.Dot(lc.RimDir)))
	hemi := (1.0-math.Abs(float64(n.Y())))*0.5 + 0.5
	ndh := float64(n.Dot(lc.HalfMain))
	if ndh < 0 {
		ndh = 0
	}
	spec := math.Pow(ndh, lc.SpecPow) * lc.SpecInt
	return lc.Ambient + hemi*lc.Hemi + ndlMain*lc.Direct + ndlRim*lc.Rim + spec
}

// color runs the base color through sRGB decode, shading, ACES and encode.
func (lc *LightConfig) color(shade float64) [3]uint8 {
	var out [3]uint8
	for i, c := range lc.Base {
		lin := srgbToLinear[c] * shade * lc.Exposure
		out[i] = clamp255(math.Pow(acesTonemap(lin), lc.InvGamma) * 255)
	}
	return out
}

var srgbToLinear [256]float64

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

func acesTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// rasterizeTriangle fills one flat-colored triangle given in screen space
// (x, y in pixels with y down, z in NDC depth). It returns the number of
// pixels written.
func (fb *FrameBuffer) rasterizeTriangle(p [3]mgl32.Vec3, rgb [3]uint8, depthTest, cullBack bool) int {
	x0, y0, z0 := float64(p[0].X()), float64(p[0].Y()), p[0].Z()
	x1, y1, z1 := float64(p[1].X()), float64(p[1].Y()), p[1].Z()
	x2, y2, z2 := float64(p[2].X()), float64(p[2].Y()), p[2].Z()

	// counter-clockwise front faces come out negative once y points down
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return 0
	}
	if cullBack && det > 0 {
		return 0
	}
	invDet := 1.0 / det

	minX := max(int(math.Floor(min(x0, x1, x2))), 0)
	maxX := min(int(math.Ceil(max(x0, x1, x2))), fb.Width-1)
	minY := max(int(math.Floor(min(y0, y1, y2))), 0)
	maxY := min(int(math.Ceil(max(y0, y1, y2))), fb.Height-1)
	if minX > maxX || minY > maxY {
		return 0
	}

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	written := 0
	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := float32(w0)*z0 + float32(w1)*z1 + float32(w2)*z2
			zIdx := rowOff + sx
			if depthTest && z >= fb.ZBuf[zIdx] {
				continue
			}
			fb.ZBuf[zIdx] = z

			pxIdx := zIdx * 4
			fb.Color[pxIdx] = rgb[0]
			fb.Color[pxIdx+1] = rgb[1]
			fb.Color[pxIdx+2] = rgb[2]
			fb.Color[pxIdx+3] = 255
			written++
		}
	}
	return written
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
