package soft

import (
	"fmt"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Snapshot copies the framebuffer into an image at window resolution.
// Supersampled frames are filtered down with premultiplied alpha so edges
// do not pick up dark halos. Returns nil before MakeWindow.
func (d *Device) Snapshot() *image.NRGBA {
	if d.fb == nil {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, d.fb.Width, d.fb.Height))
	copy(img.Pix, d.fb.Color)
	if d.opts.Supersample <= 1 {
		return img
	}
	return downsample(img, d.window.Width, d.window.Height)
}

// WriteWebP encodes the current snapshot losslessly.
func (d *Device) WriteWebP(w io.Writer) error {
	img := d.Snapshot()
	if img == nil {
		return fmt.Errorf("snapshot: no window")
	}
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}

func downsample(img *image.NRGBA, width, height int) *image.NRGBA {
	b := img.Bounds()
	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	result := image.NewNRGBA(dst.Bounds())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			si := dst.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				result.Pix[di] = clamp255(float64(dst.Pix[si]) * inv)
				result.Pix[di+1] = clamp255(float64(dst.Pix[si+1]) * inv)
				result.Pix[di+2] = clamp255(float64(dst.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = dst.Pix[si+3]
		}
	}
	return result
}
