package convert

import (
	"image"
	"image/color"
	"image/draw"
)

// TrimImage crops uniform-color margins. The background color is taken
// from the top-left pixel; a pixel belongs to the margin when every
// channel is within tolerance of it. A fully uniform image is returned
// unchanged.
func TrimImage(img image.Image, tolerance uint8) image.Image {
	b := img.Bounds()
	if b.Empty() {
		return img
	}
	bg := color.NRGBAModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.NRGBA)
	tol := int(tolerance)

	isBg := func(x, y int) bool {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		return near(c.R, bg.R, tol) && near(c.G, bg.G, tol) && near(c.B, bg.B, tol) && near(c.A, bg.A, tol)
	}
	rowIsBg := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isBg(x, y) {
				return false
			}
		}
		return true
	}
	colIsBg := func(x, minY, maxY int) bool {
		for y := minY; y < maxY; y++ {
			if !isBg(x, y) {
				return false
			}
		}
		return true
	}

	top := b.Min.Y
	for top < b.Max.Y && rowIsBg(top) {
		top++
	}
	if top == b.Max.Y {
		return img
	}
	bottom := b.Max.Y
	for bottom > top && rowIsBg(bottom-1) {
		bottom--
	}
	left := b.Min.X
	for left < b.Max.X && colIsBg(left, top, bottom) {
		left++
	}
	right := b.Max.X
	for right > left && colIsBg(right-1, top, bottom) {
		right--
	}

	crop := image.Rect(left, top, right, bottom)
	if crop == b {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)
	return out
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d <= tol
}
