package imaging

import (
	"image"
	"image/draw"
)

const (
	// DefaultPadding is the margin added around the detected content box
	// before cropping.
	DefaultPadding = 20
	// DefaultThreshold is the luminance cutoff. Pixels strictly darker than
	// this count as content, anything brighter is background.
	DefaultThreshold = 250
)

// Content is the region of an image that holds something darker than the
// background.
type Content struct {
	// Crop is the padded cutout handed to recognition engines.
	Crop *image.Gray
	// RawWidth and RawHeight measure the tight content box before padding.
	// Classification works on these; padded dimensions would skew it.
	RawWidth  int
	RawHeight int
	// CropWidth and CropHeight are the dimensions of Crop after padding
	// and clamping to the image bounds.
	CropWidth  int
	CropHeight int
}

// Locate scans img for pixels darker than threshold and returns the padded
// crop around them. ok is false when nothing qualifies: a blank page, or a
// content box so small it degenerates to a point or line.
func Locate(img image.Image, padding, threshold int) (Content, bool) {
	gray := Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()

	minX, minY := w, h
	maxX, maxY := 0, 0
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, v := range row {
			if int(v) >= threshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX <= minX || maxY <= minY {
		return Content{}, false
	}

	rect := image.Rect(
		max(0, minX-padding),
		max(0, minY-padding),
		min(w, maxX+padding),
		min(h, maxY+padding),
	)
	crop := gray.SubImage(rect).(*image.Gray)

	return Content{
		Crop:       crop,
		RawWidth:   maxX - minX,
		RawHeight:  maxY - minY,
		CropWidth:  rect.Dx(),
		CropHeight: rect.Dy(),
	}, true
}

// Grayscale returns img as a single-channel luminance image with bounds
// anchored at the origin, converting only when needed.
func Grayscale(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
