package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode turns raw file bytes into an image. The file extension routes PDFs
// to the rasterizer and HEIC to its own decoder; everything else goes
// through the registered image decoders.
func Decode(data []byte, ext string) (image.Image, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return decodePDF(data)
	case ".heic", ".heif":
		return decodeHEIC(data)
	}

	// iPhone exports often carry a misleading extension.
	if isHEIC(data) {
		return decodeHEIC(data)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// decodePDF rasterizes the first page. Scanned worksheets are almost always
// single page.
func decodePDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

func decodeHEIC(data []byte) (image.Image, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC image: %w", err)
	}
	return img, nil
}

// isHEIC sniffs the ftyp box brands iPhones write.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// EncodePNG renders img into an RGB frame anchored at the origin and
// encodes it. Engines expect 3-channel input, so grayscale crops convert
// here.
func EncodePNG(img image.Image) ([]byte, error) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
