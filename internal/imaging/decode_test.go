package imaging

import (
	"bytes"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Decode", func() {
	encode := func(img image.Image) []byte {
		data, err := EncodePNG(img)
		Expect(err).NotTo(HaveOccurred())
		return data
	}

	When("the data is a PNG", func() {
		It("should decode it", func() {
			img, err := Decode(encode(blankImage(10, 12)), ".png")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(10))
			Expect(img.Bounds().Dy()).To(Equal(12))
		})
	})

	When("the extension lies but the data is a valid image", func() {
		It("should sniff the format", func() {
			img, err := Decode(encode(blankImage(4, 4)), ".dat")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(4))
		})
	})

	When("the data is not an image", func() {
		It("should return an error", func() {
			_, err := Decode([]byte("not an image"), ".png")
			Expect(err).To(HaveOccurred())
		})
	})

	When("a PDF is empty or corrupt", func() {
		It("should return an error", func() {
			_, err := Decode([]byte("%PDF-1.4 garbage"), ".pdf")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("isHEIC", func() {
	It("should recognize the heic brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		Expect(isHEIC(data)).To(BeTrue())
	})

	It("should recognize the mif1 brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypmif1")...)
		Expect(isHEIC(data)).To(BeTrue())
	})

	It("should reject other containers", func() {
		Expect(isHEIC([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0d"))).To(BeFalse())
		Expect(isHEIC([]byte("short"))).To(BeFalse())
	})

	It("should reject unrelated ftyp brands", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypisom")...)
		Expect(isHEIC(data)).To(BeFalse())
	})
})

var _ = Describe("EncodePNG", func() {
	It("should produce a decodable PNG from a grayscale image", func() {
		data, err := EncodePNG(blankImage(8, 8))
		Expect(err).NotTo(HaveOccurred())

		img, format, err := image.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
		Expect(img.Bounds().Dx()).To(Equal(8))
	})

	It("should normalize subimage origins", func() {
		img := blankImage(60, 60)
		markRect(img, image.Rect(25, 25, 40, 40), 0)

		content, ok := Locate(img, 5, DefaultThreshold)
		Expect(ok).To(BeTrue())

		data, err := EncodePNG(content.Crop)
		Expect(err).NotTo(HaveOccurred())

		decoded, _, err := image.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Bounds().Min).To(Equal(image.Point{}))
		Expect(decoded.Bounds().Dx()).To(Equal(content.CropWidth))
	})
})
