package ocr

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/math-ocr/internal/engine"
)

var _ = Describe("Adapter", func() {
	var (
		rec     *mockRecognizer
		opens   int
		adapter *Adapter
	)

	BeforeEach(func() {
		rec = &mockRecognizer{latex: "42"}
		opens = 0
		adapter = NewAdapter(&Provider{
			Name:      "tesseract",
			Available: func() error { return nil },
			Open: func(ctx context.Context) (engine.Recognizer, error) {
				opens++
				return rec, nil
			},
		})
	})

	It("should not open the engine until first use", func() {
		Expect(adapter.Loaded()).To(BeFalse())
		Expect(opens).To(BeZero())
	})

	It("should open the engine once across calls", func() {
		latex, err := adapter.Recognize(context.Background(), []byte("png"))
		Expect(err).NotTo(HaveOccurred())
		Expect(latex).To(Equal("42"))

		_, err = adapter.Recognize(context.Background(), []byte("png"))
		Expect(err).NotTo(HaveOccurred())
		Expect(opens).To(Equal(1))
		Expect(rec.calls).To(Equal(2))
		Expect(adapter.Loaded()).To(BeTrue())
	})

	It("should report the provider name", func() {
		Expect(adapter.Name()).To(Equal("tesseract"))
	})

	When("opening fails", func() {
		BeforeEach(func() {
			adapter = NewAdapter(&Provider{
				Name:      "pix2tex",
				Available: func() error { return nil },
				Open: func(ctx context.Context) (engine.Recognizer, error) {
					return nil, errors.New("connection refused")
				},
			})
		})

		It("should wrap the error with the engine name", func() {
			_, err := adapter.Recognize(context.Background(), []byte("png"))
			Expect(err).To(MatchError(ContainSubstring("loading pix2tex")))
			Expect(adapter.Loaded()).To(BeFalse())
		})
	})

	Describe("Release", func() {
		It("should close an open engine and report it", func() {
			Expect(adapter.EnsureLoaded(context.Background())).To(Succeed())
			Expect(adapter.Release()).To(BeTrue())
			Expect(rec.closed).To(BeTrue())
			Expect(adapter.Loaded()).To(BeFalse())
		})

		It("should report nothing to do when unloaded", func() {
			Expect(adapter.Release()).To(BeFalse())
		})

		It("should let the engine reopen afterwards", func() {
			Expect(adapter.EnsureLoaded(context.Background())).To(Succeed())
			Expect(adapter.Release()).To(BeTrue())

			_, err := adapter.Recognize(context.Background(), []byte("png"))
			Expect(err).NotTo(HaveOccurred())
			Expect(opens).To(Equal(2))
		})

		It("should still release when closing fails", func() {
			rec.closeErr = errors.New("already gone")
			Expect(adapter.EnsureLoaded(context.Background())).To(Succeed())
			Expect(adapter.Release()).To(BeTrue())
			Expect(adapter.Loaded()).To(BeFalse())
		})
	})
})
