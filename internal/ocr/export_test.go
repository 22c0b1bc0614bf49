package ocr

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Export", func() {
	var (
		dir    string
		report Report
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		report = Report{
			Results: map[string]string{
				"a_digit.png":   "7",
				"b_formula.png": `x^{2}+1`,
				"c_blank.png":   "[ERROR: No content found]",
			},
			Count:        3,
			SuccessCount: 2,
			SimpleCount:  1,
			ComplexCount: 1,
			Errors: []BatchError{
				{File: "c_blank.png", Error: "No content found"},
			},
		}
	})

	Describe("WriteXLSX", func() {
		It("should write one row per file plus a summary", func() {
			path := filepath.Join(dir, "report.xlsx")
			Expect(WriteXLSX(report, path)).To(Succeed())

			f, err := excelize.OpenFile(path)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			rows, err := f.GetRows("Results")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0]).To(Equal([]string{"File", "LaTeX", "Status"}))
			Expect(rows).To(ContainElement([]string{"a_digit.png", "7", "ok"}))
			Expect(rows).To(ContainElement([]string{"b_formula.png", `x^{2}+1`, "ok"}))
			Expect(rows).To(ContainElement([]string{"c_blank.png", "[ERROR: No content found]", "error"}))
			Expect(rows).To(ContainElement([]string{"Total", "3"}))
			Expect(rows).To(ContainElement([]string{"Succeeded", "2"}))
		})

		It("should fail on an unwritable path", func() {
			Expect(WriteXLSX(report, filepath.Join(dir, "missing", "report.xlsx"))).NotTo(Succeed())
		})
	})

	Describe("WriteHTML", func() {
		It("should typeset recognized formulas as MathML", func() {
			path := filepath.Join(dir, "report.html")
			Expect(WriteHTML(report, path)).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			page := string(data)
			Expect(page).To(ContainSubstring("Recognition Results"))
			Expect(page).To(ContainSubstring("3 files, 2 succeeded"))
			Expect(page).To(ContainSubstring("<math"))
		})

		It("should render failures as plain code", func() {
			path := filepath.Join(dir, "report.html")
			Expect(WriteHTML(report, path)).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("<code>[ERROR: No content found]</code>"))
		})
	})
})
