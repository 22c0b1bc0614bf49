package ocr

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/math-ocr/internal/device"
)

var _ = Describe("Server", func() {
	var (
		textRec     *mockRecognizer
		formulaRec  *mockRecognizer
		service     *Service
		gate        *Gate
		server      *Server
		ghttpServer *ghttp.Server
		dir         string
	)

	gpu := fakeGPU{
		name:   "NVIDIA GeForce RTX 3090",
		driver: "535.104.05",
		memory: "1024, 256, 24576",
	}

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		textRec = &mockRecognizer{latex: "7"}
		formulaRec = &mockRecognizer{latex: `\sum_{i=1}^{n} i`}
		service = NewService(
			mockProvider("tesseract", textRec),
			mockProvider("pix2tex", formulaRec),
			WithPolicy(ReclaimSweep),
			WithProber(device.NewProber(gpu)),
		)
		gate = NewGate()
		server = NewServer(service, gate, "127.0.0.1:0")
		dir = GinkgoT().TempDir()
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		gate.Close()
	})

	postJSON := func(path, body string) *http.Response {
		resp, err := http.Post(ghttpServer.URL()+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("handleHealth", func() {
		It("should return status OK", func() {
			resp, err := http.Get(ghttpServer.URL() + "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should report device and engine state", func() {
			resp, err := http.Get(ghttpServer.URL() + "/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(MatchJSON(`{
				"status": "ok",
				"gpu_available": true,
				"gpu_name": "NVIDIA GeForce RTX 3090",
				"device": "cuda",
				"models_loaded": {"tesseract": false, "pix2tex": false},
				"gpu_memory": {"allocated_mb": 1024, "reserved_mb": 256, "total_mb": 24576}
			}`))
		})
	})

	Describe("handleMemory", func() {
		It("should report accelerator memory", func() {
			resp, err := http.Get(ghttpServer.URL() + "/memory")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var mem device.Memory
			Expect(json.NewDecoder(resp.Body).Decode(&mem)).To(Succeed())
			Expect(mem.TotalMB).To(Equal(int64(24576)))
		})
	})

	Describe("handleBatch", func() {
		When("the directory holds images", func() {
			BeforeEach(func() {
				writePNG(dir, "a_digit.png", 22, 22)
				writePNG(dir, "b_formula.png", 201, 22)
			})

			It("should return the batch report", func() {
				resp := postJSON("/ocr/batch", `{"directory": "`+dir+`"}`)
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var report Report
				Expect(json.NewDecoder(resp.Body).Decode(&report)).To(Succeed())
				Expect(report.Count).To(Equal(2))
				Expect(report.SuccessCount).To(Equal(2))
				Expect(report.Results).To(HaveKeyWithValue("a_digit.png", "7"))
			})
		})

		When("the directory does not exist", func() {
			It("should return status Not Found with a detail message", func() {
				resp := postJSON("/ocr/batch", `{"directory": "`+filepath.Join(dir, "nope")+`"}`)
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				var detail map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&detail)).To(Succeed())
				Expect(detail["detail"]).To(ContainSubstring("directory not found"))
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				resp := postJSON("/ocr/batch", "not json")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the directory field is missing", func() {
			It("should return status Bad Request", func() {
				resp := postJSON("/ocr/batch", `{"pattern": "*.png"}`)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleSingle", func() {
		It("should return the recognition result", func() {
			path := writePNG(dir, "digit.png", 22, 22)
			resp := postJSON("/ocr/single", `{"image_path": "`+path+`"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var res Result
			Expect(json.NewDecoder(resp.Body).Decode(&res)).To(Succeed())
			Expect(res.Success).To(BeTrue())
			Expect(res.Latex).To(Equal("7"))
			Expect(res.Method).To(Equal("tesseract"))
		})

		It("should return failures as results, not HTTP errors", func() {
			resp := postJSON("/ocr/single", `{"image_path": "`+filepath.Join(dir, "missing.png")+`"}`)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var res Result
			Expect(json.NewDecoder(resp.Body).Decode(&res)).To(Succeed())
			Expect(res.Success).To(BeFalse())
			Expect(res.Method).To(Equal(MethodError))
		})

		It("should return status Bad Request without an image path", func() {
			resp := postJSON("/ocr/single", `{}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})
})
