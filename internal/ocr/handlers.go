package ocr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zombor/math-ocr/internal/device"
)

type batchRequest struct {
	Directory string `json:"directory"`
	Pattern   string `json:"pattern"`
}

type singleRequest struct {
	ImagePath string `json:"image_path"`
}

type healthStatus struct {
	Status string `json:"status"`
	device.Info
	ModelsLoaded map[string]bool `json:"models_loaded"`
	GPUMemory    device.Memory   `json:"gpu_memory"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthStatus{
		Status:       "ok",
		Info:         s.service.DeviceInfo(r.Context()),
		ModelsLoaded: s.service.Loaded(),
		GPUMemory:    s.service.MemoryInfo(r.Context()),
	})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.MemoryInfo(r.Context()))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Directory == "" {
		writeError(w, http.StatusBadRequest, "directory is required")
		return
	}
	if req.Pattern == "" {
		req.Pattern = DefaultPattern
	}

	var (
		report Report
		err    error
	)
	s.gate.Run(func() {
		report, err = s.service.RecognizeDirectory(r.Context(), req.Directory, req.Pattern)
	})
	if err != nil {
		if errors.Is(err, ErrDirectoryNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("Batch recognition failed", "directory", req.Directory, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	var req singleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImagePath == "" {
		writeError(w, http.StatusBadRequest, "image_path is required")
		return
	}

	var result Result
	s.gate.Run(func() {
		result = s.service.RecognizeFile(r.Context(), req.ImagePath)
	})

	writeJSON(w, http.StatusOK, result)
}
