package ocr

import "errors"

// Method values a result can carry beyond the engine-derived ones. Engine
// results are tagged with the engine name, escalated results with both
// names joined by "+".
const (
	// MethodNone marks an image with no locatable content.
	MethodNone = "none"
	// MethodError marks any failure while reading, locating, or
	// recognizing.
	MethodError = "error"
)

// ErrDirectoryNotFound reports a batch request naming a directory that
// does not exist. The HTTP surface maps it to 404.
var ErrDirectoryNotFound = errors.New("directory not found")

// Result is the outcome of recognizing one image. Field names are the wire
// contract shared by the CLI output and the HTTP service.
type Result struct {
	Success     bool    `json:"success"`
	Latex       string  `json:"latex"`
	File        string  `json:"file"`
	Error       *string `json:"error"` // null on success
	Method      string  `json:"method"`
	ContentSize [2]int  `json:"content_size"` // raw width, height before padding
	IsSimple    *bool   `json:"is_simple,omitempty"` // present only on success
}

// BatchError pairs a file name with what went wrong while processing it.
type BatchError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Report aggregates one directory run. Results holds one entry per
// discovered file, keyed by base name; failed files carry an
// "[ERROR: ...]" placeholder and also appear in Errors.
type Report struct {
	Results      map[string]string `json:"results"`
	Count        int               `json:"count"`
	SuccessCount int               `json:"success_count"`
	SimpleCount  int               `json:"simple_count"`
	ComplexCount int               `json:"complex_count"`
	Errors       []BatchError      `json:"errors"`
}

// failedResult builds the uniform failure shape.
func failedResult(file, message string) Result {
	return Result{
		File:   file,
		Error:  &message,
		Method: MethodError,
	}
}
