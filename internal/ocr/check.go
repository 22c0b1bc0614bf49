package ocr

import (
	"context"
	"errors"

	"github.com/zombor/math-ocr/internal/device"
)

// ErrNotReady reports a system check where at least one recognition engine
// is unusable, so simple/complex routing cannot fully work.
var ErrNotReady = errors.New("not all engines available")

// Check is the dependency report behind the --check flag.
type Check struct {
	TextEngine       string `json:"text_engine"`
	TextAvailable    bool   `json:"text_available"`
	FormulaEngine    string `json:"formula_engine"`
	FormulaAvailable bool   `json:"formula_available"`

	// Ready means at least one engine works. HybridReady means both do.
	Ready       bool `json:"ready"`
	HybridReady bool `json:"hybrid_ready"`

	device.Info

	DriverVersion string         `json:"driver_version,omitempty"`
	GPUMemory     *device.Memory `json:"gpu_memory,omitempty"`
}

// CheckSystem probes engine and accelerator availability without loading
// anything. verbose adds driver and memory details.
func (s *Service) CheckSystem(ctx context.Context, verbose bool) Check {
	check := Check{
		TextEngine:    s.text.Name(),
		FormulaEngine: s.formula.Name(),
		Info:          s.DeviceInfo(ctx),
	}

	check.TextAvailable = s.text.Available() == nil
	check.FormulaAvailable = s.formula.Available() == nil
	check.Ready = check.TextAvailable || check.FormulaAvailable
	check.HybridReady = check.TextAvailable && check.FormulaAvailable

	if verbose {
		check.DriverVersion = s.prober.DriverVersion(ctx)
		mem := s.prober.Memory(ctx)
		check.GPUMemory = &mem
	}
	return check
}
