package device

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Kind names the compute device recognition engines run on.
type Kind string

const (
	KindCUDA Kind = "cuda"
	KindMPS  Kind = "mps"
	KindCPU  Kind = "cpu"
)

// Info describes the detected accelerator.
type Info struct {
	Available bool   `json:"gpu_available"`
	Name      string `json:"gpu_name"`
	Kind      Kind   `json:"device"`
}

// Memory is an accelerator memory snapshot in MiB. All zeros when no
// accelerator is present or the driver cannot report usage.
type Memory struct {
	AllocatedMB int64 `json:"allocated_mb"`
	ReservedMB  int64 `json:"reserved_mb"`
	TotalMB     int64 `json:"total_mb"`
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()

	// A missing nvidia-smi is the normal CPU case, not a fault.
	if err != nil {
		slog.Debug("probe command failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

// Prober reads accelerator state through nvidia-smi.
type Prober struct {
	runner Runner
}

// NewProber creates a Prober backed by the given runner. A nil runner
// means real command execution.
func NewProber(runner Runner) *Prober {
	if runner == nil {
		runner = execRunner{}
	}
	return &Prober{runner: runner}
}

// Detect probes for an accelerator. CUDA wins when nvidia-smi answers,
// Apple Silicon falls back to Metal, everything else is plain CPU.
func (p *Prober) Detect(ctx context.Context) Info {
	out, _, err := p.runner.Run(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	if err == nil {
		if name := firstLine(out); name != "" {
			return Info{Available: true, Name: name, Kind: KindCUDA}
		}
	}

	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return Info{Available: true, Name: "Apple Silicon", Kind: KindMPS}
	}

	return Info{Available: false, Name: "N/A", Kind: KindCPU}
}

// Memory reads current accelerator memory usage. Only CUDA devices report
// numbers; everything else reads as zeros.
func (p *Prober) Memory(ctx context.Context) Memory {
	out, _, err := p.runner.Run(ctx, "nvidia-smi",
		"--query-gpu=memory.used,memory.reserved,memory.total",
		"--format=csv,noheader,nounits",
	)
	if err != nil {
		return Memory{}
	}

	fields := strings.Split(firstLine(out), ",")
	if len(fields) != 3 {
		return Memory{}
	}

	var values [3]int64
	for i, f := range fields {
		n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return Memory{}
		}
		values[i] = n
	}

	return Memory{AllocatedMB: values[0], ReservedMB: values[1], TotalMB: values[2]}
}

// DriverVersion returns the installed driver version, or "" when no driver
// answers.
func (p *Prober) DriverVersion(ctx context.Context) string {
	out, _, err := p.runner.Run(ctx, "nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader")
	if err != nil {
		return ""
	}
	return firstLine(out)
}

func firstLine(out []byte) string {
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}
