// Package deps checks the external programs speech2srt relies on.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"speech2srt/internal/config"
)

// Requirement defines an external dependency.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configuration needs. The whisper CLI is
// optional when recognition goes through the OpenAI API.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpeg.FFmpegBinary,
			Description: "Audio extraction and re-encoding",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFmpeg.FFprobeBinary,
			Description: "Media inspection",
		},
		{
			Name:        "Whisper",
			Command:     cfg.Recognizer.WhisperBinary,
			Description: "Local speech recognition",
			Optional:    cfg.Recognizer.Backend != "whisper",
		},
	}
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkBinary(req))
	}
	return results
}

func checkBinary(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Available = true
	status.Detail = path
	return status
}

const cudaProbe = `import torch
print(torch.cuda.is_available())
print(torch.cuda.device_count())
print(torch.cuda.get_device_name(0) if torch.cuda.is_available() else "")`

// CheckCUDA asks the Python interpreter whether torch can see a CUDA device.
// The whisper CLI runs on CPU without one, so the result is always optional.
func CheckCUDA(ctx context.Context, python string, run Runner) Status {
	status := Status{
		Name:        "CUDA",
		Command:     python,
		Description: "GPU acceleration for whisper (torch.cuda)",
		Optional:    true,
	}
	if run == nil {
		if _, err := exec.LookPath(python); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", python)
			return status
		}
		run = execRunner
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := run(ctx, python, "-c", cudaProbe)
	if err != nil {
		status.Detail = "torch not importable: " + lastLine(string(out), err)
		return status
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "True" {
		status.Detail = "CUDA not available, whisper will run on CPU"
		return status
	}
	status.Available = true
	status.Detail = "CUDA available"
	if len(lines) >= 3 {
		status.Detail = fmt.Sprintf("%s device(s): %s", strings.TrimSpace(lines[1]), strings.TrimSpace(lines[2]))
	}
	return status
}

func lastLine(out string, err error) string {
	out = strings.TrimSpace(out)
	if out == "" {
		return err.Error()
	}
	lines := strings.Split(out, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Check runs the binary checks and, when python is set, the CUDA probe
// concurrently. Results keep the order of requirements with CUDA last.
func Check(ctx context.Context, requirements []Requirement, python string, run Runner) ([]Status, error) {
	results := make([]Status, len(requirements), len(requirements)+1)
	var cuda Status

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range requirements {
		g.Go(func() error {
			results[i] = checkBinary(req)
			return gctx.Err()
		})
	}
	if python != "" {
		g.Go(func() error {
			cuda = CheckCUDA(gctx, python, run)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if python != "" {
		results = append(results, cuda)
	}
	return results, nil
}

// Missing returns the required dependencies that are not available.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
