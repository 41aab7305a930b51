package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"speech2srt/internal/pipeline"
)

// Whisper runs the openai-whisper CLI.
type Whisper struct {
	binary  string
	model   string
	device  string
	tempDir string
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWhisper resolves the whisper binary once and returns a recognizer bound
// to the given model size.
func NewWhisper(binary, model, device, tempDir string) (*Whisper, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("whisper binary %q not found: %w", binary, err)
	}
	return &Whisper{
		binary:  path,
		model:   model,
		device:  device,
		tempDir: tempDir,
		run:     runCombined,
	}, nil
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// Model returns the configured model size.
func (w *Whisper) Model() string {
	return w.model
}

type whisperOutput struct {
	Language string       `json:"language"`
	Text     string       `json:"text"`
	Segments []rawSegment `json:"segments"`
}

// Transcribe runs whisper on audioPath. An empty opts.Language lets whisper
// detect the language; the detected code is returned in Transcript.Language.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string, opts pipeline.TranscribeOptions) (*pipeline.Transcript, error) {
	if err := checkInput(audioPath); err != nil {
		return nil, err
	}

	outDir, err := os.MkdirTemp(w.tempDir, "speech2srt-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create output dir: %w", pipeline.ErrTranscription, err)
	}
	defer func() {
		if err := os.RemoveAll(outDir); err != nil {
			slog.Warn("remove whisper output dir", "dir", outDir, "err", err)
		}
	}()

	args := w.buildArgs(audioPath, outDir, opts)
	slog.Debug("running whisper", "model", w.model, "task", taskOrDefault(opts.Task), "language", opts.Language)
	if out, err := w.run(ctx, w.binary, args...); err != nil {
		return nil, fmt.Errorf("%w: whisper: %w: %s", pipeline.ErrTranscription, err, tail(string(out), 2000))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w: read whisper output: %w", pipeline.ErrTranscription, err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse whisper output: %w", pipeline.ErrTranscription, err)
	}

	return &pipeline.Transcript{
		Language: parsed.Language,
		Segments: toSegments(parsed.Segments),
	}, nil
}

func (w *Whisper) buildArgs(audioPath, outDir string, opts pipeline.TranscribeOptions) []string {
	args := []string{
		audioPath,
		"--model", w.model,
		"--task", string(taskOrDefault(opts.Task)),
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if w.device != "" {
		args = append(args, "--device", w.device)
	}
	return args
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
