// Package worker runs one media file through the subtitle pipeline.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"speech2srt/internal/pipeline"
)

// Normalizer turns an input file into a temporary PCM file owned by the caller.
type Normalizer interface {
	Normalize(ctx context.Context, input string) (string, error)
}

// Resolver produces the final segments for a PCM file.
type Resolver interface {
	Resolve(ctx context.Context, audioPath string, mode pipeline.Mode, language string) ([]pipeline.Segment, error)
}

// StageReporter is implemented by resolvers that report their own detecting,
// transcribing and translating steps.
type StageReporter interface {
	ReportStages(fn func(pipeline.Stage))
}

// State is a step of a pipeline run.
type State string

const (
	StateValidating   State = "validating"
	StateNormalizing  State = "normalizing"
	StateDetecting    State = "detecting"
	StateTranscribing State = "transcribing"
	StateTranslating  State = "translating"
	StateSerializing  State = "serializing"
	StateCleaningUp   State = "cleaning_up"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Options configures a single run.
type Options struct {
	InputPath  string
	OutputPath string // defaults to the input path with a .srt extension
	Language   string
	Mode       pipeline.Mode
	SaveJSON   bool
}

// Runner is the top-level orchestrator for the transcription pipeline.
type Runner struct {
	Normalizer Normalizer
	Resolver   Resolver
	// OnState, when set, is called on every state transition.
	OnState func(State)
}

func (r *Runner) enter(s State) {
	slog.Info("pipeline", "state", string(s))
	if r.OnState != nil {
		r.OnState(s)
	}
}

// Run processes one file. The temporary PCM file is removed on every exit
// path, and the output file is only written once all segments are final.
func (r *Runner) Run(ctx context.Context, opts Options) (err error) {
	defer func() {
		if err != nil {
			slog.Error("pipeline failed", "state", string(StateFailed), "err", err)
			if r.OnState != nil {
				r.OnState(StateFailed)
			}
			return
		}
		r.enter(StateDone)
	}()

	r.enter(StateValidating)
	inputPath := opts.InputPath
	info, statErr := os.Stat(inputPath)
	if statErr != nil {
		return fmt.Errorf("%w: %s", pipeline.ErrInputNotFound, inputPath)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", pipeline.ErrInputNotFound, inputPath)
	}

	// Determine output path.
	outputSRT := opts.OutputPath
	if outputSRT == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outputSRT = base + ".srt"
	}
	mode := opts.Mode
	if mode == "" {
		mode = pipeline.ModeOriginal
	}

	slog.Info("processing file", "input", filepath.Base(inputPath), "size", humanize.Bytes(uint64(info.Size())), "mode", string(mode))

	var pcmPath string
	defer func() {
		r.enter(StateCleaningUp)
		cleanupTemp(pcmPath)
	}()

	r.enter(StateNormalizing)
	pcmPath, err = r.Normalizer.Normalize(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", filepath.Base(inputPath), err)
	}

	if sr, ok := r.Resolver.(StageReporter); ok {
		sr.ReportStages(func(s pipeline.Stage) { r.enter(State(s)) })
	} else {
		r.enter(StateTranscribing)
	}
	segments, err := r.Resolver.Resolve(ctx, pcmPath, mode, opts.Language)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	r.enter(StateSerializing)
	srtContent := pipeline.Serialize(segments, mode)

	if err := writeFileLocked(ctx, outputSRT, []byte(srtContent)); err != nil {
		return err
	}
	slog.Info("SRT file saved", "path", outputSRT, "entries", len(segments), "size", humanize.Bytes(uint64(len(srtContent))))

	// Segments JSON is only written next to a saved SRT.
	if opts.SaveJSON {
		jsonPath := strings.TrimSuffix(outputSRT, filepath.Ext(outputSRT)) + ".json"
		if err := saveJSON(jsonPath, segments); err != nil {
			slog.Warn("failed to save JSON", "err", err)
		} else {
			slog.Info("segments JSON saved", "path", jsonPath)
		}
	}
	return nil
}

// writeFileLocked writes data to path through a temp file and rename while
// holding an exclusive lock on path.lock.
func writeFileLocked(ctx context.Context, path string, data []byte) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("%w: lock %s: %w", pipeline.ErrOutputWrite, lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s is locked by another process", pipeline.ErrOutputWrite, path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Debug("release output lock", "err", err)
		}
		_ = os.Remove(lock.Path())
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrOutputWrite, err)
	}
	tmpPath := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", pipeline.ErrOutputWrite, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", pipeline.ErrOutputWrite, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", pipeline.ErrOutputWrite, err)
	}
	return nil
}

func saveJSON(path string, segments []pipeline.Segment) error {
	data, err := json.MarshalIndent(segments, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// cleanupTemp removes the normalized PCM file. Failures are logged only.
func cleanupTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("temp cleanup failed", "file", path, "err", fmt.Errorf("%w: %w", pipeline.ErrTempCleanup, err))
		return
	}
	slog.Debug("temp cleanup complete", "file", filepath.Base(path))
}
