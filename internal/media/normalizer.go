// Package media turns arbitrary audio or video input into the mono PCM WAV
// file the recognizer consumes.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"speech2srt/internal/ffmpeg"
	"speech2srt/internal/pipeline"
)

// Normalizer produces a temporary PCM file for an input path.
type Normalizer struct {
	tool    *ffmpeg.Tool
	tempDir string
}

// NewNormalizer returns a Normalizer writing temporary files to tempDir
// (os.TempDir when empty).
func NewNormalizer(tool *ffmpeg.Tool, tempDir string) *Normalizer {
	return &Normalizer{tool: tool, tempDir: tempDir}
}

// Normalize extracts (video) or re-encodes (audio) input into a new temporary
// WAV file and returns its path. The caller owns the returned file. On error no
// file is left behind.
func (n *Normalizer) Normalize(ctx context.Context, input string) (string, error) {
	isVideo := ffmpeg.IsVideoExtension(filepath.Ext(input))

	info, err := n.tool.ProbeMedia(ctx, input)
	switch {
	case isVideo && err != nil:
		return "", fmt.Errorf("%w: %w", pipeline.ErrMediaDecode, err)
	case isVideo && info.AudioTracks == 0:
		return "", fmt.Errorf("%w: %s", pipeline.ErrNoAudioTrack, filepath.Base(input))
	case err != nil:
		// Audio input is re-encoded regardless; the probe is informational.
		slog.Debug("probe failed", "input", filepath.Base(input), "err", err)
	}
	ffmpeg.LogMediaInfo(input, info)

	tmp, err := os.CreateTemp(n.tempDir, "speech2srt-*.wav")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %w", pipeline.ErrMediaDecode, err)
	}
	out := tmp.Name()
	tmp.Close()

	if isVideo {
		slog.Info("extracting audio from video")
		err = n.tool.ExtractAudio(ctx, input, out)
	} else {
		slog.Info("converting audio format")
		err = n.tool.ConvertAudio(ctx, input, out)
	}
	if err != nil {
		if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("remove partial audio", "file", out, "err", rmErr)
		}
		return "", fmt.Errorf("%w: %w", pipeline.ErrMediaDecode, err)
	}
	return out, nil
}
