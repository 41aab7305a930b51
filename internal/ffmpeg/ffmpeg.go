package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// MediaInfo holds duration and audio stream information from ffprobe.
type MediaInfo struct {
	Duration    float64
	Codec       string
	AudioTracks int
}

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// Tool wraps the ffmpeg and ffprobe binaries.
type Tool struct {
	FFmpeg     string
	FFprobe    string
	SampleRate int
	run        Runner
}

// New returns a Tool that shells out to the given binaries.
func New(ffmpegBinary, ffprobeBinary string, sampleRate int) *Tool {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Tool{FFmpeg: ffmpegBinary, FFprobe: ffprobeBinary, SampleRate: sampleRate, run: ExecRunner}
}

// WithRunner replaces the command runner (for testing).
func (t *Tool) WithRunner(run Runner) *Tool {
	t.run = run
	return t
}

// probeOutput mirrors ffprobe JSON structure.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecName string `json:"codec_name"`
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// ProbeMedia uses ffprobe to get media duration and the audio streams.
func (t *Tool) ProbeMedia(ctx context.Context, path string) (*MediaInfo, error) {
	out, err := t.run(ctx, t.FFprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_name,codec_type:format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}

	dur, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	info := &MediaInfo{Duration: dur, Codec: "N/A"}
	for _, s := range probe.Streams {
		if s.CodecType != "" && s.CodecType != "audio" {
			continue
		}
		if info.AudioTracks == 0 && s.CodecName != "" {
			info.Codec = s.CodecName
		}
		info.AudioTracks++
	}
	return info, nil
}

// ExtractAudio writes the first audio stream of a video as mono PCM WAV.
func (t *Tool) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	slog.Debug("extracting audio", "input", filepath.Base(videoPath), "output", filepath.Base(outputPath))
	return t.encodePCM(ctx, videoPath, outputPath, "-map", "0:a:0", "-vn")
}

// ConvertAudio re-encodes any decodable audio file as mono PCM WAV.
func (t *Tool) ConvertAudio(ctx context.Context, audioPath, outputPath string) error {
	slog.Debug("converting audio", "input", filepath.Base(audioPath), "output", filepath.Base(outputPath))
	return t.encodePCM(ctx, audioPath, outputPath, "-vn")
}

func (t *Tool) encodePCM(ctx context.Context, input, output string, extra ...string) error {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input}
	args = append(args, extra...)
	args = append(args,
		"-sn", "-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(t.SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		output,
	)
	if out, err := t.run(ctx, t.FFmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// IsVideoExtension returns true for the container extensions treated as video.
func IsVideoExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp4", ".avi", ".mov", ".mkv", ".wmv":
		return true
	}
	return false
}

// LogMediaInfo logs file size and, when available, probed media information.
func LogMediaInfo(path string, info *MediaInfo) {
	stat, err := os.Stat(path)
	if err != nil {
		slog.Warn("cannot stat file", "path", path, "err", err)
		return
	}

	msg := "file size: " + humanize.Bytes(uint64(stat.Size()))
	if info != nil {
		minutes := int(info.Duration) / 60
		seconds := int(info.Duration) % 60
		msg += fmt.Sprintf(" | duration: %02d:%02d | codec: %s", minutes, seconds, info.Codec)
	}
	slog.Info(msg)
}
