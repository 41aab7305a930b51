package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"

	"speech2srt/internal/config"
)

// DualLengthPolicy decides what happens in explicit dual mode when the
// transcribe and translate passes return different segment counts.
type DualLengthPolicy string

const (
	// DualTruncate keeps only the positionally paired prefix.
	DualTruncate DualLengthPolicy = "truncate"
	// DualKeepOriginal keeps every original segment; unpaired ones get an
	// empty translation.
	DualKeepOriginal DualLengthPolicy = "keep"
)

// Stage is a step of Resolve reported to the caller.
type Stage string

const (
	StageDetecting    Stage = "detecting"
	StageTranscribing Stage = "transcribing"
	StageTranslating  Stage = "translating"
)

// Resolver turns a PCM file into the final segment list for a subtitle mode.
type Resolver struct {
	Recognizer Recognizer
	// Translator is only consulted by VariantDetect.
	Translator Translator
	Variant    Variant
	// TargetLanguage is the language translated subtitles are written in.
	TargetLanguage string
	DualLength     DualLengthPolicy

	onStage func(Stage)
}

// ReportStages registers fn to be called as Resolve moves between stages.
func (r *Resolver) ReportStages(fn func(Stage)) {
	r.onStage = fn
}

func (r *Resolver) stage(s Stage) {
	if r.onStage != nil {
		r.onStage(s)
	}
}

// Resolve runs recognition (and translation when needed) for audioPath.
// language is the caller's working language; for VariantDetect it is only the
// fallback used when detection fails.
func (r *Resolver) Resolve(ctx context.Context, audioPath string, mode Mode, language string) ([]Segment, error) {
	if r.Recognizer == nil {
		return nil, errors.New("resolver: recognizer not configured")
	}
	language = config.NormalizeLanguage(language)

	if r.Variant == VariantDetect {
		return r.resolveDetect(ctx, audioPath, mode, language)
	}
	return r.resolveExplicit(ctx, audioPath, mode, language)
}

func (r *Resolver) target() string {
	if t := config.NormalizeLanguage(r.TargetLanguage); t != "" {
		return t
	}
	return config.DefaultTargetLanguage
}

func (r *Resolver) resolveExplicit(ctx context.Context, audioPath string, mode Mode, language string) ([]Segment, error) {
	switch mode {
	case ModeTranslated:
		r.stage(StageTranscribing)
		slog.Info("generating translated subtitles", "language", language)
		segs, err := r.transcribe(ctx, audioPath, language, TaskTranslate)
		return segs, err

	case ModeDual:
		r.stage(StageTranscribing)
		slog.Info("generating original subtitles", "language", language)
		original, err := r.transcribe(ctx, audioPath, language, TaskTranscribe)
		if err != nil {
			return nil, err
		}
		r.stage(StageTranslating)
		slog.Info("generating translation", "language", r.target())
		translated, err := r.transcribe(ctx, audioPath, r.target(), TaskTranslate)
		if err != nil {
			return nil, err
		}
		return pairSegments(original, translated, r.DualLength), nil

	default:
		r.stage(StageTranscribing)
		slog.Info("generating original subtitles", "language", language)
		segs, err := r.transcribe(ctx, audioPath, language, TaskTranscribe)
		return segs, err
	}
}

func (r *Resolver) resolveDetect(ctx context.Context, audioPath string, mode Mode, fallback string) ([]Segment, error) {
	r.stage(StageDetecting)
	slog.Info("detecting source language")
	detected := fallback
	probe, err := r.Recognizer.Transcribe(ctx, audioPath, TranscribeOptions{Task: TaskTranscribe})
	switch {
	case err != nil:
		slog.Warn("language detection failed, using requested language", "language", fallback, "err", err)
	case probe == nil || len(validSegments(probe.Segments)) == 0:
		return nil, ErrNoSpeech
	default:
		if lang := config.NormalizeLanguage(probe.Language); lang != "" {
			detected = lang
		} else if lang := detectTextLanguage(probe.Segments); lang != "" {
			slog.Debug("recognizer reported no language, inferred from text", "language", lang)
			detected = lang
		}
	}
	slog.Info("source language", "language", detected)

	r.stage(StageTranscribing)
	segments, err := r.transcribe(ctx, audioPath, detected, TaskTranscribe)
	if err != nil {
		return nil, err
	}
	if mode == ModeOriginal {
		return segments, nil
	}

	target := r.target()
	if detected == target {
		slog.Info("source already in target language, skipping translation", "language", target)
		if mode == ModeDual {
			for i := range segments {
				text := segments[i].Text
				segments[i].ChineseText = &text
			}
		}
		return segments, nil
	}

	if r.Translator == nil {
		return nil, fmt.Errorf("%w: no translator configured for %s -> %s", ErrTranslation, detected, target)
	}

	r.stage(StageTranslating)
	slog.Info("translating segments", "from", detected, "to", target, "count", len(segments))
	for i := range segments {
		out, err := r.Translator.Translate(ctx, segments[i].Text, detected, target)
		if err != nil {
			slog.Warn("translation failed, keeping original text", "segment", i+1, "err", err)
		}
		if mode == ModeTranslated {
			segments[i].Text = out
		} else {
			segments[i].ChineseText = &out
		}
	}
	return segments, nil
}

// transcribe runs one recognition call and enforces the non-empty result
// policy. Invalid time ranges are dropped.
func (r *Resolver) transcribe(ctx context.Context, audioPath, language string, task Task) ([]Segment, error) {
	tr, err := r.Recognizer.Transcribe(ctx, audioPath, TranscribeOptions{Language: language, Task: task})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSpeech, err)
	}
	if tr == nil {
		return nil, ErrNoSpeech
	}
	segments := validSegments(tr.Segments)
	if dropped := len(tr.Segments) - len(segments); dropped > 0 {
		slog.Warn("dropped segments with invalid timing", "count", dropped, "task", task)
	}
	if len(segments) == 0 {
		return nil, ErrNoSpeech
	}
	return segments, nil
}

func validSegments(in []Segment) []Segment {
	out := make([]Segment, 0, len(in))
	for _, seg := range in {
		if seg.Valid() {
			out = append(out, seg)
		}
	}
	return out
}

// pairSegments attaches translated text to original segments by position.
func pairSegments(original, translated []Segment, policy DualLengthPolicy) []Segment {
	n := min(len(original), len(translated))
	if n != len(original) || n != len(translated) {
		slog.Warn("transcription passes disagree on segment count",
			"original", len(original), "translated", len(translated), "policy", policy)
	}

	size := n
	if policy == DualKeepOriginal {
		size = len(original)
	}
	merged := make([]Segment, 0, size)
	for i := 0; i < size; i++ {
		seg := original[i]
		text := ""
		if i < len(translated) {
			text = translated[i].Text
		}
		seg.ChineseText = &text
		merged = append(merged, seg)
	}
	return merged
}

// detectTextLanguage infers a language from segment text by majority vote.
// Ties go to the language seen first.
func detectTextLanguage(segments []Segment) string {
	counts := make(map[string]int)
	var order []string
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		code := whatlanggo.DetectLang(seg.Text).Iso6391()
		if code == "" {
			continue
		}
		if _, seen := counts[code]; !seen {
			order = append(order, code)
		}
		counts[code]++
	}

	best, bestCount := "", 0
	for _, code := range order {
		if counts[code] > bestCount {
			best, bestCount = code, counts[code]
		}
	}
	return config.NormalizeLanguage(best)
}
