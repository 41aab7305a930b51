package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Segment is one timestamped span of recognized speech.
type Segment struct {
	Text        string  `json:"text"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	ChineseText *string `json:"chinese_text,omitempty"` // set only in dual mode
}

// Valid reports whether the segment has a usable time range.
func (s Segment) Valid() bool {
	return s.Start >= 0 && s.End > s.Start
}

// SubtitleEntry represents one subtitle block.
type SubtitleEntry struct {
	Index   int
	Start   float64
	End     float64
	Content string
}

// Transcript is the result of one recognition call.
type Transcript struct {
	Language string
	Segments []Segment
}

// Task selects what the recognizer does with the speech.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// TranscribeOptions configures a single recognition call. An empty Language
// requests automatic language detection.
type TranscribeOptions struct {
	Language string
	Task     Task
}

// Recognizer turns a PCM audio file into timestamped segments.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (*Transcript, error)
}

// Translator translates text between two languages. On failure it returns the
// untranslated text together with an error wrapping ErrTranslation.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Mode is the requested subtitle layout.
type Mode string

const (
	ModeOriginal   Mode = "original"
	ModeTranslated Mode = "translated"
	ModeDual       Mode = "dual"
)

// ParseMode accepts the CLI spellings of a subtitle mode. "chinese" is the
// historical name of the translated mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "original":
		return ModeOriginal, nil
	case "chinese", "translated":
		return ModeTranslated, nil
	case "dual":
		return ModeDual, nil
	}
	return "", fmt.Errorf("unknown subtitle type %q (want original, chinese or dual)", s)
}

// Variant selects how the source language and translation are obtained.
type Variant string

const (
	// VariantExplicit uses the caller's language and the recognizer's own
	// translate task.
	VariantExplicit Variant = "explicit"
	// VariantDetect detects the source language first and translates each
	// segment with a Translator.
	VariantDetect Variant = "detect"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantExplicit, "":
		return VariantExplicit, nil
	case VariantDetect:
		return VariantDetect, nil
	}
	return "", fmt.Errorf("unknown pipeline variant %q (want explicit or detect)", s)
}
