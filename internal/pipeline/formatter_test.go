package pipeline

import (
	"math"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestFormatSRTTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.123, "00:01:01,123"},
		{3661.999, "01:01:01,999"},
		{3600, "01:00:00,000"},
		{0.083, "00:00:00,083"},
		{7200.5, "02:00:00,500"},
		{1.9994, "00:00:01,999"},     // truncated, not rounded, to the millisecond
		{1.9999996, "00:00:02,000"}, // rounded to the microsecond first
		{-3, "00:00:00,000"},
		{math.NaN(), "00:00:00,000"},
		{360000, "100:00:00,000"},
	}

	for _, tt := range tests {
		got := formatSRTTime(tt.seconds)
		if got != tt.want {
			t.Errorf("formatSRTTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestEntryContent(t *testing.T) {
	tests := []struct {
		name string
		seg  Segment
		mode Mode
		want string
	}{
		{"original", Segment{Text: " Hello "}, ModeOriginal, "Hello"},
		{"translated", Segment{Text: "你好"}, ModeTranslated, "你好"},
		{"original ignores translation", Segment{Text: "Hello", ChineseText: strPtr("你好")}, ModeOriginal, "Hello"},
		{"dual", Segment{Text: "Hello", ChineseText: strPtr("你好")}, ModeDual, "Hello\n你好"},
		{"dual empty translation", Segment{Text: "Hello", ChineseText: strPtr("")}, ModeDual, "Hello"},
		{"dual missing translation", Segment{Text: "Hello"}, ModeDual, "Hello"},
		{"dual empty original", Segment{Text: "", ChineseText: strPtr("你好")}, ModeDual, "你好"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryContent(tt.seg, tt.mode); got != tt.want {
				t.Errorf("entryContent() = %q, want %q", got, tt.want)
			}
		})
	}
}
