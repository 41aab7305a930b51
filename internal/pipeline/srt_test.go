package pipeline

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSerialize_Empty(t *testing.T) {
	if got := Serialize(nil, ModeOriginal); got != "" {
		t.Errorf("expected empty document, got %q", got)
	}
}

func TestSerialize_Original(t *testing.T) {
	segments := []Segment{
		{Text: "Hello there.", Start: 0, End: 1.5},
		{Text: "General Kenobi.", Start: 1.5, End: 3.25},
	}

	got := Serialize(segments, ModeOriginal)
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello there.\n\n" +
		"2\n00:00:01,500 --> 00:00:03,250\nGeneral Kenobi.\n\n"
	if got != want {
		t.Errorf("Serialize() =\n%q\nwant\n%q", got, want)
	}
}

func TestSerialize_Dual(t *testing.T) {
	segments := []Segment{
		{Text: "Good morning.", Start: 0, End: 2, ChineseText: strPtr("早上好。")},
		{Text: "Bye.", Start: 2, End: 3, ChineseText: strPtr("")},
	}

	got := Serialize(segments, ModeDual)
	want := "1\n00:00:00,000 --> 00:00:02,000\nGood morning.\n早上好。\n\n" +
		"2\n00:00:02,000 --> 00:00:03,000\nBye.\n\n"
	if got != want {
		t.Errorf("Serialize() =\n%q\nwant\n%q", got, want)
	}
}

func TestEntries_SequentialIndices(t *testing.T) {
	segments := make([]Segment, 25)
	for i := range segments {
		segments[i] = Segment{Text: "x", Start: float64(i), End: float64(i) + 0.5}
	}

	entries := Entries(segments, ModeOriginal)
	if len(entries) != len(segments) {
		t.Fatalf("got %d entries, want %d", len(entries), len(segments))
	}
	for i, e := range entries {
		if e.Index != i+1 {
			t.Errorf("entry %d has index %d", i, e.Index)
		}
		if e.Start != segments[i].Start || e.End != segments[i].End {
			t.Errorf("entry %d timing %v-%v, want %v-%v", i, e.Start, e.End, segments[i].Start, segments[i].End)
		}
	}

	doc := Serialize(segments, ModeOriginal)
	if n := strings.Count(doc, " --> "); n != len(segments) {
		t.Errorf("document has %d timecode lines, want %d", n, len(segments))
	}
	if !strings.HasPrefix(doc, "1\n") || !strings.Contains(doc, "\n25\n") {
		t.Errorf("unexpected numbering in:\n%s", doc)
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	segments := []Segment{
		{Text: "one", Start: 0.1234567, End: 0.9},
		{Text: "two", Start: 1, End: 2.0004999, ChineseText: strPtr("二")},
	}
	for _, mode := range []Mode{ModeOriginal, ModeTranslated, ModeDual} {
		if Serialize(segments, mode) != Serialize(segments, mode) {
			t.Errorf("mode %s: output differs between runs", mode)
		}
	}
}

func TestEntries_EmptyTextKeepsEntry(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	segments := []Segment{
		{Text: "Hi.", Start: 0, End: 1},
		{Text: "  ", Start: 1, End: 2},
		{Text: "Bye.", Start: 2, End: 3},
	}

	entries := Entries(segments, ModeOriginal)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[1].Index != 2 || entries[1].Content != "" {
		t.Errorf("entry 2 = %+v", entries[1])
	}
	if !strings.Contains(logs.String(), "subtitle entry has no text") || !strings.Contains(logs.String(), "index=2") {
		t.Errorf("missing debug log for empty entry:\n%s", logs.String())
	}
	if strings.Count(logs.String(), "subtitle entry has no text") != 1 {
		t.Errorf("expected one empty-entry log:\n%s", logs.String())
	}
}
