package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
)

// Entries converts segments into numbered subtitle entries, one per segment,
// in sequence order.
func Entries(segments []Segment, mode Mode) []SubtitleEntry {
	entries := make([]SubtitleEntry, 0, len(segments))
	for i, seg := range segments {
		content := entryContent(seg, mode)
		if strings.TrimSpace(content) == "" {
			slog.Debug("subtitle entry has no text", "index", i+1, "start", formatSRTTime(seg.Start))
		}
		entries = append(entries, SubtitleEntry{
			Index:   i + 1,
			Start:   seg.Start,
			End:     seg.End,
			Content: content,
		})
	}
	return entries
}

// Serialize renders segments as an SRT document.
func Serialize(segments []Segment, mode Mode) string {
	return generateSRT(Entries(segments, mode))
}

func generateSRT(entries []SubtitleEntry) string {
	if len(entries) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			entry.Index, formatSRTTime(entry.Start), formatSRTTime(entry.End), entry.Content)
	}
	return sb.String()
}
