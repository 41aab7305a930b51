package pipeline

import (
	"fmt"
	"math"
	"strings"
)

// formatSRTTime converts seconds to SRT time format HH:MM:SS,mmm.
// The value is rounded to the microsecond first and then truncated to the
// millisecond, so 1.9999996 renders as 00:00:02,000 and 1.9994 as 00:00:01,999.
func formatSRTTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	micros := int64(math.Round(seconds * 1e6))
	millis := micros / 1000

	hours := millis / 3_600_000
	millis %= 3_600_000
	minutes := millis / 60_000
	millis %= 60_000
	secs := millis / 1000
	millis %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// entryContent builds the text of a subtitle block for the given mode.
func entryContent(seg Segment, mode Mode) string {
	if mode != ModeDual {
		return strings.TrimSpace(seg.Text)
	}
	translated := ""
	if seg.ChineseText != nil {
		translated = *seg.ChineseText
	}
	return strings.TrimSpace(seg.Text + "\n" + translated)
}
