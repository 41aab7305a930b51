// Package recognize provides speech recognition backends implementing
// pipeline.Recognizer.
//
// Two backends are available:
//   - Whisper runs the openai-whisper command line tool and reads its JSON output.
//   - OpenAI uploads audio to an OpenAI-compatible /audio endpoint.
//
// Both check that the audio file exists before invoking the model and report
// failures wrapped in pipeline.ErrTranscription.
package recognize

import (
	"fmt"
	"os"
	"strings"

	"speech2srt/internal/pipeline"
)

// rawSegment is the segment shape shared by whisper JSON output and the
// OpenAI verbose_json response.
type rawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func checkInput(audioPath string) error {
	info, err := os.Stat(audioPath)
	if err != nil {
		return fmt.Errorf("%w: audio file not found: %s", pipeline.ErrTranscription, audioPath)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: audio path is a directory: %s", pipeline.ErrTranscription, audioPath)
	}
	return nil
}

func toSegments(raw []rawSegment) []pipeline.Segment {
	segments := make([]pipeline.Segment, 0, len(raw))
	for _, s := range raw {
		segments = append(segments, pipeline.Segment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		})
	}
	return segments
}

func taskOrDefault(task pipeline.Task) pipeline.Task {
	if task == "" {
		return pipeline.TaskTranscribe
	}
	return task
}
