package pipeline

import (
	"errors"
	"fmt"
)

// Failure reasons reported by a pipeline run. Callers classify with errors.Is.
var (
	ErrInputNotFound = errors.New("input file not found")
	ErrMediaDecode   = errors.New("media decode failed")
	ErrNoAudioTrack  = fmt.Errorf("%w: no audio track", ErrMediaDecode)
	ErrTranscription = errors.New("transcription failed")
	ErrTranslation   = errors.New("translation failed")
	ErrNoSpeech      = errors.New("no speech recognized")
	ErrOutputWrite   = errors.New("write output failed")
	ErrTempCleanup   = errors.New("temporary file cleanup failed")
)
