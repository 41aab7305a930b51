package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speech2srt/internal/pipeline"
)

type fakeNormalizer struct {
	dir    string
	err    error
	called bool
	path   string
}

func (f *fakeNormalizer) Normalize(_ context.Context, _ string) (string, error) {
	f.called = true
	if f.err != nil {
		return "", f.err
	}
	tmp, err := os.CreateTemp(f.dir, "speech2srt-*.wav")
	if err != nil {
		return "", err
	}
	tmp.Close()
	f.path = tmp.Name()
	return f.path, nil
}

type fakeResolver struct {
	segments []pipeline.Segment
	err      error
	gotPath  string
	gotMode  pipeline.Mode
	gotLang  string
}

func (f *fakeResolver) Resolve(_ context.Context, audioPath string, mode pipeline.Mode, language string) ([]pipeline.Segment, error) {
	f.gotPath, f.gotMode, f.gotLang = audioPath, mode, language
	return f.segments, f.err
}

var _ StageReporter = (*pipeline.Resolver)(nil)

func strPtr(s string) *string { return &s }

type fixture struct {
	input  string
	output string
	tmp    string
	norm   *fakeNormalizer
	res    *fakeResolver
	states []State
	runner *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		input:  filepath.Join(dir, "clip.mp4"),
		output: filepath.Join(dir, "clip.srt"),
		tmp:    t.TempDir(),
	}
	require.NoError(t, os.WriteFile(f.input, []byte("video"), 0o644))
	f.norm = &fakeNormalizer{dir: f.tmp}
	f.res = &fakeResolver{segments: []pipeline.Segment{
		{Text: "Hello.", Start: 0, End: 1.2, ChineseText: strPtr("你好。")},
		{Text: "Bye.", Start: 1.2, End: 2, ChineseText: strPtr("再见。")},
	}}
	f.runner = &Runner{
		Normalizer: f.norm,
		Resolver:   f.res,
		OnState:    func(s State) { f.states = append(f.states, s) },
	}
	return f
}

func (f *fixture) tempFiles(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.tmp)
	require.NoError(t, err)
	return entries
}

func TestRun_Success(t *testing.T) {
	f := newFixture(t)

	err := f.runner.Run(context.Background(), Options{
		InputPath:  f.input,
		OutputPath: f.output,
		Language:   "en",
		Mode:       pipeline.ModeDual,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Serialize(f.res.segments, pipeline.ModeDual), string(data))
	assert.Contains(t, string(data), "Hello.\n你好。\n\n")

	assert.Equal(t, f.norm.path, f.res.gotPath)
	assert.Equal(t, pipeline.ModeDual, f.res.gotMode)
	assert.Equal(t, "en", f.res.gotLang)

	assert.Empty(t, f.tempFiles(t), "temporary PCM must be removed")
	assert.NoFileExists(t, f.output+".lock")
	assert.Equal(t, []State{
		StateValidating, StateNormalizing, StateTranscribing,
		StateSerializing, StateCleaningUp, StateDone,
	}, f.states)

	entries, err := os.ReadDir(filepath.Dir(f.output))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only the input and the SRT remain")
}

func TestRun_DefaultOutputAndMode(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Run(context.Background(), Options{InputPath: f.input}))
	assert.FileExists(t, f.output)
	assert.Equal(t, pipeline.ModeOriginal, f.res.gotMode)

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "你好")
}

func TestRun_OverwritesExistingOutput(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.output, []byte("stale"), 0o644))

	require.NoError(t, f.runner.Run(context.Background(), Options{InputPath: f.input, OutputPath: f.output}))
	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestRun_SaveJSON(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Run(context.Background(), Options{
		InputPath: f.input, OutputPath: f.output, Mode: pipeline.ModeDual, SaveJSON: true,
	}))

	data, err := os.ReadFile(filepath.Join(filepath.Dir(f.output), "clip.json"))
	require.NoError(t, err)
	var got []pipeline.Segment
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, f.res.segments, got)
}

func TestRun_SaveJSONSkippedWhenSRTWriteFails(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(t.TempDir(), "missing", "clip.srt")

	err := f.runner.Run(context.Background(), Options{InputPath: f.input, OutputPath: out, SaveJSON: true})
	require.ErrorIs(t, err, pipeline.ErrOutputWrite)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(out), "clip.json"))
	assert.NoDirExists(t, filepath.Dir(out))
}

type stagedResolver struct {
	fakeResolver
	stages []pipeline.Stage
	report func(pipeline.Stage)
}

func (s *stagedResolver) ReportStages(fn func(pipeline.Stage)) { s.report = fn }

func (s *stagedResolver) Resolve(ctx context.Context, audioPath string, mode pipeline.Mode, language string) ([]pipeline.Segment, error) {
	for _, st := range s.stages {
		s.report(st)
	}
	return s.fakeResolver.Resolve(ctx, audioPath, mode, language)
}

func TestRun_ResolverStages(t *testing.T) {
	f := newFixture(t)
	f.runner.Resolver = &stagedResolver{
		fakeResolver: *f.res,
		stages:       []pipeline.Stage{pipeline.StageDetecting, pipeline.StageTranscribing, pipeline.StageTranslating},
	}

	require.NoError(t, f.runner.Run(context.Background(), Options{InputPath: f.input, OutputPath: f.output, Mode: pipeline.ModeDual}))
	assert.Equal(t, []State{
		StateValidating, StateNormalizing, StateDetecting, StateTranscribing,
		StateTranslating, StateSerializing, StateCleaningUp, StateDone,
	}, f.states)
}

func TestRun_InputNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.runner.Run(context.Background(), Options{
		InputPath:  filepath.Join(t.TempDir(), "missing.mp4"),
		OutputPath: f.output,
	})
	require.ErrorIs(t, err, pipeline.ErrInputNotFound)
	assert.False(t, f.norm.called)
	assert.NoFileExists(t, f.output)
	assert.Equal(t, []State{StateValidating, StateFailed}, f.states)
}

func TestRun_NoAudioTrack(t *testing.T) {
	f := newFixture(t)
	f.norm.err = fmt.Errorf("%w: silent.mp4", pipeline.ErrNoAudioTrack)

	err := f.runner.Run(context.Background(), Options{InputPath: f.input, OutputPath: f.output})
	require.ErrorIs(t, err, pipeline.ErrMediaDecode)
	assert.ErrorIs(t, err, pipeline.ErrNoAudioTrack)
	assert.NoFileExists(t, f.output)
	assert.Equal(t, []State{StateValidating, StateNormalizing, StateCleaningUp, StateFailed}, f.states)
}

func TestRun_ResolveFailureCleansUp(t *testing.T) {
	f := newFixture(t)
	f.res.err = pipeline.ErrNoSpeech

	err := f.runner.Run(context.Background(), Options{InputPath: f.input, OutputPath: f.output})
	require.ErrorIs(t, err, pipeline.ErrNoSpeech)
	assert.NoFileExists(t, f.output)
	assert.Empty(t, f.tempFiles(t))
	assert.Equal(t, StateCleaningUp, f.states[len(f.states)-2])
}

func TestRun_OutputWriteError(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(t.TempDir(), "no", "such", "dir", "clip.srt")

	err := f.runner.Run(context.Background(), Options{InputPath: f.input, OutputPath: out})
	require.ErrorIs(t, err, pipeline.ErrOutputWrite)
	assert.Empty(t, f.tempFiles(t), "cleanup still runs after a write failure")
}

func TestRun_CleanupFailureIsNotEscalated(t *testing.T) {
	f := newFixture(t)
	// A non-empty directory cannot be removed with os.Remove.
	pcmDir := filepath.Join(f.tmp, "held.wav")
	require.NoError(t, os.MkdirAll(filepath.Join(pcmDir, "child"), 0o755))
	f.runner.Normalizer = normalizerFunc(func(context.Context, string) (string, error) { return pcmDir, nil })

	err := f.runner.Run(context.Background(), Options{InputPath: f.input, OutputPath: f.output})
	require.NoError(t, err)
	assert.FileExists(t, f.output)
	assert.DirExists(t, pcmDir)
}

type normalizerFunc func(ctx context.Context, input string) (string, error)

func (fn normalizerFunc) Normalize(ctx context.Context, input string) (string, error) {
	return fn(ctx, input)
}

func TestWriteFileLocked_CancelledContext(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clip.srt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := writeFileLocked(ctx, out, []byte("data"))
	require.ErrorIs(t, err, pipeline.ErrOutputWrite)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}
