package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"speech2srt/internal/config"
	"speech2srt/internal/ffmpeg"
	"speech2srt/internal/media"
	"speech2srt/internal/pipeline"
	"speech2srt/internal/recognize"
	"speech2srt/internal/translate"
	"speech2srt/internal/worker"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input_file> <output_file>",
	Short: "Convert audio/video speech to SRT subtitles",
	Long: `Convert the speech in an audio or video file into an SRT subtitle file.

Subtitle types:
  original  text in the spoken language
  chinese   text in the target language (alias: translated)
  dual      original text with the translation on a second line

Video files (.mp4 .avi .mov .mkv .wmv) have their audio track extracted first;
anything else is treated as audio.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

var (
	language          string
	model             string
	subtitleType      string
	variant           string
	targetLanguage    string
	dualLength        string
	recognizerBackend string
	translatorBackend string
	saveJSON          bool
)

func init() {
	defaults := config.Default()

	convertCmd.Flags().StringVarP(&language, "language", "l", defaults.Language, "spoken language code (e.g. en, zh, ja)")
	convertCmd.Flags().StringVarP(&model, "model", "m", defaults.Model, "whisper model: "+strings.Join(config.ModelSizes, ", "))
	convertCmd.Flags().StringVarP(&subtitleType, "subtitle-type", "t", defaults.SubtitleType, "subtitle type: original, chinese, dual")
	convertCmd.Flags().StringVar(&variant, "variant", defaults.Variant, "pipeline: explicit (use --language) or detect (detect language, translate per segment)")
	convertCmd.Flags().StringVar(&targetLanguage, "target-language", defaults.TargetLanguage, "language of translated subtitles")
	convertCmd.Flags().StringVar(&dualLength, "dual-length", defaults.DualLength, "dual mode segment count mismatch: truncate or keep")
	convertCmd.Flags().StringVar(&recognizerBackend, "recognizer", defaults.Recognizer.Backend, "speech recognizer: whisper, openai")
	convertCmd.Flags().StringVar(&translatorBackend, "translator", defaults.Translator.Backend, "translator for the detect variant: libre, deepl, none")
	convertCmd.Flags().BoolVar(&saveJSON, "save-json", false, "save segments JSON alongside SRT")

	rootCmd.AddCommand(convertCmd)
}

// applyFlags copies explicitly set flags over file and environment values.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("language") {
		cfg.Language = language
	}
	if flags.Changed("model") {
		cfg.Model = model
	}
	if flags.Changed("subtitle-type") {
		cfg.SubtitleType = subtitleType
	}
	if flags.Changed("variant") {
		cfg.Variant = variant
	}
	if flags.Changed("target-language") {
		cfg.TargetLanguage = targetLanguage
	}
	if flags.Changed("dual-length") {
		cfg.DualLength = dualLength
	}
	if flags.Changed("recognizer") {
		cfg.Recognizer.Backend = recognizerBackend
	}
	if flags.Changed("translator") {
		cfg.Translator.Backend = translatorBackend
	}
	if flags.Changed("save-json") {
		cfg.SaveJSON = saveJSON
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, exists, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if exists {
		slog.Debug("loaded config", "path", cfgPath)
	}
	applyFlags(cmd.Flags(), cfg)
	if err := cfg.Finalize(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	mode, err := pipeline.ParseMode(cfg.SubtitleType)
	if err != nil {
		return err
	}
	pipelineVariant, err := pipeline.ParseVariant(cfg.Variant)
	if err != nil {
		return err
	}

	// Resolve to absolute paths.
	inputPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	outputPath, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	// Setup signal handling for graceful cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.Default().With("run", uuid.NewString()))

	recognizer, err := newRecognizer(cfg)
	if err != nil {
		return err
	}
	translator, err := newTranslator(cfg)
	if err != nil {
		return err
	}

	tool := ffmpeg.New(cfg.FFmpeg.FFmpegBinary, cfg.FFmpeg.FFprobeBinary, cfg.FFmpeg.SampleRate)
	runner := &worker.Runner{
		Normalizer: media.NewNormalizer(tool, cfg.FFmpeg.TempDir),
		Resolver: &pipeline.Resolver{
			Recognizer:     recognizer,
			Translator:     translator,
			Variant:        pipelineVariant,
			TargetLanguage: cfg.TargetLanguage,
			DualLength:     pipeline.DualLengthPolicy(cfg.DualLength),
		},
	}

	slog.Info("configuration",
		"model", cfg.Model,
		"recognizer", cfg.Recognizer.Backend,
		"variant", string(pipelineVariant),
		"mode", string(mode),
		"language", cfg.Language,
		"target", cfg.TargetLanguage)

	err = runner.Run(ctx, worker.Options{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Language:   cfg.Language,
		Mode:       mode,
		SaveJSON:   cfg.SaveJSON,
	})
	if err != nil {
		return err
	}

	if !quiet {
		slog.Info("done")
	}
	return nil
}

func newRecognizer(cfg *config.Config) (pipeline.Recognizer, error) {
	switch cfg.Recognizer.Backend {
	case "openai":
		timeout := time.Duration(cfg.Recognizer.TimeoutMinutes) * time.Minute
		return recognize.NewOpenAI(cfg.Recognizer.OpenAIBaseURL, cfg.Recognizer.OpenAIAPIKey, cfg.Recognizer.OpenAIModel, timeout).
			WithProgress(uploadProgress()), nil
	default:
		w, err := recognize.NewWhisper(cfg.Recognizer.WhisperBinary, cfg.Model, cfg.Recognizer.Device, cfg.FFmpeg.TempDir)
		if err != nil {
			return nil, err
		}
		slog.Debug("whisper recognizer ready", "model", w.Model())
		return w, nil
	}
}

// newTranslator returns nil when no translator backend is configured.
func newTranslator(cfg *config.Config) (pipeline.Translator, error) {
	loader, err := translate.NewLoader(cfg.Translator)
	if err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, nil
	}
	fallback := translate.Pair{
		Source: config.NormalizeLanguage(cfg.Translator.FallbackSource),
		Target: config.NormalizeLanguage(cfg.Translator.FallbackTarget),
	}
	return translate.NewCache(loader, fallback), nil
}
