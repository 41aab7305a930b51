package config

import (
	"fmt"
	"slices"
	"strings"
)

// Model sizes accepted by the whisper recognizer.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large"}

// FFmpeg holds media tool settings.
type FFmpeg struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	SampleRate    int    `toml:"sample_rate"`
	TempDir       string `toml:"temp_dir"`
}

// Recognizer selects and configures the speech recognition backend.
type Recognizer struct {
	Backend        string `toml:"backend"` // "whisper" or "openai"
	WhisperBinary  string `toml:"whisper_binary"`
	Device         string `toml:"device"` // passed to whisper --device when set
	OpenAIBaseURL  string `toml:"openai_base_url"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIModel    string `toml:"openai_model"`
	TimeoutMinutes int    `toml:"timeout_minutes"`
}

// Translator selects and configures the machine translation backend.
type Translator struct {
	Backend         string `toml:"backend"` // "libre", "deepl" or "none"
	LibreURL        string `toml:"libre_url"`
	LibreAPIKey     string `toml:"libre_api_key"`
	DeepLURL        string `toml:"deepl_url"`
	DeepLAPIKey     string `toml:"deepl_api_key"`
	RateLimitPerMin int    `toml:"rate_limit_per_min"`
	FallbackSource  string `toml:"fallback_source"`
	FallbackTarget  string `toml:"fallback_target"`
}

// Config holds the full application configuration.
type Config struct {
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	SubtitleType   string `toml:"subtitle_type"`
	Variant        string `toml:"variant"`
	TargetLanguage string `toml:"target_language"`
	// DualLength is "truncate" or "keep"; see pipeline.DualLengthPolicy.
	DualLength string `toml:"dual_length"`
	SaveJSON   bool   `toml:"save_json"`

	FFmpeg     FFmpeg     `toml:"ffmpeg"`
	Recognizer Recognizer `toml:"recognizer"`
	Translator Translator `toml:"translator"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Model:          "base",
		Language:       "zh",
		SubtitleType:   "original",
		Variant:        "explicit",
		TargetLanguage: DefaultTargetLanguage,
		DualLength:     "truncate",
		FFmpeg: FFmpeg{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			SampleRate:    16000,
		},
		Recognizer: Recognizer{
			Backend:        "whisper",
			WhisperBinary:  "whisper",
			OpenAIBaseURL:  "https://api.openai.com/v1",
			OpenAIModel:    "whisper-1",
			TimeoutMinutes: 60,
		},
		Translator: Translator{
			Backend:         "libre",
			LibreURL:        "http://localhost:5000",
			DeepLURL:        "https://api-free.deepl.com",
			RateLimitPerMin: 120,
			FallbackSource:  "en",
			FallbackTarget:  "zh",
		},
	}
}

func (c *Config) normalize() {
	c.Model = strings.ToLower(strings.TrimSpace(c.Model))
	c.SubtitleType = strings.ToLower(strings.TrimSpace(c.SubtitleType))
	c.Variant = strings.ToLower(strings.TrimSpace(c.Variant))
	c.DualLength = strings.ToLower(strings.TrimSpace(c.DualLength))
	c.Recognizer.Backend = strings.ToLower(strings.TrimSpace(c.Recognizer.Backend))
	c.Translator.Backend = strings.ToLower(strings.TrimSpace(c.Translator.Backend))
	c.Recognizer.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Recognizer.OpenAIBaseURL), "/")
	c.Translator.LibreURL = strings.TrimRight(strings.TrimSpace(c.Translator.LibreURL), "/")
	c.Translator.DeepLURL = strings.TrimRight(strings.TrimSpace(c.Translator.DeepLURL), "/")
	if t := NormalizeLanguage(c.TargetLanguage); t != "" {
		c.TargetLanguage = t
	} else {
		c.TargetLanguage = DefaultTargetLanguage
	}
	if c.FFmpeg.SampleRate <= 0 {
		c.FFmpeg.SampleRate = 16000
	}
}

// Validate checks enumerated settings and backend credentials.
func (c *Config) Validate() error {
	if !slices.Contains(ModelSizes, c.Model) {
		return fmt.Errorf("invalid model %q (want one of %s)", c.Model, strings.Join(ModelSizes, ", "))
	}
	switch c.SubtitleType {
	case "original", "chinese", "translated", "dual":
	default:
		return fmt.Errorf("invalid subtitle type %q (want original, chinese or dual)", c.SubtitleType)
	}
	switch c.Variant {
	case "explicit", "detect":
	default:
		return fmt.Errorf("invalid variant %q (want explicit or detect)", c.Variant)
	}
	switch c.DualLength {
	case "truncate", "keep":
	default:
		return fmt.Errorf("invalid dual_length %q (want truncate or keep)", c.DualLength)
	}

	switch c.Recognizer.Backend {
	case "whisper":
		if strings.TrimSpace(c.Recognizer.WhisperBinary) == "" {
			return fmt.Errorf("recognizer.whisper_binary is required")
		}
	case "openai":
		if c.Recognizer.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai recognizer")
		}
	default:
		return fmt.Errorf("invalid recognizer backend %q (want whisper or openai)", c.Recognizer.Backend)
	}

	switch c.Translator.Backend {
	case "libre":
		if c.Translator.LibreURL == "" {
			return fmt.Errorf("translator.libre_url is required for the libre translator")
		}
	case "deepl":
		if c.Translator.DeepLAPIKey == "" {
			return fmt.Errorf("DEEPL_API_KEY is required for the deepl translator")
		}
	case "none":
		if c.Variant == "detect" && c.SubtitleType != "original" {
			return fmt.Errorf("variant detect with subtitle type %q needs a translator", c.SubtitleType)
		}
	default:
		return fmt.Errorf("invalid translator backend %q (want libre, deepl or none)", c.Translator.Backend)
	}

	if c.Translator.RateLimitPerMin <= 0 {
		return fmt.Errorf("translator.rate_limit_per_min must be positive")
	}
	return nil
}
