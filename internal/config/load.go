package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override file settings.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvDeepLKey      = "DEEPL_API_KEY"
	EnvLibreURL      = "LIBRETRANSLATE_URL"
	EnvLibreKey      = "LIBRETRANSLATE_API_KEY"
	EnvFFmpeg        = "SPEECH2SRT_FFMPEG"
	EnvWhisper       = "SPEECH2SRT_WHISPER"
)

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/speech2srt/config.toml")
}

// Load builds a Config from defaults, an optional TOML file, .env files and the
// process environment, in that order of precedence (later wins). It returns
// the resolved file path and whether the file existed. The result is not
// validated; call Finalize after applying command-line overrides.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	loadDotEnv()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates the configuration.
func (c *Config) Finalize() error {
	c.normalize()
	return c.Validate()
}

// loadDotEnv reads ./.env and ~/.config/speech2srt/.env when present. Values
// already set in the environment are kept.
func loadDotEnv() {
	candidates := []string{".env"}
	if p, err := expandPath("~/.config/speech2srt/.env"); err == nil {
		candidates = append(candidates, p)
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Recognizer.OpenAIAPIKey, EnvOpenAIKey)
	setFromEnv(&c.Recognizer.OpenAIBaseURL, EnvOpenAIBaseURL)
	setFromEnv(&c.Translator.DeepLAPIKey, EnvDeepLKey)
	setFromEnv(&c.Translator.LibreURL, EnvLibreURL)
	setFromEnv(&c.Translator.LibreAPIKey, EnvLibreKey)
	setFromEnv(&c.FFmpeg.FFmpegBinary, EnvFFmpeg)
	setFromEnv(&c.Recognizer.WhisperBinary, EnvWhisper)
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("speech2srt.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
