package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"speech2srt/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	for _, key := range []string{
		config.EnvOpenAIKey, config.EnvOpenAIBaseURL, config.EnvDeepLKey,
		config.EnvLibreURL, config.EnvLibreKey, config.EnvFFmpeg, config.EnvWhisper,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file in temp HOME")
	}
	if !strings.HasSuffix(resolved, filepath.Join(".config", "speech2srt", "config.toml")) {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Model != "base" {
		t.Fatalf("Model = %q, want base", cfg.Model)
	}
	if cfg.Language != "zh" || cfg.TargetLanguage != "zh" {
		t.Fatalf("unexpected languages: %q / %q", cfg.Language, cfg.TargetLanguage)
	}
	if cfg.Recognizer.Backend != "whisper" || cfg.Translator.Backend != "libre" {
		t.Fatalf("unexpected backends: %q / %q", cfg.Recognizer.Backend, cfg.Translator.Backend)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	content := `
model = "Small"
subtitle_type = "dual"
target_language = "zh-CN"

[translator]
backend = "deepl"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvDeepLKey, "secret")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file %q to be used, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Model != "small" {
		t.Fatalf("Model = %q, want small", cfg.Model)
	}
	if cfg.TargetLanguage != "zh" {
		t.Fatalf("TargetLanguage = %q, want zh", cfg.TargetLanguage)
	}
	if cfg.Translator.DeepLAPIKey != "secret" {
		t.Fatalf("expected DeepL key from env, got %q", cfg.Translator.DeepLAPIKey)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Recognizer.OpenAIAPIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.Recognizer.OpenAIAPIKey)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("modle = \"base\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	dir := isolate(t)
	if _, _, _, err := config.Load(filepath.Join(dir, "absent.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"bad model", func(c *config.Config) { c.Model = "huge" }, "invalid model"},
		{"bad subtitle type", func(c *config.Config) { c.SubtitleType = "triple" }, "invalid subtitle type"},
		{"translated alias", func(c *config.Config) { c.SubtitleType = "translated" }, ""},
		{"bad variant", func(c *config.Config) { c.Variant = "magic" }, "invalid variant"},
		{"bad dual length", func(c *config.Config) { c.DualLength = "pad" }, "invalid dual_length"},
		{"openai without key", func(c *config.Config) { c.Recognizer.Backend = "openai" }, "OPENAI_API_KEY"},
		{"deepl without key", func(c *config.Config) { c.Translator.Backend = "deepl" }, "DEEPL_API_KEY"},
		{"detect needs translator", func(c *config.Config) {
			c.Variant = "detect"
			c.SubtitleType = "chinese"
			c.Translator.Backend = "none"
		}, "needs a translator"},
		{"detect original without translator", func(c *config.Config) {
			c.Variant = "detect"
			c.Translator.Backend = "none"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Finalize()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"zh", "zh"},
		{"ZH", "zh"},
		{"zh-CN", "zh"},
		{"en-US", "en"},
		{"Chinese", "zh"},
		{"english", "en"},
		{"auto", ""},
		{"", ""},
		{"  fr ", "fr"},
		{"!!", ""},
	}
	for _, tt := range tests {
		if got := config.NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
