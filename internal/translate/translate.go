// Package translate implements pipeline.Translator on top of machine
// translation services.
//
// A Cache owns one Model per (source, target) language pair. Models are
// produced lazily by a Loader the first time a pair is requested and reused
// for the rest of the process. When a pair cannot be loaded the Cache falls
// back to a fixed default pair.
package translate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"speech2srt/internal/config"
)

// Pair is a source/target language pair in ISO 639-1 codes.
type Pair struct {
	Source string
	Target string
}

func (p Pair) String() string {
	src := p.Source
	if src == "" {
		src = "auto"
	}
	return src + "->" + p.Target
}

// DefaultPair is used when the requested pair cannot be loaded.
var DefaultPair = Pair{Source: "en", Target: config.DefaultTargetLanguage}

// Model translates text for the pair it was loaded for.
type Model interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Loader loads a Model for a language pair. Load fails when the backend does
// not support the pair or cannot be reached.
type Loader interface {
	Load(ctx context.Context, pair Pair) (Model, error)
}

// NewLoader builds the backend selected by cfg.Backend. It returns a nil
// Loader for backend "none".
func NewLoader(cfg config.Translator) (Loader, error) {
	switch cfg.Backend {
	case "libre":
		return NewLibreTranslate(cfg.LibreURL, cfg.LibreAPIKey, cfg.RateLimitPerMin), nil
	case "deepl":
		return NewDeepL(cfg.DeepLURL, cfg.DeepLAPIKey, cfg.RateLimitPerMin), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown translator backend %q", cfg.Backend)
	}
}

// newLimiter converts a per-minute budget into a token bucket of size 1.
func newLimiter(perMin int) *rate.Limiter {
	if perMin <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
}
