package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"speech2srt/internal/pipeline"
)

// Cache is a pipeline.Translator that loads one Model per language pair on
// first use and keeps it for the lifetime of the Cache.
type Cache struct {
	loader   Loader
	fallback Pair

	mu     sync.Mutex
	models map[Pair]Model
	group  singleflight.Group
}

// NewCache returns a Cache that falls back to fallback when a pair fails to
// load. A zero fallback means DefaultPair.
func NewCache(loader Loader, fallback Pair) *Cache {
	if fallback.Target == "" {
		fallback = DefaultPair
	}
	return &Cache{
		loader:   loader,
		fallback: fallback,
		models:   make(map[Pair]Model),
	}
}

// Translate returns text translated from sourceLang to targetLang. Empty text
// is returned as-is without loading a model. On failure the original text is
// returned together with an error wrapping pipeline.ErrTranslation, so callers
// can keep going with untranslated output.
func (c *Cache) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	pair := Pair{Source: sourceLang, Target: targetLang}
	model, err := c.model(ctx, pair)
	if err != nil {
		return text, fmt.Errorf("%w: %s: %w", pipeline.ErrTranslation, pair, err)
	}

	out, err := model.Translate(ctx, text)
	if err != nil {
		return text, fmt.Errorf("%w: %s: %w", pipeline.ErrTranslation, pair, err)
	}
	return out, nil
}

// Loaded returns the pairs that currently have a cached model.
func (c *Cache) Loaded() []Pair {
	c.mu.Lock()
	defer c.mu.Unlock()
	pairs := make([]Pair, 0, len(c.models))
	for p := range c.models {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b Pair) int {
		return strings.Compare(a.String(), b.String())
	})
	return pairs
}

func (c *Cache) lookup(pair Pair) (Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[pair]
	return m, ok
}

func (c *Cache) model(ctx context.Context, pair Pair) (Model, error) {
	if m, ok := c.lookup(pair); ok {
		return m, nil
	}

	v, err, _ := c.group.Do(pair.String(), func() (any, error) {
		if m, ok := c.lookup(pair); ok {
			return m, nil
		}

		slog.Info("loading translation model", "pair", pair.String())
		m, err := c.loader.Load(ctx, pair)
		if err != nil {
			if pair == c.fallback {
				return nil, err
			}
			slog.Warn("translation model unavailable, using fallback pair",
				"requested", pair.String(), "fallback", c.fallback.String(), "err", err)

			fb, fbErr := c.loader.Load(ctx, c.fallback)
			if fbErr != nil {
				return nil, errors.Join(err, fmt.Errorf("fallback %s: %w", c.fallback, fbErr))
			}
			m = fb
		}

		// The fallback model is stored under the requested pair, so later
		// calls for the same pair do not retry the failed load.
		c.mu.Lock()
		c.models[pair] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Model), nil
}
