package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LibreTranslate talks to a LibreTranslate server.
type LibreTranslate struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu        sync.Mutex
	languages map[string][]string // source code -> target codes
}

// NewLibreTranslate returns a Loader for the server at baseURL.
func NewLibreTranslate(baseURL, apiKey string, ratePerMin int) *LibreTranslate {
	return &LibreTranslate{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		limiter:    newLimiter(ratePerMin),
	}
}

type libreLanguage struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

// Load checks that the server supports pair and returns a Model for it.
// An empty source means "auto".
func (l *LibreTranslate) Load(ctx context.Context, pair Pair) (Model, error) {
	langs, err := l.supported(ctx)
	if err != nil {
		return nil, err
	}
	if pair.Source != "" {
		targets, ok := langs[pair.Source]
		if !ok {
			return nil, fmt.Errorf("libretranslate: source language %q not supported", pair.Source)
		}
		// Older servers omit targets; treat that as "any known language".
		if len(targets) > 0 && !slices.Contains(targets, pair.Target) {
			return nil, fmt.Errorf("libretranslate: %s not supported", pair)
		}
	}
	if _, ok := langs[pair.Target]; !ok {
		return nil, fmt.Errorf("libretranslate: target language %q not supported", pair.Target)
	}
	return &libreModel{client: l, pair: pair}, nil
}

// supported fetches /languages once per LibreTranslate value.
func (l *LibreTranslate) supported(ctx context.Context) (map[string][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.languages != nil {
		return l.languages, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/languages", nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("libretranslate languages: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("libretranslate languages (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var list []libreLanguage
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse languages: %w", err)
	}
	langs := make(map[string][]string, len(list))
	for _, lang := range list {
		langs[lang.Code] = lang.Targets
	}
	l.languages = langs
	return langs, nil
}

type libreModel struct {
	client *LibreTranslate
	pair   Pair
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func (m *libreModel) Translate(ctx context.Context, text string) (string, error) {
	l := m.client
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	source := m.pair.Source
	if source == "" {
		source = "auto"
	}
	payload, err := json.Marshal(libreRequest{
		Q:      text,
		Source: source,
		Target: m.pair.Target,
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("libretranslate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed libreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("libretranslate (status %d): parse response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("libretranslate (status %d): %s", resp.StatusCode, parsed.Error)
	}
	return strings.TrimSpace(parsed.TranslatedText), nil
}
