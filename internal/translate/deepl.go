package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// deeplLanguages maps ISO 639-1 codes to DeepL source codes.
var deeplLanguages = map[string]string{
	"ar": "AR",
	"bg": "BG",
	"cs": "CS",
	"da": "DA",
	"de": "DE",
	"el": "EL",
	"en": "EN",
	"es": "ES",
	"et": "ET",
	"fi": "FI",
	"fr": "FR",
	"hu": "HU",
	"id": "ID",
	"it": "IT",
	"ja": "JA",
	"ko": "KO",
	"lt": "LT",
	"lv": "LV",
	"nb": "NB",
	"nl": "NL",
	"pl": "PL",
	"pt": "PT",
	"ro": "RO",
	"ru": "RU",
	"sk": "SK",
	"sl": "SL",
	"sv": "SV",
	"tr": "TR",
	"uk": "UK",
	"zh": "ZH",
}

// Target codes that DeepL only accepts with a regional variant.
var deeplTargetOverrides = map[string]string{
	"en": "EN-US",
	"pt": "PT-BR",
}

// DeepL translates through the DeepL v2 API.
type DeepL struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewDeepL returns a Loader for the DeepL API at baseURL
// (https://api-free.deepl.com or https://api.deepl.com).
func NewDeepL(baseURL, apiKey string, ratePerMin int) *DeepL {
	return &DeepL{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
		limiter: newLimiter(ratePerMin),
	}
}

// Load validates pair against the languages DeepL supports.
func (d *DeepL) Load(_ context.Context, pair Pair) (Model, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("DeepL API key not configured")
	}
	source := ""
	if pair.Source != "" {
		code, ok := deeplLanguages[pair.Source]
		if !ok {
			return nil, fmt.Errorf("deepl: source language %q not supported", pair.Source)
		}
		source = code
	}
	target, ok := deeplTargetOverrides[pair.Target]
	if !ok {
		if target, ok = deeplLanguages[pair.Target]; !ok {
			return nil, fmt.Errorf("deepl: target language %q not supported", pair.Target)
		}
	}
	return &deeplModel{client: d, source: source, target: target}, nil
}

type deeplModel struct {
	client *DeepL
	source string
	target string
}

func (m *deeplModel) Translate(ctx context.Context, text string) (string, error) {
	d := m.client
	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	form := url.Values{}
	form.Add("text", text)
	form.Set("target_lang", m.target)
	if m.source != "" {
		form.Set("source_lang", m.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/translate",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("DeepL API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DeepL API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("DeepL returned no translations")
	}
	return parsed.Translations[0].Text, nil
}
