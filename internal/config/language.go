package config

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultTargetLanguage is the language translated subtitles are written in
// unless configured otherwise.
const DefaultTargetLanguage = "zh"

// languageNames maps the full names some recognizers report (OpenAI's
// verbose_json uses "english", "chinese", ...) to ISO 639-1 codes.
var languageNames = map[string]string{
	"english":    "en",
	"chinese":    "zh",
	"mandarin":   "zh",
	"cantonese":  "yue",
	"japanese":   "ja",
	"korean":     "ko",
	"french":     "fr",
	"german":     "de",
	"spanish":    "es",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"turkish":    "tr",
	"ukrainian":  "uk",
	"vietnamese": "vi",
	"thai":       "th",
	"indonesian": "id",
}

// NormalizeLanguage reduces a language code, BCP 47 tag or English language
// name to its base ISO 639-1 code ("zh-CN" -> "zh", "zho" -> "zh",
// "Chinese" -> "zh"). Empty, "auto" and unparseable input yield "".
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "", "auto", "und":
		return ""
	}
	if mapped, ok := languageNames[code]; ok {
		return mapped
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}
