package recognize

import (
	"net/http"
)

// Version is reported in the User-Agent of API requests. Set at build time
// via -ldflags "-X speech2srt/internal/recognize.Version=...".
var Version = "dev"

// Common request headers.
var baseHeaders = map[string]string{
	"accept": "application/json",
	// Note: Do NOT set Accept-Encoding manually. Go's http.Transport handles
	// gzip automatically and transparently decompresses the response body,
	// but only when Accept-Encoding is not set by the caller.
}

// requestHeaders returns the headers sent with every API request.
func requestHeaders(apiKey string) http.Header {
	h := make(http.Header)
	for k, v := range baseHeaders {
		h.Set(k, v)
	}
	h.Set("User-Agent", "speech2srt/"+Version)
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}
