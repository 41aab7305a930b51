package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"speech2srt/internal/pipeline"
)

// ProgressFunc is called with (bytesRead, totalBytes) during upload.
type ProgressFunc func(bytesRead, totalBytes int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	callback ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.read += int64(n)
	if pr.callback != nil {
		pr.callback(pr.read, pr.total)
	}
	return n, err
}

// mimeFromExt returns the MIME type for common audio extensions.
func mimeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/m4a"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// OpenAI recognizes speech through an OpenAI-compatible audio API.
type OpenAI struct {
	baseURL  string
	apiKey   string
	model    string
	client   *http.Client
	progress ProgressFunc
}

// NewOpenAI returns a recognizer for baseURL (e.g. https://api.openai.com/v1).
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) *OpenAI {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithProgress sets the upload progress callback.
func (o *OpenAI) WithProgress(fn ProgressFunc) *OpenAI {
	o.progress = fn
	return o
}

// Model returns the configured remote model name.
func (o *OpenAI) Model() string {
	return o.model
}

type verboseResponse struct {
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
	Text     string       `json:"text"`
	Segments []rawSegment `json:"segments"`
}

// Transcribe uploads audioPath and returns the recognized segments. Task
// translate uses the /audio/translations endpoint, which always produces the
// service's pivot language and ignores opts.Language.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string, opts pipeline.TranscribeOptions) (*pipeline.Transcript, error) {
	if err := checkInput(audioPath); err != nil {
		return nil, err
	}
	task := taskOrDefault(opts.Task)

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open file: %w", pipeline.ErrTranscription, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat file: %w", pipeline.ErrTranscription, err)
	}

	// Build multipart form body using a pipe.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		err := writeForm(mw, f, audioPath, o.model, opts.Language, task)
		mw.Close()
		pw.CloseWithError(err)
		errCh <- err
	}()

	// Estimate total size: file size + ~1KB form overhead.
	body := &progressReader{
		reader:   pr,
		total:    stat.Size() + 1024,
		callback: o.progress,
	}

	endpoint := o.baseURL + "/audio/transcriptions"
	if task == pipeline.TaskTranslate {
		endpoint = o.baseURL + "/audio/translations"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("%w: create request: %w", pipeline.ErrTranscription, err)
	}
	req.Header = requestHeaders(o.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.client.Do(req)
	// The server may answer before consuming the upload. Closing the reader
	// unblocks the form writer either way.
	pr.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: HTTP request failed: %w", pipeline.ErrTranscription, err)
	}
	defer resp.Body.Close()

	writeErr := <-errCh
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: API returned status %d: %s", pipeline.ErrTranscription, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if writeErr != nil {
		return nil, fmt.Errorf("%w: multipart write error: %w", pipeline.ErrTranscription, writeErr)
	}

	var parsed verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", pipeline.ErrTranscription, err)
	}

	segments := toSegments(parsed.Segments)
	if len(segments) == 0 && strings.TrimSpace(parsed.Text) != "" && parsed.Duration > 0 {
		// Some compatible servers omit segments for short clips.
		segments = []pipeline.Segment{{Text: strings.TrimSpace(parsed.Text), Start: 0, End: parsed.Duration}}
	}

	return &pipeline.Transcript{Language: parsed.Language, Segments: segments}, nil
}

func writeForm(mw *multipart.Writer, f io.Reader, audioPath, model, language string, task pipeline.Task) error {
	if err := mw.WriteField("model", model); err != nil {
		return err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return err
	}
	if err := mw.WriteField("temperature", "0"); err != nil {
		return err
	}
	if language != "" && task == pipeline.TaskTranscribe {
		if err := mw.WriteField("language", language); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(audioPath)))
	h.Set("Content-Type", mimeFromExt(filepath.Ext(audioPath)))
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
