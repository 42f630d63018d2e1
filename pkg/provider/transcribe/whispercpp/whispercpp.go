// Package whispercpp provides a transcription provider backed by a running
// whisper.cpp server (the whisper-server binary).
//
// The server exposes POST /inference, which accepts a multipart upload and,
// with response_format=verbose_json, answers with the same segment-level
// payload shape as the hosted OpenAI API. No credential is required.
//
// Usage:
//
//	p, err := whispercpp.New("http://localhost:8080",
//	    whispercpp.WithLanguage("ja"),
//	)
//	resp, err := p.Transcribe(ctx, transcribe.Request{Audio: f, Filename: "a.wav"})
package whispercpp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
)

const (
	defaultTimeout  = 10 * time.Minute
	defaultFilename = "audio.wav"

	// maxErrorBody caps how much of a failed response is echoed into errors.
	maxErrorBody = 4 << 10
)

// Compile-time assertion that Provider implements transcribe.Provider.
var _ transcribe.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the server. When empty the
// server uses whichever model it was started with. This is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default language code sent to the server when a
// request carries none (e.g. "en", "ja"). Empty lets the server auto-detect.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithHTTPClient replaces the HTTP client used for inference requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout. Defaults to 10 minutes, since a
// batch inference over a long recording is slow on CPU.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// Provider implements transcribe.Provider backed by a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a Provider that talks to the whisper.cpp server at serverURL
// (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whispercpp: serverURL must not be empty")
	}
	p := &Provider{
		serverURL: strings.TrimRight(serverURL, "/"),
		timeout:   defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{}
	} else {
		copied := *p.httpClient
		p.httpClient = &copied
	}
	p.httpClient.Timeout = p.timeout
	return p, nil
}

// Transcribe implements transcribe.Provider. It uploads req.Audio to the
// /inference endpoint as multipart/form-data and decodes the verbose_json
// answer.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (*transcribe.Response, error) {
	if req.Audio == nil {
		return nil, errors.New("whispercpp: audio must not be nil")
	}
	format := req.Format
	if format == "" {
		format = transcribe.FormatVerboseJSON
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("whispercpp: unsupported response format %q", format)
	}
	name := req.Filename
	if name == "" {
		name = defaultFilename
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("whispercpp: create form file: %w", err)
	}
	if _, err := io.Copy(fw, req.Audio); err != nil {
		return nil, fmt.Errorf("whispercpp: read audio: %w", err)
	}

	fields := [][2]string{{"response_format", string(format)}}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	if lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	if p.model != "" {
		fields = append(fields, [2]string{"model", p.model})
	}
	if req.Prompt != "" {
		fields = append(fields, [2]string{"prompt", req.Prompt})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("whispercpp: write %s field: %w", f[0], err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("whispercpp: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: %w: http request: %w", transcribe.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, transcribe.StatusError("whispercpp", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: %w: read response body: %w", transcribe.ErrProvider, err)
	}

	out, err := transcribe.DecodeVerbose(data)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: %w", err)
	}
	return out, nil
}
