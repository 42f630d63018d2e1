// Package openai provides a transcription provider backed by the OpenAI
// audio transcription API (Whisper).
package openai

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
)

// DefaultModel is the transcription model used when none is configured. It
// is the only hosted model that supports the verbose_json format.
const DefaultModel = oai.AudioModelWhisper1

// defaultFilename is reported for uploads whose request carries no name.
const defaultFilename = "audio.wav"

// Ensure Provider implements the transcribe.Provider interface.
var _ transcribe.Provider = (*Provider)(nil)

// Provider implements transcribe.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
	httpClient   *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client used for API calls, e.g. to install
// an instrumented transport. A timeout set via [WithTimeout] is applied to a
// copy of the client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New constructs a new OpenAI transcription Provider.
// If model is empty, DefaultModel (whisper-1) is used.
//
// The SDK's automatic retries are disabled: a failed call is reported once.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai transcribe: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.httpClient != nil || cfg.timeout > 0 {
		hc := &http.Client{}
		if cfg.httpClient != nil {
			copied := *cfg.httpClient
			hc = &copied
		}
		if cfg.timeout > 0 {
			hc.Timeout = cfg.timeout
		}
		reqOpts = append(reqOpts, option.WithHTTPClient(hc))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// ModelID returns the configured model.
func (p *Provider) ModelID() string {
	return p.model
}

// Transcribe implements transcribe.Provider.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (*transcribe.Response, error) {
	if req.Audio == nil {
		return nil, errors.New("openai transcribe: audio must not be nil")
	}
	format := req.Format
	if format == "" {
		format = transcribe.FormatVerboseJSON
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("openai transcribe: unsupported response format %q", format)
	}
	name := req.Filename
	if name == "" {
		name = defaultFilename
	}

	params := oai.AudioTranscriptionNewParams{
		File:           oai.File(req.Audio, filepath.Base(name), contentType(name)),
		Model:          p.model,
		ResponseFormat: oai.AudioResponseFormat(format),
	}
	if format == transcribe.FormatVerboseJSON {
		params.TimestampGranularities = []string{"segment"}
	}
	if req.Language != "" {
		params.Language = param.NewOpt(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = param.NewOpt(req.Prompt)
	}

	// Decode the body ourselves: the SDK's Transcription type only exposes
	// the text, and segment records must be checked field by field.
	var body []byte
	if _, err := p.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&body)); err != nil {
		return nil, classify(err)
	}

	resp, err := transcribe.DecodeVerbose(body)
	if err != nil {
		return nil, fmt.Errorf("openai transcribe: %w", err)
	}
	return resp, nil
}

// classify maps SDK errors onto the transcribe error taxonomy.
func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		detail := apiErr.Message
		if detail == "" {
			detail = http.StatusText(apiErr.StatusCode)
		}
		return transcribe.StatusError("openai transcribe", apiErr.StatusCode, detail)
	}
	return fmt.Errorf("openai transcribe: %w: %w", transcribe.ErrProvider, err)
}

// audioTypes covers the containers the API accepts; the system MIME table
// often lacks them.
var audioTypes = map[string]string{
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".mp4":  "audio/mp4",
	".mpeg": "audio/mpeg",
	".mpga": "audio/mpeg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

// contentType guesses the upload MIME type from the file extension.
func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
