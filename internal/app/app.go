// Package app runs the subtitler pipeline: open the audio file, send it to
// the configured transcription provider, normalise the returned segments and
// persist them as subtitle JSON.
//
// The App struct owns no long-lived subsystems. New validates its inputs and
// Run executes one pass over the pipeline. For testing, inject a mock
// provider and metrics via the constructor and functional options.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/subtitler/internal/config"
	"github.com/MrWong99/subtitler/internal/observe"
	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
	"github.com/MrWong99/subtitler/pkg/subtitle"
)

// ErrIO wraps failures reading the audio file or writing the subtitle file.
var ErrIO = errors.New("app: i/o error")

// Console messages shown to the user around the upload.
const (
	progressMessage = "📤 Transcribing audio with segment timestamps..."
	savedMessage    = "✅ Saved subtitle file %s\n"
)

// App runs the transcription pipeline for a single configuration.
type App struct {
	cfg      *config.Config
	provider transcribe.Provider
	metrics  *observe.Metrics
	console  io.Writer
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics records pipeline metrics on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithConsole sends user-facing progress lines to w instead of os.Stdout.
func WithConsole(w io.Writer) Option {
	return func(a *App) { a.console = w }
}

// New creates an App for cfg that transcribes through provider. cfg must
// already be validated (see [config.Load]).
func New(cfg *config.Config, provider transcribe.Provider, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if provider == nil {
		return nil, errors.New("app: provider must not be nil")
	}
	a := &App{
		cfg:      cfg,
		provider: provider,
		console:  os.Stdout,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a, nil
}

// Run performs one pass over the pipeline. The output file is only opened
// once every segment has been normalised, so a provider or data-shape error
// leaves any previous output untouched. The audio file is closed on every
// exit path.
func (a *App) Run(ctx context.Context) (err error) {
	ctx, span := observe.StartSpan(ctx, "subtitler.run",
		trace.WithAttributes(
			attribute.String("subtitler.input", a.cfg.Input),
			attribute.String("subtitler.output", a.cfg.Output),
			attribute.String("subtitler.provider", a.cfg.Provider.Name),
		),
	)
	defer func() { observe.EndSpan(span, err) }()
	log := observe.Logger(ctx)

	f, err := os.Open(a.cfg.Input)
	if err != nil {
		return fmt.Errorf("%w: open audio: %w", ErrIO, err)
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil {
		a.metrics.AudioBytes.Record(ctx, st.Size(),
			metric.WithAttributes(observe.Attr("provider", a.cfg.Provider.Name)))
		log.Debug("audio opened", "path", a.cfg.Input, "bytes", st.Size())
	}

	fmt.Fprintln(a.console, progressMessage)
	resp, err := a.transcribe(ctx, f)
	if err != nil {
		return err
	}

	segs, err := subtitle.Normalize(resp)
	if err != nil {
		return fmt.Errorf("app: normalize segments: %w", err)
	}

	if err := subtitle.WriteFile(a.cfg.Output, segs); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	a.metrics.RecordSegmentsWritten(ctx, len(segs))

	log.Info("subtitles written", "output", a.cfg.Output, "segments", len(segs))
	fmt.Fprintf(a.console, savedMessage, a.cfg.Output)
	return nil
}

// transcribe makes the single provider call. It is never retried.
func (a *App) transcribe(ctx context.Context, audio io.Reader) (*transcribe.Response, error) {
	name := a.cfg.Provider.Name
	ctx, span := observe.StartSpan(ctx, "transcribe",
		trace.WithAttributes(attribute.String("provider", name)),
	)

	start := time.Now()
	resp, err := a.provider.Transcribe(ctx, transcribe.Request{
		Audio:    audio,
		Filename: filepath.Base(a.cfg.Input),
		Language: a.cfg.Provider.Language,
		Prompt:   a.cfg.Provider.Prompt,
		Format:   transcribe.FormatVerboseJSON,
	})
	elapsed := time.Since(start)
	a.metrics.RecordTranscription(ctx, name, elapsed.Seconds())
	observe.EndSpan(span, err)

	if err != nil {
		a.metrics.RecordProviderRequest(ctx, name, "transcribe", "error")
		a.metrics.RecordProviderError(ctx, name, errorKind(err))
		return nil, fmt.Errorf("app: transcribe %q: %w", a.cfg.Input, err)
	}
	a.metrics.RecordProviderRequest(ctx, name, "transcribe", "ok")
	if resp == nil {
		return nil, fmt.Errorf("app: transcribe %q: %w: empty response", a.cfg.Input, transcribe.ErrDataShape)
	}

	observe.Logger(ctx).Debug("transcription received",
		"provider", name,
		"segments", len(resp.Segments),
		"language", resp.Language,
		"audio_duration", resp.Duration,
		"elapsed", elapsed,
	)
	return resp, nil
}

// errorKind labels a provider error for the errors counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, transcribe.ErrAuthentication):
		return "authentication"
	case errors.Is(err, transcribe.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, transcribe.ErrInvalidAudio):
		return "invalid_audio"
	case errors.Is(err, transcribe.ErrDataShape):
		return "data_shape"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "provider"
}
