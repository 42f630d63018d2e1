// Command subtitler transcribes an audio file with segment timestamps and
// writes subtitle_segments.json for the subtitle renderer.
//
// It takes no flags. The OPENAI_API_KEY credential comes from the
// environment or a .env file in the working directory; an optional
// subtitler.yaml overrides the input/output paths and provider settings.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/subtitler/internal/app"
	"github.com/MrWong99/subtitler/internal/config"
	"github.com/MrWong99/subtitler/internal/observe"
	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
	"github.com/MrWong99/subtitler/pkg/provider/transcribe/openai"
	"github.com/MrWong99/subtitler/pkg/provider/transcribe/whispercpp"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

// initTelemetry is replaced in tests.
var initTelemetry = observe.InitProvider

func main() {
	os.Exit(run())
}

func run() int {
	// ── Load configuration ────────────────────────────────────────────────────
	envLoaded, err := config.LoadEnvFile(config.DefaultEnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subtitler: %v\n", err)
		return app.Classify(err).ExitCode()
	}

	cfg, err := config.Load(config.DefaultConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subtitler: %v\n", err)
		return app.Classify(err).ExitCode()
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.LogLevel))

	slog.Info("subtitler starting",
		"version", version,
		"input", cfg.Input,
		"output", cfg.Output,
		"provider", cfg.Provider.Name,
		"env_file", envLoaded,
		"config_file", cfg.Source,
	)
	if cfg.Source == "" {
		slog.Debug("no config file, using defaults", "path", config.DefaultConfigFile)
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	// Telemetry is optional: a setup failure only costs the metrics.
	metrics := observe.DefaultMetrics()
	tel, err := initTelemetry(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Warn("telemetry disabled", "err", err)
		tel = nil
	} else {
		metrics = tel.Metrics
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry shutdown error", "err", err)
			}
		}()
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	httpClient := &http.Client{Transport: observe.Transport(metrics, nil)}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, httpClient)

	provider, err := reg.CreateTranscriber(cfg.Provider)
	if err != nil {
		slog.Error("failed to build provider", "name", cfg.Provider.Name, "err", err)
		return app.KindConfig.ExitCode()
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	application, err := app.New(cfg, provider, app.WithMetrics(metrics))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return app.KindUnexpected.ExitCode()
	}

	runCtx, span := observe.StartSpan(ctx, "subtitler")
	runErr := application.Run(runCtx)
	observe.EndSpan(span, runErr)
	kind := app.Classify(runErr)
	if runErr != nil {
		logRunFailure(runCtx, kind, runErr)
	}

	switch {
	case cfg.MetricsTextfile == "":
	case tel == nil:
		slog.Warn("metrics textfile skipped, telemetry disabled", "path", cfg.MetricsTextfile)
	default:
		if err := tel.WriteTextfile(cfg.MetricsTextfile); err != nil {
			slog.Warn("failed to write metrics", "err", err)
		}
	}
	return kind.ExitCode()
}

// logRunFailure reports a failed run with the trace it belongs to.
func logRunFailure(ctx context.Context, kind app.Kind, err error) {
	slog.Error("run failed", "kind", kind, "trace_id", observe.CorrelationID(ctx), "err", err)
	if errors.Is(err, transcribe.ErrAuthentication) {
		slog.Error("the provider rejected the API key; check " + config.EnvAPIKey)
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the built-in transcription backends into
// reg. Every backend shares hc so outgoing calls are traced and timed.
func registerBuiltinProviders(reg *config.Registry, hc *http.Client) {
	reg.RegisterTranscriber(config.ProviderOpenAI, func(entry config.ProviderEntry) (transcribe.Provider, error) {
		opts := []openai.Option{openai.WithHTTPClient(hc)}
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(entry.Timeout))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTranscriber(config.ProviderWhisperCPP, func(entry config.ProviderEntry) (transcribe.Provider, error) {
		opts := []whispercpp.Option{whispercpp.WithHTTPClient(hc)}
		if entry.Model != "" {
			opts = append(opts, whispercpp.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whispercpp.WithLanguage(entry.Language))
		}
		if entry.Timeout > 0 {
			opts = append(opts, whispercpp.WithTimeout(entry.Timeout))
		}
		return whispercpp.New(entry.BaseURL, opts...)
	})

	for _, name := range reg.Transcribers() {
		slog.Debug("registered provider", "kind", "transcriber", "name", name)
	}
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
