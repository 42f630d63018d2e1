// Package config provides the configuration schema, loader, and provider
// registry for the subtitler command.
//
// A run needs no configuration file: every field has a default and the only
// required input is the OPENAI_API_KEY credential, read from the process
// environment (optionally populated from a local .env file).
package config

import (
	"time"

	"github.com/MrWong99/subtitler/pkg/subtitle"
)

const (
	// EnvAPIKey is the environment variable holding the OpenAI credential.
	EnvAPIKey = "OPENAI_API_KEY"

	// DefaultEnvFile is loaded into the environment at startup if present.
	DefaultEnvFile = ".env"

	// DefaultConfigFile is decoded at startup if present.
	DefaultConfigFile = "subtitler.yaml"

	// DefaultInput is the audio file transcribed when none is configured.
	DefaultInput = "assets/audio/introduction.wav"

	// DefaultOutput is the subtitle file written when none is configured.
	DefaultOutput = subtitle.DefaultFilename

	// DefaultProvider selects the hosted OpenAI backend.
	DefaultProvider = ProviderOpenAI
)

// Built-in provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderWhisperCPP = "whisper-cpp"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration for a subtitler run.
// It is typically produced by [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// Input is the path of the audio file to transcribe.
	Input string `yaml:"input"`

	// Output is the path of the subtitle JSON file to (over)write.
	Output string `yaml:"output"`

	// MetricsTextfile, when set, receives a Prometheus text-format dump of
	// the run's metrics after the pipeline finishes.
	MetricsTextfile string `yaml:"metrics_textfile"`

	// Provider selects and configures the transcription backend.
	Provider ProviderEntry `yaml:"provider"`

	// Source is the file the config was read from, or empty when no file
	// was found and the defaults apply. Set by [Load].
	Source string `yaml:"-"`
}

// ProviderEntry is the configuration block for the transcription backend.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation ("openai",
	// "whisper-cpp").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API. For the
	// openai provider it is overridden by OPENAI_API_KEY when that is set.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. Required for
	// whisper-cpp.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1").
	Model string `yaml:"model"`

	// Language is an optional ISO-639-1 hint for the audio language.
	Language string `yaml:"language"`

	// Prompt is optional text guiding spelling and style.
	Prompt string `yaml:"prompt"`

	// Timeout bounds the HTTP request. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// requiresAPIKey reports whether the named provider needs a credential.
func requiresAPIKey(name string) bool {
	return name == ProviderOpenAI
}
