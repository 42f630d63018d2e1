package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalid is wrapped by every configuration validation and parse error.
	ErrInvalid = errors.New("config: invalid configuration")

	// ErrMissingCredential is returned when the selected provider needs an
	// API key and none is configured.
	ErrMissingCredential = errors.New("config: missing API credential")

	// ErrInvalidCredential is returned when the configured API key cannot be
	// a valid credential (e.g. it contains whitespace).
	ErrInvalidCredential = errors.New("config: malformed API credential")
)

// ValidProviderNames lists the known transcription provider names.
var ValidProviderNames = []string{ProviderOpenAI, ProviderWhisperCPP}

// LoadEnvFile loads KEY=value pairs from path into the process environment.
// Variables that are already set are not overridden. A missing file is not
// an error; loaded reports whether the file existed.
func LoadEnvFile(path string) (loaded bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %q: %w", ErrInvalid, path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("%w: load env file %q: %w", ErrInvalid, path, err)
	}
	return true, nil
}

// Load reads the optional YAML configuration file at path and returns a
// validated [Config]. A missing file yields the defaults. Environment
// overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
		cfg.Source = path
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("%w: open %q: %w", ErrInvalid, path, err)
	}

	return finish(cfg, os.LookupEnv)
}

// LoadFromReader decodes a YAML config from r, applies environment
// overrides and defaults, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	return finish(cfg, os.LookupEnv)
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode yaml: %w", ErrInvalid, err)
	}
	return nil
}

func finish(cfg *Config, lookup func(string) (string, bool)) (*Config, error) {
	ApplyEnv(cfg, lookup)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. A non-empty
// OPENAI_API_KEY replaces the file's api_key for the openai provider.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	name := cfg.Provider.Name
	if name != "" && name != ProviderOpenAI {
		return
	}
	if v, ok := lookup(EnvAPIKey); ok && strings.TrimSpace(v) != "" {
		cfg.Provider.APIKey = strings.TrimSpace(v)
	}
}

// ApplyDefaults fills every empty field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Input == "" {
		cfg.Input = DefaultInput
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProvider
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("%w: log_level %q is invalid; valid values: debug, info, warn, error", ErrInvalid, cfg.LogLevel))
	}
	if cfg.Input == "" {
		errs = append(errs, fmt.Errorf("%w: input is required", ErrInvalid))
	}
	if cfg.Output == "" {
		errs = append(errs, fmt.Errorf("%w: output is required", ErrInvalid))
	}
	if cfg.Input != "" && cfg.Input == cfg.Output {
		errs = append(errs, fmt.Errorf("%w: output %q would overwrite the input audio", ErrInvalid, cfg.Output))
	}

	p := cfg.Provider
	if !slices.Contains(ValidProviderNames, p.Name) {
		errs = append(errs, fmt.Errorf("%w: provider.name %q is unknown; valid values: %s",
			ErrInvalid, p.Name, strings.Join(ValidProviderNames, ", ")))
	}
	if p.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: provider.timeout %s must not be negative", ErrInvalid, p.Timeout))
	}
	if p.Name == ProviderWhisperCPP && p.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%w: provider.base_url is required for %s", ErrInvalid, ProviderWhisperCPP))
	}
	if requiresAPIKey(p.Name) {
		switch {
		case p.APIKey == "":
			errs = append(errs, fmt.Errorf("%w: set %s in the environment or in %s", ErrMissingCredential, EnvAPIKey, DefaultEnvFile))
		case strings.ContainsFunc(p.APIKey, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }):
			errs = append(errs, fmt.Errorf("%w: %s contains whitespace or control characters", ErrInvalidCredential, EnvAPIKey))
		}
	}

	return errors.Join(errs...)
}
