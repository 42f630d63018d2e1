package app

import (
	"context"
	"errors"

	"github.com/MrWong99/subtitler/internal/config"
	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
)

// Kind is the failure category of a run. Each maps to a process exit code.
type Kind int

const (
	KindOK Kind = iota
	KindUnexpected
	KindConfig
	KindIO
	KindProvider
	KindDataShape
	KindInterrupted
)

var kindNames = map[Kind]string{
	KindOK:          "ok",
	KindUnexpected:  "unexpected",
	KindConfig:      "configuration",
	KindIO:          "io",
	KindProvider:    "provider",
	KindDataShape:   "data_shape",
	KindInterrupted: "interrupted",
}

// String returns the lowercase kind name used in logs.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ExitCode returns the process exit status for k.
func (k Kind) ExitCode() int {
	switch k {
	case KindOK:
		return 0
	case KindConfig:
		return 2
	case KindIO:
		return 3
	case KindProvider:
		return 4
	case KindDataShape:
		return 5
	case KindInterrupted:
		return 130
	}
	return 1
}

// Classify maps err to its failure category. A cancelled run is reported as
// interrupted even when the cancellation surfaced through the provider.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, context.Canceled):
		return KindInterrupted
	case errors.Is(err, config.ErrMissingCredential),
		errors.Is(err, config.ErrInvalidCredential),
		errors.Is(err, config.ErrInvalid),
		errors.Is(err, config.ErrProviderNotRegistered):
		return KindConfig
	case errors.Is(err, transcribe.ErrDataShape):
		return KindDataShape
	case errors.Is(err, transcribe.ErrProvider):
		return KindProvider
	case errors.Is(err, ErrIO):
		return KindIO
	}
	return KindUnexpected
}
