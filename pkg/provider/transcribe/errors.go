package transcribe

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProvider is the umbrella error for any failure on the provider side
	// of the network boundary: transport errors, non-2xx responses and
	// provider-reported errors.
	ErrProvider = errors.New("transcription provider error")

	// ErrAuthentication is returned when the provider rejects the credential.
	ErrAuthentication = errors.New("provider rejected credentials")

	// ErrRateLimited is returned when the provider throttles the request.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrInvalidAudio is returned when the provider refuses the uploaded
	// audio (unsupported container, corrupt data, too large).
	ErrInvalidAudio = errors.New("provider rejected audio")

	// ErrDataShape is returned when a response does not have the expected
	// structure, e.g. a segment record without a start time.
	ErrDataShape = errors.New("unexpected transcription response shape")
)

// StatusError classifies a non-2xx HTTP status from a provider. The returned
// error always wraps [ErrProvider] and, for recognised statuses, one of the
// refining sentinels. detail is appended verbatim for diagnostics.
func StatusError(name string, status int, detail string) error {
	var kind error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrAuthentication
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		kind = ErrInvalidAudio
	}
	if kind == nil {
		return fmt.Errorf("%s: %w: HTTP %d: %s", name, ErrProvider, status, detail)
	}
	return fmt.Errorf("%s: %w: %w: HTTP %d: %s", name, ErrProvider, kind, status, detail)
}
