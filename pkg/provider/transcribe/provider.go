// Package transcribe defines the Provider interface for batch speech-to-text
// backends that return time-aligned segments.
//
// A provider receives a complete audio stream plus a response-format
// directive and returns the structured result in one call. There is no
// streaming, no session state and no retry at this layer: a failed call is
// reported to the caller as-is, classified with the sentinel errors in this
// package so callers can tell authentication, rate-limit, bad-audio and
// malformed-payload failures apart with [errors.Is].
//
// Implementations must be safe for concurrent use, although the subtitler
// pipeline only ever issues a single request.
package transcribe

import "context"

// Provider is the abstraction over any batch transcription backend.
type Provider interface {
	// Transcribe uploads req.Audio and returns the provider's structured
	// result. The caller owns req.Audio and is responsible for closing it.
	//
	// Returned errors wrap [ErrProvider] (optionally refined by
	// [ErrAuthentication], [ErrRateLimited] or [ErrInvalidAudio]) for
	// provider-side failures and [ErrDataShape] when the response payload
	// does not have the expected shape.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
