// Package mock provides a test double for the transcribe.Provider interface.
//
// Provider returns a canned Response (or error) and records every call,
// including the audio bytes that were read from the request, so tests can
// assert on what would have been uploaded without touching the network.
//
// Example:
//
//	p := &mock.Provider{Response: &transcribe.Response{
//	    Segments: []transcribe.Segment{{Start: 0, End: 1.234, Text: " hi "}},
//	}}
//	resp, _ := p.Transcribe(ctx, req)
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Req is the request passed to Transcribe. Req.Audio has been drained.
	Req transcribe.Request
	// Audio holds the bytes read from Req.Audio.
	Audio []byte
}

// Provider is a mock implementation of transcribe.Provider.
type Provider struct {
	mu sync.Mutex

	// Response is returned from Transcribe when Err is nil.
	Response *transcribe.Response

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every call to Transcribe.
	Calls []TranscribeCall
}

// Transcribe drains req.Audio, records the call and returns Response, Err.
func (p *Provider) Transcribe(_ context.Context, req transcribe.Request) (*transcribe.Response, error) {
	var audio []byte
	if req.Audio != nil {
		b, err := io.ReadAll(req.Audio)
		if err != nil {
			return nil, err
		}
		audio = b
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TranscribeCall{Req: req, Audio: audio})
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Response, nil
}

// CallCount returns the number of recorded calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements transcribe.Provider at compile time.
var _ transcribe.Provider = (*Provider)(nil)
