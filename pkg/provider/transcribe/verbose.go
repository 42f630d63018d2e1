package transcribe

import (
	"encoding/json"
	"errors"
	"fmt"
)

// verbosePayload mirrors the verbose_json body shared by the OpenAI API and
// whisper.cpp compatible servers. Segment fields are pointers so that a
// missing or null field can be told apart from a zero value.
type verbosePayload struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []verboseSegment `json:"segments"`
}

type verboseSegment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  *string  `json:"text"`
}

// DecodeVerbose parses a verbose_json response body. Unknown fields (id,
// seek, tokens, avg_logprob, words, ...) are ignored. A missing segments
// field yields a Response with nil Segments. Any record lacking start, end
// or text, or any field of the wrong JSON type, fails the whole decode with
// an error wrapping [ErrDataShape]; there is no partial result.
func DecodeVerbose(data []byte) (*Response, error) {
	var p verbosePayload
	if err := json.Unmarshal(data, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field %q: %w", ErrDataShape, typeErr.Field, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrDataShape, err)
	}

	resp := &Response{
		Text:     p.Text,
		Language: p.Language,
		Duration: p.Duration,
	}
	if p.Segments == nil {
		return resp, nil
	}

	resp.Segments = make([]Segment, len(p.Segments))
	for i, s := range p.Segments {
		switch {
		case s.Start == nil:
			return nil, fmt.Errorf("%w: segments[%d]: missing start", ErrDataShape, i)
		case s.End == nil:
			return nil, fmt.Errorf("%w: segments[%d]: missing end", ErrDataShape, i)
		case s.Text == nil:
			return nil, fmt.Errorf("%w: segments[%d]: missing text", ErrDataShape, i)
		}
		resp.Segments[i] = Segment{Start: *s.Start, End: *s.End, Text: *s.Text}
	}
	return resp, nil
}
