// Package subtitle turns provider transcription segments into the compact,
// display-ready segment list consumed by subtitle renderers, and persists it
// as JSON.
//
// The output contract is a JSON array of {"start", "end", "text"} objects in
// playback order. Timestamps are rounded to two decimals; text is trimmed.
package subtitle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
)

// Seconds is a timestamp in seconds. It marshals to JSON with at least one
// fractional digit (0 -> 0.0), matching the existing consumer's files.
type Seconds float64

// MarshalJSON implements json.Marshaler.
func (s Seconds) MarshalJSON() ([]byte, error) {
	b := strconv.AppendFloat(nil, float64(s), 'f', -1, 64)
	if !strings.ContainsAny(string(b), ".eEnN") {
		b = append(b, '.', '0')
	}
	return b, nil
}

// Segment is one normalized subtitle span. Field order is the JSON key order.
type Segment struct {
	Start Seconds `json:"start"`
	End   Seconds `json:"end"`
	Text  string  `json:"text"`
}

// Round2 rounds v to two decimal places. It rounds the exact binary value of
// v, so 1.005 (stored as 1.00499999...) becomes 1.0, and exact decimal ties
// go to the even neighbour: 0.125 -> 0.12, 0.375 -> 0.38.
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		// Only reachable for ±Inf/NaN, which format to non-numeric text.
		return v
	}
	return r
}

// Normalize derives one Segment per provider segment, in the order the
// provider returned them. Nothing is filtered, merged or sorted. A response
// without segments yields an empty, non-nil slice.
func Normalize(resp *transcribe.Response) ([]Segment, error) {
	if resp == nil {
		return nil, fmt.Errorf("subtitle: %w: nil response", transcribe.ErrDataShape)
	}
	out := make([]Segment, len(resp.Segments))
	for i, raw := range resp.Segments {
		out[i] = Segment{
			Start: Seconds(Round2(raw.Start)),
			End:   Seconds(Round2(raw.End)),
			Text:  strings.TrimSpace(raw.Text),
		}
	}
	return out, nil
}
