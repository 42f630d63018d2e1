package transcribe

import "io"

// Format selects the response format requested from the provider.
type Format string

const (
	// FormatJSON returns only the full transcript text.
	FormatJSON Format = "json"

	// FormatVerboseJSON returns the transcript text together with language,
	// duration and per-segment timestamps. This is the format the subtitle
	// pipeline requires.
	FormatVerboseJSON Format = "verbose_json"
)

// IsValid reports whether f is a recognised response format.
func (f Format) IsValid() bool {
	return f == FormatJSON || f == FormatVerboseJSON
}

// Request holds the parameters for a single transcription call.
type Request struct {
	// Audio is the binary audio payload (wav, mp3, m4a, ...).
	Audio io.Reader

	// Filename is the name reported to the provider for the upload. Hosted
	// APIs use its extension to detect the container format.
	Filename string

	// Format is the requested response format. Empty means FormatVerboseJSON.
	Format Format

	// Language is an optional ISO-639-1 hint (e.g. "ja", "en").
	Language string

	// Prompt is optional text that guides spelling and style.
	Prompt string
}

// Response is the structured result of a transcription call.
type Response struct {
	// Text is the full transcript.
	Text string `json:"text"`

	// Language is the detected or requested language, if reported.
	Language string `json:"language,omitempty"`

	// Duration is the audio duration in seconds, if reported.
	Duration float64 `json:"duration,omitempty"`

	// Segments holds the time-aligned spans in playback order. It is nil
	// when the provider did not include a segments field.
	Segments []Segment `json:"segments,omitempty"`
}

// Segment is a single time-aligned span exactly as reported by the provider.
// End >= Start is the provider's responsibility and is not checked here.
type Segment struct {
	// Start is the span start in seconds.
	Start float64 `json:"start"`

	// End is the span end in seconds.
	End float64 `json:"end"`

	// Text is the transcribed text; it may carry leading or trailing
	// whitespace.
	Text string `json:"text"`
}
