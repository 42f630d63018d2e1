package subtitle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DefaultFilename is the output file the subtitle renderer reads.
const DefaultFilename = "subtitle_segments.json"

// Marshal encodes segs as a 2-space indented JSON array without a trailing
// newline. Non-ASCII text is written as raw UTF-8 and HTML characters are
// not escaped. A nil slice encodes as [] rather than null.
func Marshal(segs []Segment) ([]byte, error) {
	if segs == nil {
		segs = []Segment{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(segs); err != nil {
		return nil, fmt.Errorf("subtitle: encode segments: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Write encodes segs with [Marshal] and writes them to w.
func Write(w io.Writer, segs []Segment) error {
	data, err := Marshal(segs)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("subtitle: write segments: %w", err)
	}
	return nil
}

// WriteFile encodes segs and writes them to path, replacing any existing
// file. Encoding happens before the file is opened, so an encoding failure
// leaves an existing file untouched. The write itself is not atomic.
func WriteFile(path string, segs []Segment) (err error) {
	data, err := Marshal(segs)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("subtitle: open %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("subtitle: close %q: %w", path, cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("subtitle: write %q: %w", path, err)
	}
	return nil
}
