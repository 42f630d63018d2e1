package whispercpp_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/subtitler/pkg/provider/transcribe"
	"github.com/MrWong99/subtitler/pkg/provider/transcribe/whispercpp"
)

// ---- helpers ----------------------------------------------------------------

// inferenceForm captures the multipart fields posted to /inference.
type inferenceForm struct {
	responseFormat string
	language       string
	model          string
	filename       string
	audio          string
}

// newMockServer creates a test server that responds to POST /inference with
// the given status and body. It records the parsed form into *form and
// increments *callCount on every matched request.
func newMockServer(t *testing.T, status int, body string, form *inferenceForm, callCount *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if callCount != nil {
			callCount.Add(1)
		}
		if form != nil {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
			}
			form.responseFormat = r.FormValue("response_format")
			form.language = r.FormValue("language")
			form.model = r.FormValue("model")
			if f, hdr, err := r.FormFile("file"); err == nil {
				b, _ := io.ReadAll(f)
				form.filename = hdr.Filename
				form.audio = string(b)
				f.Close()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---- provider construction --------------------------------------------------

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	_, err := whispercpp.New("")
	if err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestNew_WithOptions_DoesNotError(t *testing.T) {
	p, err := whispercpp.New("http://localhost:8080/",
		whispercpp.WithModel("small"),
		whispercpp.WithLanguage("de"),
		whispercpp.WithTimeout(0),
		whispercpp.WithHTTPClient(&http.Client{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil Provider")
	}
}

// ---- transcription ----------------------------------------------------------

func TestTranscribe_PostsVerboseJSONAndDecodesSegments(t *testing.T) {
	var form inferenceForm
	var calls atomic.Int32
	srv := newMockServer(t, http.StatusOK,
		`{"task":"transcribe","language":"english","duration":3.0,"text":"x y","segments":[{"id":0,"start":2.1,"end":2.1,"text":"x"},{"id":1,"start":0.0,"end":0.5,"text":"y"}]}`,
		&form, &calls)

	p, _ := whispercpp.New(srv.URL+"/", whispercpp.WithLanguage("en"), whispercpp.WithModel("base.en"))
	resp, err := p.Transcribe(context.Background(), transcribe.Request{
		Audio:    strings.NewReader("pcm"),
		Filename: "/tmp/clip.wav",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if form.responseFormat != "verbose_json" {
		t.Errorf("response_format = %q, want verbose_json", form.responseFormat)
	}
	if form.language != "en" {
		t.Errorf("language = %q, want provider default en", form.language)
	}
	if form.model != "base.en" {
		t.Errorf("model = %q, want base.en", form.model)
	}
	if form.filename != "clip.wav" || form.audio != "pcm" {
		t.Errorf("file = %q/%q, want clip.wav/pcm", form.filename, form.audio)
	}

	if len(resp.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(resp.Segments))
	}
	if resp.Segments[0].Text != "x" || resp.Segments[1].Text != "y" {
		t.Errorf("segments reordered: %+v", resp.Segments)
	}
}

func TestTranscribe_RequestLanguageOverridesDefault(t *testing.T) {
	var form inferenceForm
	srv := newMockServer(t, http.StatusOK, `{"text":""}`, &form, nil)

	p, _ := whispercpp.New(srv.URL, whispercpp.WithLanguage("en"))
	if _, err := p.Transcribe(context.Background(), transcribe.Request{
		Audio:    strings.NewReader("pcm"),
		Language: "ja",
	}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if form.language != "ja" {
		t.Errorf("language = %q, want ja", form.language)
	}
	if form.filename != "audio.wav" {
		t.Errorf("filename = %q, want default audio.wav", form.filename)
	}
}

func TestTranscribe_ServerErrorIsProviderError(t *testing.T) {
	srv := newMockServer(t, http.StatusInternalServerError, "model not loaded\n", nil, nil)

	p, _ := whispercpp.New(srv.URL)
	_, err := p.Transcribe(context.Background(), transcribe.Request{Audio: strings.NewReader("pcm")})
	if !errors.Is(err, transcribe.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("err = %q, want server detail included", err)
	}
}

func TestTranscribe_BadRequestIsInvalidAudio(t *testing.T) {
	srv := newMockServer(t, http.StatusBadRequest, `{"error":"failed to read WAV file"}`, nil, nil)

	p, _ := whispercpp.New(srv.URL)
	_, err := p.Transcribe(context.Background(), transcribe.Request{Audio: strings.NewReader("garbage")})
	if !errors.Is(err, transcribe.ErrInvalidAudio) {
		t.Fatalf("err = %v, want ErrInvalidAudio", err)
	}
}

func TestTranscribe_MalformedPayloadIsDataShapeError(t *testing.T) {
	srv := newMockServer(t, http.StatusOK, `{"segments":[{"start":0,"end":1}]}`, nil, nil)

	p, _ := whispercpp.New(srv.URL)
	_, err := p.Transcribe(context.Background(), transcribe.Request{Audio: strings.NewReader("pcm")})
	if !errors.Is(err, transcribe.ErrDataShape) {
		t.Fatalf("err = %v, want ErrDataShape", err)
	}
}

func TestTranscribe_UnreachableServer(t *testing.T) {
	srv := newMockServer(t, http.StatusOK, `{}`, nil, nil)
	url := srv.URL
	srv.Close()

	p, _ := whispercpp.New(url)
	_, err := p.Transcribe(context.Background(), transcribe.Request{Audio: strings.NewReader("pcm")})
	if !errors.Is(err, transcribe.ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}

func TestTranscribe_CancelledContext(t *testing.T) {
	srv := newMockServer(t, http.StatusOK, `{}`, nil, nil)
	p, _ := whispercpp.New(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Transcribe(ctx, transcribe.Request{Audio: strings.NewReader("pcm")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
