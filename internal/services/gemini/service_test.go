package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeAudio(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func respond(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestTranscribeSendsInlineAudio(t *testing.T) {
	audio := []byte("ID3fake-mp3-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "secret" {
			t.Errorf("unexpected api key header %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[1].InlineData == nil {
			t.Errorf("expected prompt and inline audio, got %+v", parts)
		} else {
			if parts[1].InlineData.MimeType != "audio/mpeg" {
				t.Errorf("unexpected mime type %q", parts[1].InlineData.MimeType)
			}
			if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString(audio) {
				t.Error("inline data does not match the audio file")
			}
			if !strings.Contains(parts[0].Text, `"en"`) {
				t.Errorf("expected language hint in prompt, got %q", parts[0].Text)
			}
		}
		respond(t, w, `[{"start":0.5,"end":2.1,"text":"well darn it"},{"start":3,"end":4.5,"text":"second line"}]`)
	}))
	defer server.Close()

	svc := NewService(Config{APIKey: "secret", Endpoint: server.URL + "/v1beta", Language: "en"})
	segments, err := svc.Transcribe(context.Background(), writeAudio(t, "song.mp3", audio))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segments)
	}
	if segments[0].Text != "well darn it" || segments[0].Start != 0.5 || segments[0].End != 2.1 {
		t.Fatalf("unexpected first segment %+v", segments[0])
	}
	if len(segments[0].Words) != 0 {
		t.Fatalf("expected phrase-only segments, got words %+v", segments[0].Words)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		respond(t, w, `[{"start":1,"end":2,"text":"heck"}]`)
	}))
	defer server.Close()

	svc := NewService(Config{APIKey: "k", Endpoint: server.URL}, WithRetry(time.Millisecond, 5*time.Second))
	segments, err := svc.Transcribe(context.Background(), writeAudio(t, "song.wav", []byte("RIFF")))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || calls.Load() != 3 {
		t.Fatalf("expected success on third attempt, got %d segments after %d calls", len(segments), calls.Load())
	}
}

func TestTranscribeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	svc := NewService(Config{APIKey: "bad", Endpoint: server.URL}, WithRetry(time.Millisecond, 5*time.Second))
	_, err := svc.Transcribe(context.Background(), writeAudio(t, "song.flac", []byte("fLaC")))
	if err == nil || !strings.Contains(err.Error(), "http 400") {
		t.Fatalf("expected http 400 error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestTranscribeRejectsOversizedAudio(t *testing.T) {
	svc := NewService(Config{APIKey: "k", Endpoint: "http://127.0.0.1:9"})
	path := writeAudio(t, "long.wav", make([]byte, MaxInlineBytes+1))
	_, err := svc.Transcribe(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "--chunks") {
		t.Fatalf("expected inline limit error, got %v", err)
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	if _, err := NewService(Config{}).Transcribe(context.Background(), "song.mp3"); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestTranscribeReportsBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"OTHER"}}`))
	}))
	defer server.Close()

	svc := NewService(Config{APIKey: "k", Endpoint: server.URL})
	_, err := svc.Transcribe(context.Background(), writeAudio(t, "song.mp3", []byte("x")))
	if err == nil || !strings.Contains(err.Error(), `block_reason="OTHER"`) {
		t.Fatalf("expected block reason in error, got %v", err)
	}
}

func TestParseSegments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"plain array", `[{"start":0,"end":1,"text":"a"}]`, 1},
		{"code fence", "```json\n[{\"start\":0,\"end\":1,\"text\":\"a\"},{\"start\":1,\"end\":2,\"text\":\"b\"}]\n```", 2},
		{"leading prose", `Here you go: [{"start":0,"end":1,"text":"a"}]`, 1},
		{"drops inverted and blank", `[{"start":2,"end":1,"text":"a"},{"start":0,"end":1,"text":"  "},{"start":0,"end":1,"text":"ok"}]`, 1},
		{"drops missing bounds", `[{"end":1,"text":"a"},{"start":0,"end":1,"text":"ok"}]`, 1},
		{"empty", `[]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSegments(tt.in)
			if err != nil {
				t.Fatalf("ParseSegments: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d segments, got %+v", tt.want, got)
			}
		})
	}
	if _, err := ParseSegments("no json here"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAudioMimeType(t *testing.T) {
	tests := map[string]string{
		"a.mp3":  "audio/mpeg",
		"a.WAV":  "audio/wav",
		"a.flac": "audio/flac",
		"a.ogg":  "audio/ogg",
		"a.m4a":  "audio/aac",
		"a.bin":  "audio/mpeg",
	}
	for path, want := range tests {
		if got := audioMimeType(path); got != want {
			t.Errorf("audioMimeType(%q) = %q, want %q", path, got, want)
		}
	}
}
