package audio

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"censorwave/internal/services"
)

func TestOutputFormatFor(t *testing.T) {
	tests := []struct {
		source   string
		ext      string
		codec    string
		lossless bool
		fallback bool
	}{
		{"song.mp3", ".mp3", "libmp3lame", false, false},
		{"song.WAV", ".wav", "", true, false},
		{"song.flac", ".flac", "flac", true, false},
		{"song.m4a", ".m4a", "alac", true, false},
		{"song.ogg", ".ogg", "libvorbis", false, false},
		{"song.aiff", ".wav", "", true, true},
	}
	for _, tt := range tests {
		got := OutputFormatFor(tt.source, "320k")
		if got.Ext != tt.ext || got.Codec != tt.codec || got.Lossless != tt.lossless || got.Fallback != tt.fallback {
			t.Errorf("OutputFormatFor(%q) = %+v", tt.source, got)
		}
	}
	if mp3 := OutputFormatFor("a.mp3", "320k"); !slices.Contains(mp3.Args, "320k") {
		t.Fatalf("expected 320k bitrate, got %v", mp3.Args)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	got := DefaultOutputPath("/music/song.final.mp3", OutputFormatFor("song.final.mp3", ""))
	if got != "/music/song.final-censored.mp3" {
		t.Fatalf("unexpected output path %q", got)
	}
}

func TestEncodeCompressedUsesFFmpeg(t *testing.T) {
	dir := t.TempDir()
	codec := NewCodec("ffmpeg", dir)
	var gotArgs []string
	codec.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "ffmpeg" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return nil
	})

	dest := filepath.Join(dir, "out.mp3.partial")
	if err := codec.Encode(context.Background(), Silence(testFormat, 10), dest, OutputFormatFor("in.mp3", "320k")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, want := range []string{"libmp3lame", "320k", "mp3", dest} {
		if !slices.Contains(gotArgs, want) {
			t.Fatalf("expected %q in args %v", want, gotArgs)
		}
	}
}

func TestEncodeFailureIsExternalTool(t *testing.T) {
	dir := t.TempDir()
	codec := NewCodec("ffmpeg", dir)
	codec.WithCommandRunner(func(context.Context, string, ...string) error { return errors.New("boom") })

	err := codec.Encode(context.Background(), Silence(testFormat, 10), filepath.Join(dir, "x.flac"), OutputFormatFor("in.flac", ""))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestDecodeUnknownContainerViaFFmpeg(t *testing.T) {
	dir := t.TempDir()
	codec := NewCodec("ffmpeg", dir)
	codec.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		return EncodeWAV(Silence(testFormat, 250), args[len(args)-1])
	})

	track, err := codec.Decode(context.Background(), filepath.Join(dir, "song.opus"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if track.Len() != 250 {
		t.Fatalf("expected 250 frames, got %d", track.Len())
	}
}

func TestDecodeMissingFile(t *testing.T) {
	codec := NewCodec("ffmpeg", t.TempDir())
	_, err := codec.Decode(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
