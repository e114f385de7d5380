package pitchshift

import (
	"context"
	"slices"
	"strings"
	"testing"
)

func TestFilterGraphDownTenSemitones(t *testing.T) {
	got := FilterGraph(-10, 44100)
	// 2^(-10/12) = 0.561231; 44100 * 0.561231 = 24750
	if !strings.HasPrefix(got, "asetrate=24750,aresample=44100,") {
		t.Fatalf("unexpected filter graph %q", got)
	}
	// Correction 1/0.561231 = 1.781797 fits in a single atempo.
	if !strings.HasSuffix(got, "atempo=1.781797") {
		t.Fatalf("unexpected tempo correction %q", got)
	}
}

func TestFilterGraphChainsLargeCorrections(t *testing.T) {
	got := FilterGraph(-24, 16000)
	// factor 0.25, correction 4 = 2.0 * 2.0
	if strings.Count(got, "atempo=") != 2 {
		t.Fatalf("expected two atempo stages, got %q", got)
	}
}

func TestShiftInvokesFFmpeg(t *testing.T) {
	svc := NewService("ffmpeg")
	var args []string
	svc.WithCommandRunner(func(_ context.Context, _ string, a ...string) error {
		args = a
		return nil
	})
	if err := svc.Shift(context.Background(), "in.wav", "out.wav", -10, 16000); err != nil {
		t.Fatalf("Shift: %v", err)
	}
	for _, want := range []string{"in.wav", "out.wav", "16000", "-af"} {
		if !slices.Contains(args, want) {
			t.Fatalf("expected %q in %v", want, args)
		}
	}
}

func TestShiftRejectsBadRate(t *testing.T) {
	if err := NewService("").Shift(context.Background(), "a", "b", -10, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}
