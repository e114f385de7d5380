package audio

import (
	"math"
	"testing"

	"github.com/gopxl/beep"
)

var testFormat = beep.Format{SampleRate: 1000, NumChannels: 2, Precision: 2}

// ramp builds a track whose frame i holds i/scale on both channels.
func ramp(n int) Track {
	frames := make([][2]float64, n)
	for i := range frames {
		v := float64(i) / float64(n)
		frames[i] = [2]float64{v, -v}
	}
	return NewTrack(testFormat, frames)
}

func TestSliceTilesTrack(t *testing.T) {
	track := ramp(3000)
	a := track.Slice(0, 950)
	b := track.Slice(950, 1250)
	c := track.From(1250)
	if a.Len()+b.Len()+c.Len() != track.Len() {
		t.Fatalf("slices do not tile: %d+%d+%d != %d", a.Len(), b.Len(), c.Len(), track.Len())
	}
	joined, err := a.Concat(b, c)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if !joined.Equal(track) {
		t.Fatal("expected concatenated slices to equal the original")
	}
}

func TestSliceClampsAndInverts(t *testing.T) {
	track := ramp(1000)
	if got := track.Slice(900, 5000).Len(); got != 100 {
		t.Fatalf("expected clamp to 100 frames, got %d", got)
	}
	if got := track.Slice(600, 400).Len(); got != 0 {
		t.Fatalf("expected empty slice for inverted range, got %d", got)
	}
	if got := track.Slice(-50, 10).Len(); got != 10 {
		t.Fatalf("expected negative start clamped, got %d", got)
	}
}

func TestReverseIsInvolution(t *testing.T) {
	track := ramp(257)
	rev := track.Reverse()
	if rev.Frame(0) != track.Frame(256) {
		t.Fatalf("expected first reversed frame to be last original frame")
	}
	if !rev.Reverse().Equal(track) {
		t.Fatal("expected double reverse to restore track")
	}
}

func TestOverlayKeepsBaseLength(t *testing.T) {
	base := Silence(testFormat, 300)
	top := NewTrack(testFormat, [][2]float64{{0.5, 0.5}, {0.25, 0.25}})

	mixed, err := base.Overlay(top)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if mixed.Len() != 300 {
		t.Fatalf("expected base length 300, got %d", mixed.Len())
	}
	if mixed.Frame(0)[0] != 0.5 || mixed.Frame(1)[1] != 0.25 || mixed.Frame(2)[0] != 0 {
		t.Fatalf("unexpected mix: %v %v %v", mixed.Frame(0), mixed.Frame(1), mixed.Frame(2))
	}

	longTop := Silence(testFormat, 1000)
	cut, err := NewTrack(testFormat, [][2]float64{{0.1, 0.1}}).Overlay(longTop)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if cut.Len() != 1 {
		t.Fatalf("expected longer top to be cut, got %d frames", cut.Len())
	}
}

func TestOverlayClips(t *testing.T) {
	loud := NewTrack(testFormat, [][2]float64{{0.9, -0.9}})
	mixed, err := loud.Overlay(loud)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if mixed.Frame(0) != [2]float64{1, -1} {
		t.Fatalf("expected clipping, got %v", mixed.Frame(0))
	}
}

func TestFit(t *testing.T) {
	track := ramp(10)
	if got := track.Fit(4).Len(); got != 4 {
		t.Fatalf("expected truncate to 4, got %d", got)
	}
	padded := track.Fit(15)
	if padded.Len() != 15 || padded.Frame(14) != [2]float64{} {
		t.Fatalf("expected silent padding, got len %d", padded.Len())
	}
}

func TestConformResamplesToTargetDuration(t *testing.T) {
	src := Silence(beep.Format{SampleRate: 16000, NumChannels: 2, Precision: 2}, 16000)
	out, err := src.Conform(beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2})
	if err != nil {
		t.Fatalf("Conform: %v", err)
	}
	if out.Len() != 44100 {
		t.Fatalf("expected one second at 44.1kHz, got %d frames", out.Len())
	}
	if out.Format().SampleRate != 44100 {
		t.Fatalf("unexpected rate %d", out.Format().SampleRate)
	}
}

func TestDurationMS(t *testing.T) {
	if got := ramp(2500).DurationMS(); got != 2500 {
		t.Fatalf("expected 2500ms, got %d", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := t.TempDir() + "/tone.wav"
	frames := make([][2]float64, 800)
	for i := range frames {
		v := 0.5 * math.Sin(float64(i)/10)
		frames[i] = [2]float64{v, v}
	}
	track := NewTrack(beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}, frames)

	if err := EncodeWAV(track, path); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	decoded, err := DecodeWAV(path)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if decoded.Len() != track.Len() {
		t.Fatalf("length mismatch: %d vs %d", decoded.Len(), track.Len())
	}
	if decoded.Format().SampleRate != 8000 {
		t.Fatalf("unexpected rate %d", decoded.Format().SampleRate)
	}
	for i := 0; i < track.Len(); i += 97 {
		if math.Abs(decoded.Frame(i)[0]-track.Frame(i)[0]) > 1e-3 {
			t.Fatalf("frame %d drifted: %v vs %v", i, decoded.Frame(i), track.Frame(i))
		}
	}
}
