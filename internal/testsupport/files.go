package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gopxl/beep"

	"censorwave/internal/audio"
)

// TestFormat is a low sample rate that keeps fixtures small while mapping
// one frame to one millisecond.
var TestFormat = beep.Format{SampleRate: 1000, NumChannels: 2, Precision: 2}

// Ramp returns n frames rising linearly from 0 towards 0.5.
func Ramp(n int) audio.Track {
	frames := make([][2]float64, n)
	for i := range frames {
		v := 0.5 * float64(i) / float64(n)
		frames[i] = [2]float64{v, v}
	}
	return audio.NewTrack(TestFormat, frames)
}

// Constant returns n frames holding v on both channels.
func Constant(n int, v float64) audio.Track {
	frames := make([][2]float64, n)
	for i := range frames {
		frames[i] = [2]float64{v, v}
	}
	return audio.NewTrack(TestFormat, frames)
}

// WriteWAV encodes track to path, creating parent directories.
func WriteWAV(t testing.TB, path string, track audio.Track) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := audio.EncodeWAV(track, path); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// ReadWAV decodes path.
func ReadWAV(t testing.TB, path string) audio.Track {
	t.Helper()
	track, err := audio.DecodeWAV(path)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return track
}

// WriteTerms writes a plain-text term list.
func WriteTerms(t testing.TB, path string, terms ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(terms, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
