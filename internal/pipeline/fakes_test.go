package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"censorwave/internal/audio"
	"censorwave/internal/config"
	"censorwave/internal/history"
	"censorwave/internal/logging"
	"censorwave/internal/media/ffprobe"
	"censorwave/internal/services/spleeter"
	"censorwave/internal/testsupport"
	"censorwave/internal/timeline"
)

type fakeProvider struct {
	mu      sync.Mutex
	flagged []timeline.TimeRange
	severe  []timeline.TimeRange
	err     error
	sources []string
	terms   [][]string
	// block makes FlaggedRanges wait for cancellation.
	block     bool
	cancelled atomic.Bool
}

func (p *fakeProvider) FlaggedRanges(ctx context.Context, audioPath string, terms []string) ([]timeline.TimeRange, error) {
	p.mu.Lock()
	p.sources = append(p.sources, audioPath)
	p.terms = append(p.terms, terms)
	block := p.block
	p.mu.Unlock()
	if block {
		<-ctx.Done()
		p.cancelled.Store(true)
		return nil, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return append([]timeline.TimeRange(nil), p.flagged...), nil
}

func (p *fakeProvider) FlaggedAndSevereRanges(_ context.Context, audioPath string, flagged, severe []string) ([]timeline.TimeRange, []timeline.TimeRange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources = append(p.sources, audioPath)
	p.terms = append(p.terms, flagged, severe)
	if p.err != nil {
		return nil, nil, p.err
	}
	return append([]timeline.TimeRange(nil), p.flagged...), append([]timeline.TimeRange(nil), p.severe...), nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sources)
}

// fakeSeparator writes constant stems, fails with err, or blocks until cancelled.
type fakeSeparator struct {
	block        bool
	err          error
	instrumental float64
	vocals       float64
	cancelled    atomic.Bool
	calls        atomic.Int32
}

func (s *fakeSeparator) Separate(ctx context.Context, source, outputDir string) error {
	s.calls.Add(1)
	if s.err != nil {
		return s.err
	}
	if s.block {
		<-ctx.Done()
		s.cancelled.Store(true)
		return ctx.Err()
	}
	track, err := audio.DecodeWAV(source)
	if err != nil {
		return err
	}
	dir := spleeter.StemDir(outputDir, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := audio.EncodeWAV(testsupport.Constant(track.Len(), s.instrumental), filepath.Join(dir, spleeter.AccompanimentFile)); err != nil {
		return err
	}
	return audio.EncodeWAV(testsupport.Constant(track.Len(), s.vocals), filepath.Join(dir, spleeter.VocalsFile))
}

type copyShifter struct {
	calls atomic.Int32
}

func (s *copyShifter) Shift(_ context.Context, input, output string, _ float64, _ int) error {
	s.calls.Add(1)
	track, err := audio.DecodeWAV(input)
	if err != nil {
		return err
	}
	return audio.EncodeWAV(track, output)
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []history.Run
}

func (r *fakeRecorder) Record(_ context.Context, run history.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

type fakeProber struct {
	result ffprobe.Result
	calls  int
}

func (p *fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	p.calls++
	return p.result, nil
}

type fixture struct {
	cfg      *config.Config
	provider *fakeProvider
	sep      *fakeSeparator
	shifter  *copyShifter
	recorder *fakeRecorder
	runner   *Runner
	source   string
}

func newFixture(t *testing.T, frames int, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	f := &fixture{
		cfg:      cfg,
		provider: &fakeProvider{},
		sep:      &fakeSeparator{instrumental: 0.25, vocals: 0.125},
		shifter:  &copyShifter{},
		recorder: &fakeRecorder{},
		source:   filepath.Join(testsupport.BaseDir(cfg), "music", "song.wav"),
	}
	testsupport.WriteWAV(t, f.source, testsupport.Ramp(frames))
	f.runner = New(cfg, logging.NewNop(),
		WithProvider(f.provider),
		WithSeparator(f.sep),
		WithPitchShifter(f.shifter),
		WithRecorder(f.recorder),
	)
	return f
}

func (f *fixture) output() string {
	return filepath.Join(filepath.Dir(f.source), "song-censored.wav")
}

func assertNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent, stat err=%v", path, err)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}
