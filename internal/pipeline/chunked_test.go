package pipeline

import (
	"bytes"
	"context"
	"os"
	"testing"

	"censorwave/internal/render"
	"censorwave/internal/testsupport"
	"censorwave/internal/timeline"
)

func TestSplitFrames(t *testing.T) {
	tests := []struct {
		n, k int
		want [][2]int
	}{
		{10, 1, [][2]int{{0, 10}}},
		{10, 3, [][2]int{{0, 3}, {3, 6}, {6, 10}}},
		{2, 4, [][2]int{{0, 1}, {1, 2}}},
		{0, 4, [][2]int{{0, 0}}},
	}
	for _, tt := range tests {
		got := splitFrames(tt.n, tt.k)
		if len(got) != len(tt.want) {
			t.Fatalf("splitFrames(%d,%d) = %v, want %v", tt.n, tt.k, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("splitFrames(%d,%d) = %v, want %v", tt.n, tt.k, got, tt.want)
			}
		}
	}
}

func TestRunChunkedPreservesDuration(t *testing.T) {
	f := newFixture(t, 4000)
	f.provider.flagged = []timeline.TimeRange{flagged(100, 200)}

	res, err := f.runner.RunChunked(context.Background(), Request{Source: f.source, Mode: render.ModeBackspin}, 4)
	if err != nil {
		t.Fatalf("RunChunked: %v", err)
	}
	if f.provider.calls() != 4 {
		t.Fatalf("expected one transcription per chunk, got %d", f.provider.calls())
	}
	if len(res.Plan.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(res.Plan.Entries))
	}
	for i, entry := range res.Plan.Entries {
		if want := int64(i*1000 + 100); entry.Range.StartMS != want {
			t.Fatalf("entry %d: expected start %d, got %d", i, want, entry.Range.StartMS)
		}
	}

	out := testsupport.ReadWAV(t, f.output())
	if out.Len() != 4000 {
		t.Fatalf("expected 4000 frames, got %d", out.Len())
	}
	assertEmptyDir(t, f.cfg.ChunksDir())
	if len(f.recorder.runs) != 1 || f.recorder.runs[0].Chunks != 4 {
		t.Fatalf("expected one ledger entry with 4 chunks, got %+v", f.recorder.runs)
	}
}

func TestRunChunkedEmptyPlanCopiesSource(t *testing.T) {
	f := newFixture(t, 1000)

	res, err := f.runner.RunChunked(context.Background(), Request{Source: f.source, Mode: render.ModeInstrumentalSwap}, 2)
	if err != nil {
		t.Fatalf("RunChunked: %v", err)
	}
	if !res.Copied {
		t.Fatal("expected passthrough copy")
	}
	want, _ := os.ReadFile(f.source)
	got, _ := os.ReadFile(f.output())
	if !bytes.Equal(got, want) {
		t.Fatal("expected bit-identical output")
	}
	assertEmptyDir(t, f.cfg.ChunksDir())
}

func TestRunChunkedSingleChunkIsPlainRun(t *testing.T) {
	f := newFixture(t, 500)
	res, err := f.runner.RunChunked(context.Background(), Request{Source: f.source, Mode: render.ModeBackspin}, 1)
	if err != nil {
		t.Fatalf("RunChunked: %v", err)
	}
	if res.Chunks != 1 {
		t.Fatalf("expected single chunk, got %d", res.Chunks)
	}
}
