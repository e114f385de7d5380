package deps

import (
	"os"
	"path/filepath"
	"testing"

	"censorwave/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0] != "Missing" {
		t.Fatalf("expected only required missing dependency, got %v", missing)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Separation.Command = "/opt/spleeter/bin/spleeter --verbose"
	cfg.Render.ValidateOutput = false

	reqs := Requirements(&cfg)
	byName := map[string]Requirement{}
	for _, r := range reqs {
		byName[r.Name] = r
	}
	if byName["Spleeter"].Command != "/opt/spleeter/bin/spleeter" {
		t.Fatalf("expected first field of spleeter command, got %q", byName["Spleeter"].Command)
	}
	if !byName["FFprobe"].Optional {
		t.Fatal("expected ffprobe optional when validation is off")
	}
	if byName["FFmpeg"].Optional {
		t.Fatal("expected ffmpeg required")
	}
	if byName["uvx"].Optional {
		t.Fatal("expected uvx required for the whisperx backend")
	}

	cfg.Transcription.Backend = config.BackendGemini
	for _, r := range Requirements(&cfg) {
		if r.Name == "uvx" && !r.Optional {
			t.Fatal("expected uvx optional for the gemini backend")
		}
	}
}
