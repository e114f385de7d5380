package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"censorwave/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		pass bool
	}{
		{"ok", dir, true},
		{"missing", filepath.Join(dir, "nope"), false},
		{"file", file, false},
		{"blank", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckDirectoryAccess("test", tt.path)
			if result.Passed != tt.pass {
				t.Fatalf("expected passed=%v, got %+v", tt.pass, result)
			}
			if result.Detail == "" {
				t.Fatal("expected non-empty detail")
			}
		})
	}
}

func TestCheckFileReadable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "terms.txt")
	if err := os.WriteFile(file, []byte("darn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckFileReadable("terms", file); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckFileReadable("terms", dir); r.Passed {
		t.Fatal("expected failure for directory")
	}
	if r := CheckFileReadable("terms", filepath.Join(dir, "nope")); r.Passed {
		t.Fatal("expected failure for missing file")
	}
}

func TestRunAll(t *testing.T) {
	if RunAll(nil) != nil {
		t.Fatal("expected nil results for nil config")
	}

	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Terms.FlaggedPath = filepath.Join(t.TempDir(), "missing.txt")

	results := RunAll(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Flagged terms" {
		t.Fatalf("expected only the term list to fail, got %+v", failed)
	}
}
