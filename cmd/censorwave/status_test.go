package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		kind     statusKind
		message  string
		colorize bool
		want     string
	}{
		{name: "ok", label: "FFmpeg", kind: statusOK, message: "/usr/bin/ffmpeg", want: "  FFmpeg:              [OK] /usr/bin/ffmpeg"},
		{name: "no message", label: "History", kind: statusInfo, want: "  History:             [INFO]"},
		{name: "error", label: "uvx", kind: statusError, message: "missing", want: "  uvx:                 [ERROR] missing"},
		{name: "colour", label: "Spleeter", kind: statusWarn, message: "optional", colorize: true, want: "\x1b[33m  Spleeter:            [WARN] optional\x1b[0m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderStatusLine(tt.label, tt.kind, tt.message, tt.colorize); got != tt.want {
				t.Fatalf("renderStatusLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader(" Dependencies ", false)
	if len(lines) != 2 || lines[0] != "== Dependencies ==" || lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("unexpected header: %q", lines)
	}
}

func TestShouldColorizeBuffer(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestStatusCommandReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "== Dependencies ==")
	requireContains(t, stdout, "FFmpeg:")
	requireContains(t, stdout, "[OK]")
	requireContains(t, stdout, "Scratch")
}

func TestStatusCommandFailsOnMissingTool(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.UVX = "censorwave-missing-uvx"
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := runCLI(t, env, "status")
	if err == nil {
		t.Fatal("expected status to fail")
	}
	requireContains(t, stdout, "[ERROR] binary \"censorwave-missing-uvx\" not found")
}

func TestStatusWithGeminiBackendTreatsUVXAsOptional(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.UVX = "censorwave-missing-uvx"
	writeTestConfig(t, env.configPath, env.cfg)
	t.Setenv("GEMINI_API_KEY", "test-key")

	stdout, _, err := runCLI(t, env, "--backend", "gemini", "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "gemini (gemini-2.5-flash)")
	requireContains(t, stdout, "[WARN] binary \"censorwave-missing-uvx\" not found")
}
