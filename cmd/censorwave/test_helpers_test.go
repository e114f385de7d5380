package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"censorwave/internal/audio"
	"censorwave/internal/config"
	"censorwave/internal/pipeline"
	"censorwave/internal/services/spleeter"
	"censorwave/internal/services/whisperx"
	"censorwave/internal/testsupport"
	"censorwave/internal/timeline"
	"censorwave/internal/transcribe"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
scratch_dir = %q
log_dir = %q

[terms]
flagged_path = %q
severe_path = %q

[render]
mode = %q
validate_output = false

[separation]
wait_timeout_seconds = %d
full_wait_timeout_seconds = %d

[tools]
uvx = %q

[history]
enabled = %t
path = %q

[logging]
level = "error"
`,
		cfg.Paths.ScratchDir,
		cfg.Paths.LogDir,
		cfg.Terms.FlaggedPath,
		cfg.Terms.SeverePath,
		cfg.Render.Mode,
		cfg.Separation.WaitTimeoutSeconds,
		cfg.Separation.FullWaitTimeoutSeconds,
		cfg.Tools.UVX,
		cfg.History.Enabled,
		cfg.History.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if env != nil {
		args = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// writeSong writes a ramp WAV of frames milliseconds under the env's music dir.
func (e *cliTestEnv) writeSong(t *testing.T, name string, frames int) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "music", name)
	testsupport.WriteWAV(t, path, testsupport.Ramp(frames))
	return path
}

type stubProvider struct {
	mu      sync.Mutex
	flagged []timeline.TimeRange
	severe  []timeline.TimeRange
	terms   [][]string
}

func (p *stubProvider) FlaggedRanges(_ context.Context, _ string, terms []string) ([]timeline.TimeRange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terms = append(p.terms, terms)
	return append([]timeline.TimeRange(nil), p.flagged...), nil
}

func (p *stubProvider) FlaggedAndSevereRanges(_ context.Context, _ string, flagged, severe []string) ([]timeline.TimeRange, []timeline.TimeRange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terms = append(p.terms, flagged, severe)
	return append([]timeline.TimeRange(nil), p.flagged...), append([]timeline.TimeRange(nil), p.severe...), nil
}

func (p *stubProvider) seenTerms() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.terms...)
}

// stubSeparator writes silent vocals and a constant instrumental.
type stubSeparator struct{}

func (stubSeparator) Separate(_ context.Context, source, outputDir string) error {
	track, err := audio.DecodeWAV(source)
	if err != nil {
		return err
	}
	dir := spleeter.StemDir(outputDir, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := audio.EncodeWAV(testsupport.Constant(track.Len(), 0.25), filepath.Join(dir, spleeter.AccompanimentFile)); err != nil {
		return err
	}
	return audio.EncodeWAV(testsupport.Constant(track.Len(), 0), filepath.Join(dir, spleeter.VocalsFile))
}

// useStubPipeline routes every runner the CLI builds through provider and a
// stub separator.
func useStubPipeline(t *testing.T, provider *stubProvider) {
	t.Helper()
	previous := newPipelineRunner
	newPipelineRunner = func(cfg *config.Config, logger *slog.Logger, opts ...pipeline.Option) *pipeline.Runner {
		opts = append(opts, pipeline.WithProvider(provider), pipeline.WithSeparator(stubSeparator{}))
		return pipeline.New(cfg, logger, opts...)
	}
	t.Cleanup(func() { newPipelineRunner = previous })
}

// stubTranscriber returns fixed segments and records the backend it was built for.
type stubTranscriber struct {
	mu       sync.Mutex
	segments []whisperx.Segment
	err      error
	backends []string
}

func (s *stubTranscriber) Transcribe(context.Context, string) ([]whisperx.Segment, error) {
	return s.segments, s.err
}

func (s *stubTranscriber) builtFor() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.backends...)
}

func useStubTranscriber(t *testing.T, stub *stubTranscriber) {
	t.Helper()
	previous := newTranscriber
	newTranscriber = func(cfg *config.Config) transcribe.Transcriber {
		stub.mu.Lock()
		stub.backends = append(stub.backends, cfg.Transcription.Backend)
		stub.mu.Unlock()
		return stub
	}
	t.Cleanup(func() { newTranscriber = previous })
}
