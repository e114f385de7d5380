// Package spleeter runs the Spleeter CLI to split a song into vocals and
// accompaniment stems.
package spleeter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultModel is the two-stem 16 kHz Spleeter model.
const DefaultModel = "spleeter:2stems-16kHz"

// Stem filenames Spleeter writes under <outputDir>/<base>/.
const (
	AccompanimentFile = "accompaniment.wav"
	VocalsFile        = "vocals.wav"
)

// ErrUnavailable reports that the separator binary cannot be found.
var ErrUnavailable = errors.New("spleeter unavailable")

// Config holds Spleeter settings.
type Config struct {
	Command string
	Model   string
}

// Service wraps the spleeter executable.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService builds a Spleeter service.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = "spleeter"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Separate writes accompaniment.wav and vocals.wav for source under
// outputDir/<base>/.
func (s *Service) Separate(ctx context.Context, source, outputDir string) error {
	if source == "" {
		return fmt.Errorf("separate: source path required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("separate: ensure output dir: %w", err)
	}
	args := []string{"separate", "-p", s.cfg.Model, "-o", outputDir, source}
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.cfg.Command, args...)
	}
	if _, err := exec.LookPath(s.cfg.Command); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, s.cfg.Command, err)
	}
	cmd := exec.CommandContext(ctx, s.cfg.Command, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("spleeter: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// StemDir returns the directory Spleeter writes stems for source into.
func StemDir(outputDir, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, base)
}
