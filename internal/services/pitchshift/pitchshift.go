// Package pitchshift lowers or raises the pitch of a clip with ffmpeg while
// keeping its duration and sample rate.
package pitchshift

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Service shells out to ffmpeg's asetrate/aresample/atempo chain.
type Service struct {
	ffmpeg        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService builds a pitch shifter using the given ffmpeg binary.
func NewService(ffmpegBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Service{ffmpeg: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Shift writes a copy of input shifted by semitones (negative lowers pitch)
// to output. sampleRate is the clip's rate and is preserved.
func (s *Service) Shift(ctx context.Context, input, output string, semitones float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("pitch shift: invalid sample rate %d", sampleRate)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-af", FilterGraph(semitones, sampleRate),
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		output,
	}
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.ffmpeg, args...)
	}
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...) //nolint:gosec
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg pitch shift: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// FilterGraph builds the ffmpeg audio filter for a semitone shift. asetrate
// changes pitch and speed together, aresample restores the rate, and atempo
// undoes the speed change. atempo accepts 0.5..100 per instance so the
// correction is split into a chain when needed.
func FilterGraph(semitones float64, sampleRate int) string {
	factor := math.Pow(2, semitones/12)
	parts := []string{
		fmt.Sprintf("asetrate=%d", int(math.Round(float64(sampleRate)*factor))),
		fmt.Sprintf("aresample=%d", sampleRate),
	}
	tempo := 1 / factor
	for tempo > 2 {
		parts = append(parts, "atempo=2.0")
		tempo /= 2
	}
	for tempo < 0.5 {
		parts = append(parts, "atempo=0.5")
		tempo /= 0.5
	}
	parts = append(parts, "atempo="+strconv.FormatFloat(tempo, 'f', 6, 64))
	return strings.Join(parts, ",")
}
