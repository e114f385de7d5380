package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"censorwave/internal/services"
)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Codec decodes and encodes tracks, shelling out to ffmpeg for containers the
// in-process decoders cannot read and for compressed output.
type Codec struct {
	ffmpeg  string
	tempDir string
	run     CommandRunner
}

// NewCodec builds a codec. tempDir holds intermediate WAV files; empty means
// the system temp directory.
func NewCodec(ffmpegBinary, tempDir string) *Codec {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	c := &Codec{ffmpeg: ffmpegBinary, tempDir: tempDir}
	c.run = c.execFFmpeg
	return c
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Codec) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		c.run = runner
	}
}

// Decode reads an audio file into a Track.
func (c *Codec) Decode(ctx context.Context, path string) (Track, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return decodeFile(path, func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) })
	case ".mp3":
		return decodeFile(path, func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) })
	case ".flac":
		return decodeFile(path, func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(f) })
	default:
		return c.decodeViaFFmpeg(ctx, path)
	}
}

// DecodeWAV reads a WAV file without going through the extension switch.
func DecodeWAV(path string) (Track, error) {
	return decodeFile(path, func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) })
}

func decodeFile(path string, decode func(*os.File) (beep.StreamSeekCloser, beep.Format, error)) (Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return Track{}, services.Wrap(services.ErrNotFound, "audio", "open", fmt.Sprintf("Cannot open %s", filepath.Base(path)), err)
	}
	defer file.Close()

	stream, format, err := decode(file)
	if err != nil {
		return Track{}, services.Wrap(services.ErrValidation, "audio", "decode", fmt.Sprintf("Cannot decode %s", filepath.Base(path)), err)
	}
	defer stream.Close()

	track, err := Collect(stream, format)
	if err != nil {
		return Track{}, services.Wrap(services.ErrValidation, "audio", "decode", fmt.Sprintf("Read failed for %s", filepath.Base(path)), err)
	}
	return track, nil
}

func (c *Codec) decodeViaFFmpeg(ctx context.Context, path string) (Track, error) {
	tmp, err := c.tempFile("decode-*.wav")
	if err != nil {
		return Track{}, err
	}
	defer os.Remove(tmp)

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", path, "-vn", "-c:a", "pcm_s16le", "-f", "wav", tmp}
	if err := c.run(ctx, c.ffmpeg, args...); err != nil {
		return Track{}, services.Wrap(services.ErrExternalTool, "audio", "ffmpeg decode", fmt.Sprintf("Cannot convert %s", filepath.Base(path)), err)
	}
	return DecodeWAV(tmp)
}

// Encode writes track to dest using the given output format. dest may carry
// any extension (for example a .partial suffix); the container comes from format.
func (c *Codec) Encode(ctx context.Context, track Track, dest string, format OutputFormat) error {
	if format.Native() {
		return EncodeWAV(track, dest)
	}

	tmp, err := c.tempFile("encode-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := EncodeWAV(track, tmp); err != nil {
		return err
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", tmp, "-c:a", format.Codec}
	args = append(args, format.Args...)
	args = append(args, "-f", format.Muxer, dest)
	if err := c.run(ctx, c.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "ffmpeg encode", fmt.Sprintf("Cannot encode %s output", format.Muxer), err)
	}
	return nil
}

// EncodeWAV writes track as PCM WAV at the track's precision.
func EncodeWAV(track Track, dest string) error {
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	if err := wav.Encode(file, track.Streamer(), track.Format()); err != nil {
		_ = file.Close()
		_ = os.Remove(dest)
		return services.Wrap(services.ErrValidation, "audio", "encode wav", "WAV encode failed", err)
	}
	return file.Close()
}

func (c *Codec) tempFile(pattern string) (string, error) {
	if c.tempDir != "" {
		if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
			return "", fmt.Errorf("ensure temp dir: %w", err)
		}
	}
	f, err := os.CreateTemp(c.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return name, nil
}

func (c *Codec) execFFmpeg(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdin = nil
	cmd.Stdout = io.Discard
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
