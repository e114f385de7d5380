package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"censorwave/internal/audio"
	"censorwave/internal/logging"
	"censorwave/internal/services"
	"censorwave/internal/timeline"
)

// DefaultPitchSemitones lowers vocals far enough to be unintelligible.
const DefaultPitchSemitones = -10

// PitchShifter writes a pitch-shifted copy of a clip with the same duration
// and sample rate.
type PitchShifter interface {
	Shift(ctx context.Context, input, output string, semitones float64, sampleRate int) error
}

// Stems carries the separated tracks. Either may be nil when not needed.
type Stems struct {
	Instrumental *audio.Track
	Vocals       *audio.Track
}

// Options configures an Engine.
type Options struct {
	PitchSemitones float64
	// ClipDir receives scratch clips for pitch shifting. The caller removes it.
	ClipDir string
}

// Engine renders a plan onto an original track.
type Engine struct {
	shifter   PitchShifter
	semitones float64
	clipDir   string
	logger    *slog.Logger
}

// NewEngine builds an Engine.
func NewEngine(shifter PitchShifter, opts Options, logger *slog.Logger) *Engine {
	semitones := opts.PitchSemitones
	if semitones == 0 {
		semitones = DefaultPitchSemitones
	}
	return &Engine{
		shifter:   shifter,
		semitones: semitones,
		clipDir:   opts.ClipDir,
		logger:    logging.NewComponentLogger(logger, "render"),
	}
}

// Render walks plan over original and returns the rebuilt track. Missing
// stems fail before any work is done.
func (e *Engine) Render(ctx context.Context, original audio.Track, plan timeline.Plan, stems Stems) (audio.Track, error) {
	logger := logging.WithContext(ctx, e.logger)

	if plan.NeedsInstrumental() && stems.Instrumental == nil {
		return audio.Track{}, services.Wrap(services.ErrNotFound, "render", "stems", "Instrumental stem required but unavailable", nil)
	}
	if plan.NeedsVocals() && stems.Vocals == nil {
		return audio.Track{}, services.Wrap(services.ErrNotFound, "render", "stems", "Vocals stem required but unavailable", nil)
	}

	var inst, vocals audio.Track
	var err error
	if stems.Instrumental != nil {
		if inst, err = stems.Instrumental.Conform(original.Format()); err != nil {
			return audio.Track{}, fmt.Errorf("conform instrumental: %w", err)
		}
	}
	if stems.Vocals != nil {
		if vocals, err = stems.Vocals.Conform(original.Format()); err != nil {
			return audio.Track{}, fmt.Errorf("conform vocals: %w", err)
		}
	}

	pieces := make([]audio.Track, 0, 2*len(plan.Entries)+1)
	prevEnd := 0
	for idx, entry := range plan.Entries {
		start := original.FrameAt(entry.Range.StartMS)
		end := original.FrameAt(entry.Range.EndMS)

		pieces = append(pieces, original.SliceFrames(prevEnd, start))

		logger.Debug("rendering segment",
			logging.Int("index", idx),
			logging.Millis("start", entry.Range.StartMS),
			logging.Millis("end", entry.Range.EndMS),
			logging.String("strategy", string(entry.Strategy)))

		segment, err := e.segment(ctx, idx, entry.Strategy, original, inst, vocals, start, end)
		if err != nil {
			return audio.Track{}, err
		}
		pieces = append(pieces, segment.Fit(end-start))
		prevEnd = end
	}
	pieces = append(pieces, original.SliceFrames(prevEnd, original.Len()))

	out, err := audio.Silence(original.Format(), 0).Concat(pieces...)
	if err != nil {
		return audio.Track{}, fmt.Errorf("assemble output: %w", err)
	}
	logger.Info("render completed",
		logging.String(logging.FieldEventType, "render_completed"),
		logging.Int("segments", len(plan.Entries)),
		logging.Int64("duration_ms", out.DurationMS()))
	return out, nil
}

func (e *Engine) segment(ctx context.Context, idx int, strategy timeline.Strategy, original, inst, vocals audio.Track, start, end int) (audio.Track, error) {
	n := end - start
	switch strategy {
	case timeline.StrategySwap:
		return inst.SliceFrames(start, end), nil
	case timeline.StrategyBackspin:
		return original.SliceFrames(start, end).Reverse(), nil
	case timeline.StrategyVocalReverse:
		return inst.SliceFrames(start, end).Fit(n).Overlay(vocals.SliceFrames(start, end).Reverse())
	case timeline.StrategyDownPitch:
		shifted, err := e.shift(ctx, idx, vocals.SliceFrames(start, end))
		if err != nil {
			return audio.Track{}, err
		}
		return inst.SliceFrames(start, end).Fit(n).Overlay(shifted)
	default:
		return audio.Track{}, services.Wrap(services.ErrValidation, "render", "segment", fmt.Sprintf("Unknown strategy %q", strategy), nil)
	}
}

// shift round-trips clip through the pitch shifter using scratch files.
func (e *Engine) shift(ctx context.Context, idx int, clip audio.Track) (audio.Track, error) {
	if clip.Len() == 0 {
		return clip, nil
	}
	if e.shifter == nil {
		return audio.Track{}, services.Wrap(services.ErrConfiguration, "render", "pitch shift", "No pitch shifter configured", nil)
	}
	dir := e.clipDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return audio.Track{}, fmt.Errorf("ensure clip dir: %w", err)
	}
	in := filepath.Join(dir, fmt.Sprintf("clip-%03d.wav", idx))
	out := filepath.Join(dir, fmt.Sprintf("clip-%03d-shifted.wav", idx))
	defer os.Remove(in)
	defer os.Remove(out)

	if err := audio.EncodeWAV(clip, in); err != nil {
		return audio.Track{}, fmt.Errorf("write clip: %w", err)
	}
	rate := int(clip.Format().SampleRate)
	if err := e.shifter.Shift(ctx, in, out, e.semitones, rate); err != nil {
		return audio.Track{}, services.Wrap(services.ErrExternalTool, "render", "pitch shift",
			fmt.Sprintf("Pitch shift failed for segment %d", idx), err)
	}
	shifted, err := audio.DecodeWAV(out)
	if err != nil {
		return audio.Track{}, services.Wrap(services.ErrExternalTool, "render", "pitch shift",
			fmt.Sprintf("Pitch shifter produced unreadable output for segment %d", idx), err)
	}
	return shifted.Conform(clip.Format())
}
