package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"censorwave/internal/audio"
	"censorwave/internal/config"
	"censorwave/internal/history"
	"censorwave/internal/logging"
	"censorwave/internal/media/ffprobe"
	"censorwave/internal/render"
	"censorwave/internal/separation"
	"censorwave/internal/services/gemini"
	"censorwave/internal/services/pitchshift"
	"censorwave/internal/services/spleeter"
	"censorwave/internal/services/whisperx"
	"censorwave/internal/textutil"
	"censorwave/internal/timeline"
	"censorwave/internal/transcribe"
)

// RangeProvider finds flagged and severe ranges in a source.
type RangeProvider interface {
	FlaggedRanges(ctx context.Context, audioPath string, terms []string) ([]timeline.TimeRange, error)
	FlaggedAndSevereRanges(ctx context.Context, audioPath string, flagged, severe []string) ([]timeline.TimeRange, []timeline.TimeRange, error)
}

// Codec reads and writes audio files.
type Codec interface {
	Decode(ctx context.Context, path string) (audio.Track, error)
	Encode(ctx context.Context, track audio.Track, dest string, format audio.OutputFormat) error
}

// Prober inspects a written output file.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Recorder persists run outcomes.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Request describes one source to censor.
type Request struct {
	Source string
	// Output defaults to "<dir>/<base>-censored<ext>".
	Output       string
	Mode         render.Mode
	FlaggedTerms []string
	SevereTerms  []string
}

// Result summarizes a finished run.
type Result struct {
	RunID  string        `json:"run_id"`
	Source string        `json:"source"`
	Output string        `json:"output"`
	Mode   render.Mode   `json:"mode"`
	Plan   timeline.Plan `json:"plan"`
	// Copied is set when nothing matched and the source was copied unchanged.
	Copied  bool          `json:"copied"`
	Chunks  int           `json:"chunks"`
	Elapsed time.Duration `json:"elapsed"`
}

// Runner executes censorship runs.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider RangeProvider
	coord    *separation.Coordinator
	codec    Codec
	shifter  render.PitchShifter
	prober   Prober
	recorder Recorder
	newID    func() string
	now      func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithProvider replaces the WhisperX-backed range provider.
func WithProvider(p RangeProvider) Option {
	return func(r *Runner) {
		if p != nil {
			r.provider = p
		}
	}
}

// WithSeparator replaces the Spleeter separator.
func WithSeparator(s separation.Separator) Option {
	return func(r *Runner) {
		if s != nil {
			r.coord = separation.NewCoordinator(s, r.cfg.SeparationDir(), r.logger)
		}
	}
}

// WithCodec replaces the audio codec.
func WithCodec(c Codec) Option {
	return func(r *Runner) {
		if c != nil {
			r.codec = c
		}
	}
}

// WithPitchShifter replaces the ffmpeg pitch shifter.
func WithPitchShifter(s render.PitchShifter) Option {
	return func(r *Runner) {
		if s != nil {
			r.shifter = s
		}
	}
}

// WithProber replaces the ffprobe output validator.
func WithProber(p Prober) Option {
	return func(r *Runner) {
		if p != nil {
			r.prober = p
		}
	}
}

// WithRecorder enables the run ledger.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithClock overrides time and id generation (used in tests).
func WithClock(now func() time.Time, newID func() string) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
		if newID != nil {
			r.newID = newID
		}
	}
}

// New builds a Runner wired to the real collaborators described by cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	logger = logging.NewComponentLogger(logger, "pipeline")
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}

	cacheTag := ""
	if cfg.Transcription.Backend != config.BackendWhisperX {
		cacheTag = cfg.Transcription.Backend
	}
	r.provider = transcribe.NewProvider(
		NewTranscriber(cfg),
		transcribe.Options{
			BufferMS:      cfg.Transcription.BufferMS,
			CacheEnabled:  cfg.Transcription.CacheEnabled,
			CacheKeyTerms: cfg.Transcription.CacheKeyTerms,
			CacheTag:      cacheTag,
		},
		logger,
	)
	r.coord = separation.NewCoordinator(
		spleeter.NewService(spleeter.Config{Command: cfg.Separation.Command, Model: cfg.Separation.Model}),
		cfg.SeparationDir(),
		logger,
	)
	r.codec = audio.NewCodec(cfg.FFmpegBinary(), filepath.Join(cfg.Paths.ScratchDir, "codec"))
	r.shifter = pitchshift.NewService(cfg.FFmpegBinary())
	r.prober = ffprobe.NewProber(cfg.FFprobeBinary())

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewTranscriber builds the transcriber selected by transcription.backend.
func NewTranscriber(cfg *config.Config) transcribe.Transcriber {
	if cfg.Transcription.Backend == config.BackendGemini {
		return gemini.NewService(gemini.Config{
			APIKey:   cfg.Transcription.GeminiAPIKey,
			Model:    cfg.Transcription.GeminiModel,
			Endpoint: cfg.Transcription.GeminiEndpoint,
			Language: cfg.Transcription.Language,
		})
	}
	wx := whisperx.NewService(whisperx.Config{
		Model:       cfg.Transcription.Model,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
		VADMethod:   cfg.Transcription.VADMethod,
		HFToken:     cfg.Transcription.HFToken,
		Language:    cfg.Transcription.Language,
		UVXBinary:   cfg.Tools.UVX,
	})
	return transcribe.WhisperX{Service: wx, OutputDir: cfg.TranscriptsDir()}
}

// waitBound returns how long to wait for stems once the plan is known.
// Modes that read vocals wait for the full separation by default.
func (r *Runner) waitBound(mode render.Mode) time.Duration {
	seconds := r.cfg.Separation.WaitTimeoutSeconds
	if mode.NeedsVocals() {
		seconds = r.cfg.Separation.FullWaitTimeoutSeconds
	}
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// baseName derives the scratch token for a source: lock, clip, and chunk names.
func baseName(path string) string {
	base := filepath.Base(path)
	return textutil.SanitizeToken(strings.TrimSuffix(base, filepath.Ext(base)))
}
