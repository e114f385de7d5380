package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"censorwave/internal/audio"
	"censorwave/internal/fileutil"
	"censorwave/internal/history"
	"censorwave/internal/logging"
	"censorwave/internal/media/ffprobe"
	"censorwave/internal/preflight"
	"censorwave/internal/render"
	"censorwave/internal/separation"
	"censorwave/internal/services"
	"censorwave/internal/timeline"
)

// Run censors req.Source and writes req.Output. On failure no output file is
// left behind; scratch state is removed either way.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	started := r.now()
	req, err := r.prepare(req)
	if err != nil {
		return Result{}, err
	}
	res, err := r.runLocked(ctx, req, r.newID())
	res.Elapsed = r.now().Sub(started)
	r.record(ctx, req, res, err, started)
	return res, err
}

// Plan transcribes and merges without rendering.
func (r *Runner) Plan(ctx context.Context, req Request) (timeline.Plan, error) {
	req, err := r.prepare(req)
	if err != nil {
		return timeline.Plan{}, err
	}
	ctx = services.WithSource(ctx, req.Source)
	return r.buildPlan(ctx, req)
}

// prepare validates req and fills defaults.
func (r *Runner) prepare(req Request) (Request, error) {
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		return req, services.Wrap(services.ErrValidation, "pipeline", "request", "Source path required", nil)
	}
	abs, err := filepath.Abs(req.Source)
	if err != nil {
		return req, fmt.Errorf("resolve source: %w", err)
	}
	req.Source = abs
	info, err := os.Stat(req.Source)
	if err != nil {
		return req, services.Wrap(services.ErrNotFound, "pipeline", "request", fmt.Sprintf("Source %s not readable", req.Source), err)
	}
	if info.IsDir() {
		return req, services.Wrap(services.ErrValidation, "pipeline", "request", fmt.Sprintf("Source %s is a directory", req.Source), nil)
	}

	if req.Mode == "" {
		req.Mode = render.Mode(r.cfg.Render.Mode)
	}
	mode, err := render.ParseMode(string(req.Mode))
	if err != nil {
		return req, services.Wrap(services.ErrValidation, "pipeline", "request", "Invalid mode", err)
	}
	req.Mode = mode

	if strings.TrimSpace(req.Output) == "" {
		req.Output = audio.DefaultOutputPath(req.Source, audio.OutputFormatFor(req.Source, r.cfg.Render.MP3Bitrate))
	}
	if req.Output, err = filepath.Abs(req.Output); err != nil {
		return req, fmt.Errorf("resolve output: %w", err)
	}
	if req.Output == req.Source {
		return req, services.Wrap(services.ErrValidation, "pipeline", "request", "Output path must differ from the source", nil)
	}
	return req, nil
}

// outputFormat prefers the output path's extension and falls back to the source's.
func (r *Runner) outputFormat(req Request) audio.OutputFormat {
	format := audio.OutputFormatFor(req.Output, r.cfg.Render.MP3Bitrate)
	if format.Fallback {
		format = audio.OutputFormatFor(req.Source, r.cfg.Render.MP3Bitrate)
	}
	return format
}

func (r *Runner) checkReady() error {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "preflight", "Cannot create scratch directories", err)
	}
	if failed := preflight.Failed(preflight.RunAll(r.cfg)); len(failed) > 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "preflight", failed[0].Name+": "+failed[0].Detail, nil)
	}
	return nil
}

// acquireLock takes the per-source run lock. A second run on the same file
// fails immediately.
func (r *Runner) acquireLock(source string) (*flock.Flock, error) {
	if err := os.MkdirAll(r.cfg.LocksDir(), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(r.cfg.LocksDir(), baseName(source)+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "lock",
			fmt.Sprintf("Another run is already processing %s", filepath.Base(source)), nil)
	}
	return lock, nil
}

func (r *Runner) runLocked(ctx context.Context, req Request, runID string) (Result, error) {
	res := Result{RunID: runID, Source: req.Source, Output: req.Output, Mode: req.Mode, Chunks: 1}
	if err := r.checkReady(); err != nil {
		return res, err
	}
	lock, err := r.acquireLock(req.Source)
	if err != nil {
		return res, err
	}
	defer func() { _ = lock.Unlock() }()

	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithSource(ctx, req.Source)
	plan, copied, err := r.execute(ctx, req, runID)
	res.Plan = plan
	res.Copied = copied
	return res, err
}

// execute runs the producers, renders, and publishes. The caller holds the lock.
func (r *Runner) execute(ctx context.Context, req Request, runID string) (timeline.Plan, bool, error) {
	logger := logging.WithContext(ctx, r.logger)
	clipDir := filepath.Join(r.cfg.ClipsDir(), baseName(req.Source)+"-"+runID)

	var handle *separation.Handle
	defer func() {
		if handle != nil {
			handle.Stop()
		}
		if err := r.coord.Cleanup(req.Source); err != nil {
			logging.WarnWithContext(logger, "stem cleanup failed", "cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "separated stems remain in scratch"))
		}
		if err := os.RemoveAll(clipDir); err != nil {
			logging.WarnWithContext(logger, "clip cleanup failed", "cleanup_failed",
				logging.Error(err),
				logging.String("clip_dir", clipDir))
		}
	}()

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("mode", string(req.Mode)),
		logging.String("output", req.Output))

	if req.Mode.NeedsStems() {
		handle = r.coord.Begin(logging.WithStage(ctx, "separate"), req.Source)
	}

	type planResult struct {
		plan timeline.Plan
		err  error
	}
	planCtx, cancelPlan := context.WithCancel(ctx)
	defer cancelPlan()
	planCh := make(chan planResult, 1)
	go func() {
		plan, err := r.buildPlan(logging.WithStage(planCtx, "transcribe"), req)
		planCh <- planResult{plan: plan, err: err}
	}()

	// A separator failure ends the run without waiting for transcription.
	var sepDone <-chan struct{}
	if handle != nil {
		sepDone = handle.Done()
	}
	var pr planResult
	for waiting := true; waiting; {
		select {
		case pr = <-planCh:
			waiting = false
		case <-sepDone:
			sepDone = nil
			if handle.Err() != nil {
				_, err := handle.Await(ctx, 0)
				return timeline.Plan{}, false, err
			}
		case <-ctx.Done():
			return timeline.Plan{}, false, ctx.Err()
		}
	}
	if pr.err != nil {
		return timeline.Plan{}, false, pr.err
	}
	plan := pr.plan

	if plan.Empty() {
		if handle != nil {
			handle.Stop()
		}
		logger.Info("no flagged words found, output mirrors source",
			logging.String(logging.FieldEventType, "plan_empty"))
		copied, err := r.passthrough(ctx, req)
		return plan, copied, err
	}

	logger.Info("render plan ready",
		logging.String(logging.FieldEventType, "plan_ready"),
		logging.Int("flagged", plan.Count(timeline.KindFlagged)),
		logging.Int("severe", plan.Count(timeline.KindSevere)))

	stems := render.Stems{}
	if plan.NeedsInstrumental() || plan.NeedsVocals() {
		bound := r.waitBound(req.Mode)
		sep, err := handle.Await(ctx, bound)
		if err != nil {
			return plan, false, err
		}
		if stems, err = r.loadStems(ctx, sep, plan); err != nil {
			return plan, false, err
		}
	} else if handle != nil {
		handle.Stop()
	}

	original, err := r.codec.Decode(ctx, req.Source)
	if err != nil {
		return plan, false, err
	}
	engine := render.NewEngine(r.shifter, render.Options{
		PitchSemitones: r.cfg.Render.PitchSemitones,
		ClipDir:        clipDir,
	}, r.logger)
	rendered, err := engine.Render(logging.WithStage(ctx, "render"), original, plan, stems)
	if err != nil {
		return plan, false, err
	}

	format := r.outputFormat(req)
	if err := r.publish(ctx, rendered, req.Output, format); err != nil {
		return plan, false, err
	}
	r.validate(ctx, req.Output, rendered)

	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.String("output", req.Output),
		logging.Int("segments", len(plan.Entries)))
	return plan, false, nil
}

// buildPlan queries the provider for the mode and merges the ranges. Outside
// the dual modes severe terms are folded into the flagged list.
func (r *Runner) buildPlan(ctx context.Context, req Request) (timeline.Plan, error) {
	var flagged, severe []timeline.TimeRange
	var err error
	if req.Mode.SeverityAware() {
		flagged, severe, err = r.provider.FlaggedAndSevereRanges(ctx, req.Source, req.FlaggedTerms, req.SevereTerms)
	} else {
		terms := append(append([]string(nil), req.FlaggedTerms...), req.SevereTerms...)
		flagged, err = r.provider.FlaggedRanges(ctx, req.Source, terms)
	}
	if err != nil {
		return timeline.Plan{}, err
	}
	return timeline.Merge(flagged, severe, req.Mode.Policy()), nil
}

func (r *Runner) loadStems(ctx context.Context, sep separation.Result, plan timeline.Plan) (render.Stems, error) {
	var stems render.Stems
	if plan.NeedsInstrumental() {
		inst, err := r.codec.Decode(ctx, sep.Instrumental)
		if err != nil {
			return stems, fmt.Errorf("read instrumental: %w", err)
		}
		stems.Instrumental = &inst
	}
	if plan.NeedsVocals() {
		vocals, err := r.codec.Decode(ctx, sep.Vocals)
		if err != nil {
			return stems, fmt.Errorf("read vocals: %w", err)
		}
		stems.Vocals = &vocals
	}
	return stems, nil
}

// passthrough writes the untouched source to the output. Same-extension
// outputs are byte copies; others are re-encoded.
func (r *Runner) passthrough(ctx context.Context, req Request) (bool, error) {
	if strings.EqualFold(filepath.Ext(req.Source), filepath.Ext(req.Output)) {
		partial := fileutil.PartialPath(req.Output)
		if err := fileutil.CopyFileVerified(req.Source, partial); err != nil {
			_ = os.Remove(partial)
			return false, fmt.Errorf("copy source: %w", err)
		}
		return true, fileutil.Publish(req.Output)
	}
	original, err := r.codec.Decode(ctx, req.Source)
	if err != nil {
		return false, err
	}
	return false, r.publish(ctx, original, req.Output, r.outputFormat(req))
}

// publish encodes to "<output>.partial" and renames it into place.
func (r *Runner) publish(ctx context.Context, track audio.Track, output string, format audio.OutputFormat) error {
	if format.Fallback {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "unrecognised output extension, writing WAV", "output_fallback",
			logging.String("output", output),
			logging.String(logging.FieldImpact, "output container is WAV regardless of extension"))
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	partial := fileutil.PartialPath(output)
	if err := r.codec.Encode(ctx, track, partial, format); err != nil {
		_ = os.Remove(partial)
		return err
	}
	return fileutil.Publish(output)
}

// validate probes the output and warns when its duration drifts from the render.
func (r *Runner) validate(ctx context.Context, output string, rendered audio.Track) {
	if !r.cfg.Render.ValidateOutput || r.prober == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	probe, err := r.prober.Inspect(ctx, output)
	if err == nil {
		err = ffprobe.CheckAudio(probe, rendered.Duration().Seconds(), ffprobe.DefaultTolerance)
	}
	if err != nil {
		logging.WarnWithContext(logger, "output validation failed", "output_validation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the output with ffprobe"),
			logging.String(logging.FieldImpact, "output was written but may be truncated"))
	}
}

// record writes the run to the ledger. Ledger failures only warn.
func (r *Runner) record(ctx context.Context, req Request, res Result, runErr error, started time.Time) {
	if r.recorder == nil {
		return
	}
	run := history.Run{
		ID:           res.RunID,
		SourcePath:   req.Source,
		OutputPath:   req.Output,
		Mode:         string(req.Mode),
		Status:       history.StatusSucceeded,
		FlaggedCount: res.Plan.Count(timeline.KindFlagged),
		SevereCount:  res.Plan.Count(timeline.KindSevere),
		Chunks:       res.Chunks,
		StartedAt:    started,
		FinishedAt:   r.now(),
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		run.OutputPath = ""
		run.ErrorKind = services.Kind(runErr)
		run.ErrorMessage = runErr.Error()
	}
	if err := r.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "history record failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from censorwave history"))
	}
}
