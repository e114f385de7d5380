package separation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"censorwave/internal/fileutil"
	"censorwave/internal/logging"
	"censorwave/internal/services"
	"censorwave/internal/services/spleeter"
)

// Separator writes <outputDir>/<base>/accompaniment.wav and vocals.wav.
type Separator interface {
	Separate(ctx context.Context, source, outputDir string) error
}

// Result names the two stem files for a source.
type Result struct {
	Instrumental string `json:"instrumental"`
	Vocals       string `json:"vocals"`
}

// Coordinator owns the separation scratch directory.
type Coordinator struct {
	separator Separator
	dir       string
	logger    *slog.Logger
}

// NewCoordinator builds a coordinator writing under dir.
func NewCoordinator(separator Separator, dir string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		separator: separator,
		dir:       dir,
		logger:    logging.NewComponentLogger(logger, "separation"),
	}
}

// Dir returns the separation output root.
func (c *Coordinator) Dir() string {
	return c.dir
}

// Expected returns the stem paths for audioPath whether or not they exist.
func (c *Coordinator) Expected(audioPath string) Result {
	stemDir := spleeter.StemDir(c.dir, audioPath)
	return Result{
		Instrumental: filepath.Join(stemDir, spleeter.AccompanimentFile),
		Vocals:       filepath.Join(stemDir, spleeter.VocalsFile),
	}
}

// TryGetResult reports the stems when both files are on disk.
func (c *Coordinator) TryGetResult(audioPath string) (Result, bool) {
	res := c.Expected(audioPath)
	if fileutil.FileExists(res.Instrumental) && fileutil.FileExists(res.Vocals) {
		return res, true
	}
	return Result{}, false
}

// Begin starts separating audioPath immediately and returns its handle.
func (c *Coordinator) Begin(ctx context.Context, audioPath string) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		coord:     c,
		audioPath: audioPath,
		done:      make(chan struct{}),
		cancel:    cancel,
	}

	logger := logging.WithContext(ctx, c.logger)
	go func() {
		defer close(h.done)
		defer cancel()
		started := time.Now()
		logger.Info("separation started",
			logging.String(logging.FieldEventType, "separation_started"),
			logging.String("output_dir", c.dir))
		if c.separator == nil {
			h.err = errors.New("no separator configured")
			return
		}
		h.err = c.separator.Separate(runCtx, audioPath, c.dir)
		if h.err != nil {
			if runCtx.Err() != nil {
				logger.Debug("separation cancelled", logging.Error(h.err))
				return
			}
			logging.ErrorWithContext(logger, "separation failed", "separation_failed",
				logging.Error(h.err),
				logging.String(logging.FieldErrorHint, "check that spleeter runs on this file"))
			return
		}
		logger.Info("separation completed",
			logging.String(logging.FieldEventType, "separation_completed"),
			logging.Duration("elapsed", time.Since(started)))
	}()
	return h
}

// Cleanup removes the stem directory for audioPath.
func (c *Coordinator) Cleanup(audioPath string) error {
	if c.dir == "" {
		return nil
	}
	if err := os.RemoveAll(spleeter.StemDir(c.dir, audioPath)); err != nil {
		return fmt.Errorf("remove separated stems: %w", err)
	}
	return nil
}

// RemoveAll deletes the whole separation directory.
func (c *Coordinator) RemoveAll() error {
	if c.dir == "" {
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove separation dir: %w", err)
	}
	return nil
}

// Handle tracks one background separation.
type Handle struct {
	coord     *Coordinator
	audioPath string
	done      chan struct{}
	err       error
	cancel    context.CancelFunc
}

// Done closes when the separator returns.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the separator's error. Only meaningful after Done has closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Stop cancels the separator and waits for it to return.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Await waits for completion. bound <= 0 waits until the separator returns or
// ctx ends. Exceeding bound yields services.ErrTimeout; a separator failure
// yields services.ErrExternalTool; missing stems after completion yield
// services.ErrNotFound.
func (h *Handle) Await(ctx context.Context, bound time.Duration) (Result, error) {
	var timeout <-chan time.Time
	if bound > 0 {
		timer := time.NewTimer(bound)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-h.done:
	case <-timeout:
		return Result{}, services.Wrap(services.ErrTimeout, "separation", "await",
			fmt.Sprintf("Stems for %s not ready within %s", filepath.Base(h.audioPath), bound), nil)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	if h.err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "separation", "separate",
			fmt.Sprintf("Separation failed for %s", filepath.Base(h.audioPath)), h.err)
	}
	res, ok := h.coord.TryGetResult(h.audioPath)
	if !ok {
		expected := h.coord.Expected(h.audioPath)
		return Result{}, services.Wrap(services.ErrNotFound, "separation", "collect",
			fmt.Sprintf("Separator finished but %s or %s is missing", expected.Instrumental, expected.Vocals), nil)
	}
	return res, nil
}
