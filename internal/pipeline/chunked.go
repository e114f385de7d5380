package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"censorwave/internal/audio"
	"censorwave/internal/logging"
	"censorwave/internal/services"
	"censorwave/internal/timeline"
)

// RunChunked splits the source into chunks of equal length, censors each in
// turn, and joins the results into req.Output. chunks <= 0 uses the configured
// count; one chunk is a plain Run. The chunk directory is always removed.
func (r *Runner) RunChunked(ctx context.Context, req Request, chunks int) (Result, error) {
	if chunks <= 0 {
		chunks = r.cfg.Batch.Chunks
	}
	if chunks <= 1 {
		return r.Run(ctx, req)
	}

	started := r.now()
	req, err := r.prepare(req)
	if err != nil {
		return Result{}, err
	}
	res := Result{RunID: r.newID(), Source: req.Source, Output: req.Output, Mode: req.Mode, Chunks: chunks}
	err = r.runChunks(ctx, req, &res)
	res.Elapsed = r.now().Sub(started)
	r.record(ctx, req, res, err, started)
	return res, err
}

func (r *Runner) runChunks(ctx context.Context, req Request, res *Result) error {
	if err := r.checkReady(); err != nil {
		return err
	}
	lock, err := r.acquireLock(req.Source)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	ctx = services.WithRunID(ctx, res.RunID)
	ctx = services.WithSource(ctx, req.Source)
	logger := logging.WithContext(ctx, r.logger)

	chunkDir := filepath.Join(r.cfg.ChunksDir(), baseName(req.Source)+"-"+res.RunID)
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return fmt.Errorf("ensure chunk dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(chunkDir); err != nil {
			logging.WarnWithContext(logger, "chunk cleanup failed", "cleanup_failed",
				logging.Error(err),
				logging.String("chunk_dir", chunkDir))
		}
	}()

	original, err := r.codec.Decode(ctx, req.Source)
	if err != nil {
		return err
	}
	bounds := splitFrames(original.Len(), res.Chunks)
	res.Chunks = len(bounds)

	outputs := make([]audio.Track, 0, len(bounds))
	for i, b := range bounds {
		name := fmt.Sprintf("%s-chunk%02d", baseName(req.Source), i+1)
		chunkReq := Request{
			Source:       filepath.Join(chunkDir, name+".wav"),
			Output:       filepath.Join(chunkDir, name+"-censored.wav"),
			Mode:         req.Mode,
			FlaggedTerms: req.FlaggedTerms,
			SevereTerms:  req.SevereTerms,
		}
		if err := audio.EncodeWAV(original.SliceFrames(b[0], b[1]), chunkReq.Source); err != nil {
			return fmt.Errorf("write chunk %d: %w", i+1, err)
		}

		logger.Info("processing chunk",
			logging.String(logging.FieldEventType, "chunk_started"),
			logging.Int("chunk", i+1),
			logging.Int("chunks", len(bounds)))
		plan, _, err := r.execute(ctx, chunkReq, fmt.Sprintf("%s-%02d", res.RunID, i+1))
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i+1, err)
		}
		offset := original.Format().SampleRate.D(b[0]).Milliseconds()
		for _, entry := range plan.Entries {
			entry.Range.StartMS += offset
			entry.Range.EndMS += offset
			res.Plan.Entries = append(res.Plan.Entries, entry)
		}

		out, err := r.codec.Decode(ctx, chunkReq.Output)
		if err != nil {
			return fmt.Errorf("read chunk %d output: %w", i+1, err)
		}
		outputs = append(outputs, out)
	}

	if res.Plan.Empty() {
		copied, err := r.passthrough(ctx, req)
		res.Copied = copied
		return err
	}

	joined, err := audio.Silence(original.Format(), 0).Concat(outputs...)
	if err != nil {
		return fmt.Errorf("join chunks: %w", err)
	}
	if err := r.publish(ctx, joined, req.Output, r.outputFormat(req)); err != nil {
		return err
	}
	r.validate(ctx, req.Output, joined)

	logger.Info("chunked run completed",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.String("output", req.Output),
		logging.Int("flagged", res.Plan.Count(timeline.KindFlagged)),
		logging.Int("severe", res.Plan.Count(timeline.KindSevere)))
	return nil
}

// splitFrames divides n frames into at most k contiguous [from, to) spans.
// The last span absorbs the remainder.
func splitFrames(n, k int) [][2]int {
	if k > n {
		k = n
	}
	if k <= 1 {
		return [][2]int{{0, n}}
	}
	size := n / k
	spans := make([][2]int, 0, k)
	for i := 0; i < k; i++ {
		from := i * size
		to := from + size
		if i == k-1 {
			to = n
		}
		spans = append(spans, [2]int{from, to})
	}
	return spans
}
