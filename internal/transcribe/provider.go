package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"censorwave/internal/logging"
	"censorwave/internal/services"
	"censorwave/internal/services/whisperx"
	"censorwave/internal/textutil"
	"censorwave/internal/timeline"
)

// DefaultBufferMS pads every matched word on both sides.
const DefaultBufferMS = 50

// Transcriber produces word-level segments for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]whisperx.Segment, error)
}

// WhisperX adapts whisperx.Service to Transcriber. The raw JSON is written
// under OutputDir and removed once parsed.
type WhisperX struct {
	Service   *whisperx.Service
	OutputDir string
}

// Transcribe implements Transcriber.
func (w WhisperX) Transcribe(ctx context.Context, audioPath string) ([]whisperx.Segment, error) {
	defer func() {
		_ = os.Remove(whisperx.JSONPath(audioPath, w.OutputDir))
	}()
	return w.Service.Transcribe(ctx, audioPath, w.OutputDir)
}

// Options configures a Provider.
type Options struct {
	BufferMS      int
	CacheEnabled  bool
	CacheKeyTerms bool
	// CacheTag names the backend in cache filenames; empty for WhisperX.
	CacheTag string
}

// Provider finds flagged and severe ranges in an audio file.
type Provider struct {
	transcriber Transcriber
	cache       *Cache
	bufferMS    int
	logger      *slog.Logger
}

// NewProvider builds a Provider. A negative buffer is treated as zero.
func NewProvider(transcriber Transcriber, opts Options, logger *slog.Logger) *Provider {
	p := &Provider{
		transcriber: transcriber,
		bufferMS:    max(opts.BufferMS, 0),
		logger:      logging.NewComponentLogger(logger, "transcribe"),
	}
	if opts.CacheEnabled {
		p.cache = NewCache(opts.CacheKeyTerms, opts.CacheTag)
	}
	return p
}

// FlaggedRanges returns buffered ranges for every word in terms. A cached
// result for the same file (and term list, when keyed) is returned unchanged.
func (p *Provider) FlaggedRanges(ctx context.Context, audioPath string, terms []string) ([]timeline.TimeRange, error) {
	set := textutil.TermSet(terms)
	if len(set) == 0 {
		return []timeline.TimeRange{}, nil
	}

	var cachePath string
	if p.cache != nil {
		cachePath = p.cache.SinglePath(audioPath, textutil.TermsHash(terms))
		ranges, found, err := p.cache.LoadSingle(cachePath)
		if err != nil {
			p.warnCache(ctx, "cache_read_failed", cachePath, err)
		} else if found {
			logging.WithContext(ctx, p.logger).Info("transcription cache hit",
				logging.String(logging.FieldEventType, "cache_hit"),
				logging.String("cache_path", cachePath),
				logging.Int("ranges", len(ranges)))
			return ranges, nil
		}
	}

	segments, ok, err := p.transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []timeline.TimeRange{}, nil
	}

	flagged, _ := p.match(segments, set, nil)
	if p.cache != nil {
		if err := p.cache.StoreSingle(cachePath, flagged); err != nil {
			p.warnCache(ctx, "cache_write_failed", cachePath, err)
		}
	}
	return flagged, nil
}

// FlaggedAndSevereRanges scans once and classifies every hit against both
// lists. A word present in both lists yields a range in each.
func (p *Provider) FlaggedAndSevereRanges(ctx context.Context, audioPath string, flaggedTerms, severeTerms []string) ([]timeline.TimeRange, []timeline.TimeRange, error) {
	flaggedSet := textutil.TermSet(flaggedTerms)
	severeSet := textutil.TermSet(severeTerms)
	if len(flaggedSet) == 0 && len(severeSet) == 0 {
		return []timeline.TimeRange{}, []timeline.TimeRange{}, nil
	}

	var cachePath string
	if p.cache != nil {
		cachePath = p.cache.DualPath(audioPath, textutil.TermsHash(flaggedTerms, severeTerms))
		flagged, severe, found, err := p.cache.LoadDual(cachePath)
		if err != nil {
			p.warnCache(ctx, "cache_read_failed", cachePath, err)
		} else if found {
			logging.WithContext(ctx, p.logger).Info("transcription cache hit",
				logging.String(logging.FieldEventType, "cache_hit"),
				logging.String("cache_path", cachePath),
				logging.Int("flagged", len(flagged)),
				logging.Int("severe", len(severe)))
			return flagged, severe, nil
		}
	}

	segments, ok, err := p.transcribe(ctx, audioPath)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return []timeline.TimeRange{}, []timeline.TimeRange{}, nil
	}

	flagged, severe := p.match(segments, flaggedSet, severeSet)
	if p.cache != nil {
		if err := p.cache.StoreDual(cachePath, flagged, severe); err != nil {
			p.warnCache(ctx, "cache_write_failed", cachePath, err)
		}
	}
	return flagged, severe, nil
}

// transcribe returns ok=false when there is nothing to scan.
func (p *Provider) transcribe(ctx context.Context, audioPath string) ([]whisperx.Segment, bool, error) {
	logger := logging.WithContext(ctx, p.logger)
	if p.transcriber == nil {
		logging.WarnWithContext(logger, "no transcriber configured", "transcriber_unavailable",
			logging.String(logging.FieldImpact, "no words will be censored"))
		return nil, false, nil
	}

	logger.Info("transcription started", logging.String(logging.FieldEventType, "transcription_started"))
	segments, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		if errors.Is(err, whisperx.ErrUnavailable) {
			logging.WarnWithContext(logger, "transcriber unavailable", "transcriber_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "install uv so uvx can launch whisperx"),
				logging.String(logging.FieldImpact, "no words will be censored"))
			return nil, false, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, false, services.Wrap(services.ErrExternalTool, "transcribe", "transcriber",
			fmt.Sprintf("Transcription failed for %s", filepath.Base(audioPath)), err)
	}
	if len(segments) == 0 {
		logging.WarnWithContext(logger, "transcriber returned no segments", "transcription_empty",
			logging.String(logging.FieldImpact, "output will match the input"))
		return nil, false, nil
	}
	logger.Info("transcription completed",
		logging.String(logging.FieldEventType, "transcription_completed"),
		logging.Int("segments", len(segments)))
	return segments, true, nil
}

type timedWord struct {
	text       string
	start, end float64
}

// match classifies words (and multi-word phrases) against both sets.
// Segments without word timings fall back to whole-segment phrase matching.
func (p *Provider) match(segments []whisperx.Segment, flaggedSet, severeSet map[string]struct{}) (flagged, severe []timeline.TimeRange) {
	flagged = []timeline.TimeRange{}
	severe = []timeline.TimeRange{}
	add := func(dst *[]timeline.TimeRange, start, end float64, kind timeline.Kind) {
		if r, ok := timeline.Expand(start, end, p.bufferMS, kind); ok {
			*dst = append(*dst, r)
		}
	}

	for _, seg := range segments {
		words := timedWords(seg)
		if len(words) == 0 {
			normalized := textutil.NormalizeText(seg.Text)
			if textutil.ContainsTerm(normalized, flaggedSet) {
				add(&flagged, seg.Start, seg.End, timeline.KindFlagged)
			}
			if textutil.ContainsTerm(normalized, severeSet) {
				add(&severe, seg.Start, seg.End, timeline.KindSevere)
			}
			continue
		}
		for _, hit := range scanWords(words, flaggedSet) {
			add(&flagged, hit.start, hit.end, timeline.KindFlagged)
		}
		for _, hit := range scanWords(words, severeSet) {
			add(&severe, hit.start, hit.end, timeline.KindSevere)
		}
	}
	return flagged, severe
}

func timedWords(seg whisperx.Segment) []timedWord {
	words := make([]timedWord, 0, len(seg.Words))
	for _, w := range seg.Words {
		if !w.Timed() {
			continue
		}
		text := textutil.NormalizeWord(w.Word)
		if text == "" {
			continue
		}
		words = append(words, timedWord{text: text, start: *w.Start, end: *w.End})
	}
	return words
}

// scanWords returns one hit per matching word, plus one per matching
// multi-word phrase spanning consecutive words.
func scanWords(words []timedWord, set map[string]struct{}) []timedWord {
	if len(set) == 0 {
		return nil
	}
	maxLen := 1
	for term := range set {
		if n := strings.Count(term, " ") + 1; n > maxLen {
			maxLen = n
		}
	}
	var hits []timedWord
	for i := range words {
		for n := 1; n <= maxLen && i+n <= len(words); n++ {
			parts := make([]string, n)
			for k := 0; k < n; k++ {
				parts[k] = words[i+k].text
			}
			if _, ok := set[strings.Join(parts, " ")]; ok {
				hits = append(hits, timedWord{start: words[i].start, end: words[i+n-1].end})
			}
		}
	}
	return hits
}

func (p *Provider) warnCache(ctx context.Context, event, path string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "transcription cache unusable", event,
		logging.String("cache_path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "delete the cache file or run `censorwave cache clear`"),
		logging.String(logging.FieldImpact, "transcription will run again"))
}
