package timeline

import (
	"fmt"
	"math"
	"sort"
)

// Kind classifies a matched range.
type Kind string

const (
	KindFlagged Kind = "flagged"
	KindSevere  Kind = "severe"
)

// Strategy names the per-segment transform applied during rendering.
type Strategy string

const (
	// StrategySwap replaces the span with the instrumental stem.
	StrategySwap Strategy = "swap"
	// StrategyBackspin replaces the span with the original audio reversed.
	StrategyBackspin Strategy = "backspin"
	// StrategyVocalReverse overlays reversed vocals on the instrumental.
	StrategyVocalReverse Strategy = "vocal-reverse"
	// StrategyDownPitch overlays pitch-lowered vocals on the instrumental.
	StrategyDownPitch Strategy = "down-pitch"
)

// NeedsInstrumental reports whether the strategy reads the instrumental stem.
func (s Strategy) NeedsInstrumental() bool {
	return s == StrategySwap || s == StrategyVocalReverse || s == StrategyDownPitch
}

// NeedsVocals reports whether the strategy reads the vocals stem.
func (s Strategy) NeedsVocals() bool {
	return s == StrategyVocalReverse || s == StrategyDownPitch
}

// TimeRange is a half-open [StartMS, EndMS) span.
type TimeRange struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
	Kind    Kind  `json:"kind"`
}

// DurationMS returns the span length.
func (r TimeRange) DurationMS() int64 {
	return r.EndMS - r.StartMS
}

// Valid reports whether the range satisfies 0 <= start < end.
func (r TimeRange) Valid() bool {
	return r.StartMS >= 0 && r.EndMS > r.StartMS
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%s[%d,%d)", r.Kind, r.StartMS, r.EndMS)
}

// Expand converts second-based word bounds to a buffered millisecond range.
// The start is clamped at zero. ok is false when the result is empty.
func Expand(startSec, endSec float64, bufferMS int, kind Kind) (TimeRange, bool) {
	if math.IsNaN(startSec) || math.IsNaN(endSec) {
		return TimeRange{}, false
	}
	start := int64(math.Round(startSec*1000)) - int64(bufferMS)
	end := int64(math.Round(endSec*1000)) + int64(bufferMS)
	if start < 0 {
		start = 0
	}
	r := TimeRange{StartMS: start, EndMS: end, Kind: kind}
	return r, r.Valid()
}

// Entry pairs a range with the strategy used to render it.
type Entry struct {
	Range    TimeRange `json:"range"`
	Strategy Strategy  `json:"strategy"`
}

// Plan is the ordered render timeline.
type Plan struct {
	Entries []Entry `json:"entries"`
}

// Empty reports whether the plan has nothing to render.
func (p Plan) Empty() bool {
	return len(p.Entries) == 0
}

// Count returns the number of entries of the given kind.
func (p Plan) Count(kind Kind) int {
	n := 0
	for _, e := range p.Entries {
		if e.Range.Kind == kind {
			n++
		}
	}
	return n
}

// NeedsInstrumental reports whether any entry reads the instrumental stem.
func (p Plan) NeedsInstrumental() bool {
	for _, e := range p.Entries {
		if e.Strategy.NeedsInstrumental() {
			return true
		}
	}
	return false
}

// NeedsVocals reports whether any entry reads the vocals stem.
func (p Plan) NeedsVocals() bool {
	for _, e := range p.Entries {
		if e.Strategy.NeedsVocals() {
			return true
		}
	}
	return false
}

// StrategyPolicy maps each kind to its strategy.
type StrategyPolicy struct {
	Flagged Strategy
	Severe  Strategy
}

// For returns the strategy for kind.
func (p StrategyPolicy) For(kind Kind) Strategy {
	if kind == KindSevere {
		return p.Severe
	}
	return p.Flagged
}

// Merge combines flagged and severe ranges into an ordered plan. Ranges are
// sorted by start; on equal starts flagged sorts before severe and original
// order is otherwise kept. A severe range with the same bounds as a flagged
// range is dropped. Overlaps are not coalesced. Invalid ranges are skipped.
func Merge(flagged, severe []TimeRange, policy StrategyPolicy) Plan {
	type span struct{ start, end int64 }
	flaggedSpans := make(map[span]struct{}, len(flagged))

	ranges := make([]TimeRange, 0, len(flagged)+len(severe))
	for _, r := range flagged {
		if !r.Valid() {
			continue
		}
		r.Kind = KindFlagged
		flaggedSpans[span{r.StartMS, r.EndMS}] = struct{}{}
		ranges = append(ranges, r)
	}
	for _, r := range severe {
		if !r.Valid() {
			continue
		}
		if _, dup := flaggedSpans[span{r.StartMS, r.EndMS}]; dup {
			continue
		}
		r.Kind = KindSevere
		ranges = append(ranges, r)
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].StartMS != ranges[j].StartMS {
			return ranges[i].StartMS < ranges[j].StartMS
		}
		return ranges[i].Kind == KindFlagged && ranges[j].Kind == KindSevere
	})

	entries := make([]Entry, 0, len(ranges))
	for _, r := range ranges {
		entries = append(entries, Entry{Range: r, Strategy: policy.For(r.Kind)})
	}
	return Plan{Entries: entries}
}
