package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
)

// DefaultFormat is used for silence and for tracks built without a source.
var DefaultFormat = beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}

// Track is an immutable sequence of stereo frames.
type Track struct {
	frames [][2]float64
	format beep.Format
}

// NewTrack copies frames into a new Track.
func NewTrack(format beep.Format, frames [][2]float64) Track {
	return Track{frames: append([][2]float64(nil), frames...), format: normalizeFormat(format)}
}

// Silence returns a track of n silent frames.
func Silence(format beep.Format, n int) Track {
	if n < 0 {
		n = 0
	}
	return Track{frames: make([][2]float64, n), format: normalizeFormat(format)}
}

func normalizeFormat(format beep.Format) beep.Format {
	if format.SampleRate <= 0 {
		format.SampleRate = DefaultFormat.SampleRate
	}
	if format.NumChannels <= 0 || format.NumChannels > 2 {
		format.NumChannels = DefaultFormat.NumChannels
	}
	if format.Precision <= 0 || format.Precision > 3 {
		format.Precision = DefaultFormat.Precision
	}
	return format
}

// Format returns the track's format.
func (t Track) Format() beep.Format {
	return t.format
}

// Len returns the number of frames.
func (t Track) Len() int {
	return len(t.frames)
}

// Frame returns frame i.
func (t Track) Frame(i int) [2]float64 {
	return t.frames[i]
}

// Duration returns the playing time.
func (t Track) Duration() time.Duration {
	return t.format.SampleRate.D(len(t.frames))
}

// DurationMS returns the playing time in whole milliseconds.
func (t Track) DurationMS() int64 {
	return t.Duration().Milliseconds()
}

// FrameAt maps a millisecond offset to a frame index clamped to [0, Len].
func (t Track) FrameAt(ms int64) int {
	if ms <= 0 {
		return 0
	}
	n := t.format.SampleRate.N(time.Duration(ms) * time.Millisecond)
	if n > len(t.frames) {
		return len(t.frames)
	}
	return n
}

// Slice returns [startMS, endMS). Bounds are clamped; an inverted range is empty.
func (t Track) Slice(startMS, endMS int64) Track {
	return t.SliceFrames(t.FrameAt(startMS), t.FrameAt(endMS))
}

// SliceFrames returns frames [from, to), clamped.
func (t Track) SliceFrames(from, to int) Track {
	if from < 0 {
		from = 0
	}
	if to > len(t.frames) {
		to = len(t.frames)
	}
	if to <= from {
		return Track{format: t.format}
	}
	return NewTrack(t.format, t.frames[from:to])
}

// From returns everything from startMS to the end.
func (t Track) From(startMS int64) Track {
	return t.SliceFrames(t.FrameAt(startMS), len(t.frames))
}

// Concat appends others to t. Tracks at a different sample rate are resampled
// to t's rate first.
func (t Track) Concat(others ...Track) (Track, error) {
	total := len(t.frames)
	for _, o := range others {
		total += o.Len()
	}
	out := make([][2]float64, 0, total)
	out = append(out, t.frames...)
	for _, o := range others {
		conformed, err := o.Conform(t.format)
		if err != nil {
			return Track{}, err
		}
		out = append(out, conformed.frames...)
	}
	return Track{frames: out, format: t.format}, nil
}

// Reverse returns the track played backwards.
func (t Track) Reverse() Track {
	out := make([][2]float64, len(t.frames))
	for i, f := range t.frames {
		out[len(out)-1-i] = f
	}
	return Track{frames: out, format: t.format}
}

// Fit truncates or pads with silence to exactly n frames.
func (t Track) Fit(n int) Track {
	if n < 0 {
		n = 0
	}
	if n == len(t.frames) {
		return t
	}
	out := make([][2]float64, n)
	copy(out, t.frames)
	return Track{frames: out, format: t.format}
}

// Overlay mixes top onto t. The result has t's length: a longer top is cut,
// a shorter one leaves the tail of t untouched. Samples are clipped to [-1, 1].
func (t Track) Overlay(top Track) (Track, error) {
	conformed, err := top.Conform(t.format)
	if err != nil {
		return Track{}, err
	}
	mixed, err := collectN(beep.Mix(t.Streamer(), conformed.Streamer()), len(t.frames))
	if err != nil {
		return Track{}, fmt.Errorf("overlay: %w", err)
	}
	for i := range mixed {
		mixed[i][0] = clip(mixed[i][0])
		mixed[i][1] = clip(mixed[i][1])
	}
	return Track{frames: mixed, format: t.format}, nil
}

// Conform resamples the track to format's sample rate and adopts its channel
// count and precision.
func (t Track) Conform(format beep.Format) (Track, error) {
	format = normalizeFormat(format)
	if format.SampleRate == t.format.SampleRate {
		return Track{frames: t.frames, format: format}, nil
	}
	if len(t.frames) == 0 {
		return Track{format: format}, nil
	}
	target := format.SampleRate.N(t.Duration())
	resampled := beep.Resample(4, t.format.SampleRate, format.SampleRate, t.Streamer())
	frames, err := collectN(resampled, target)
	if err != nil {
		return Track{}, fmt.Errorf("resample %d->%d: %w", t.format.SampleRate, format.SampleRate, err)
	}
	return Track{frames: frames, format: format}, nil
}

// Streamer exposes the track as a beep stream starting at frame 0.
func (t Track) Streamer() beep.StreamSeeker {
	return &frameStreamer{frames: t.frames}
}

// Equal reports whether both tracks carry identical frames at the same rate.
func (t Track) Equal(other Track) bool {
	if t.format.SampleRate != other.format.SampleRate || len(t.frames) != len(other.frames) {
		return false
	}
	for i := range t.frames {
		if t.frames[i] != other.frames[i] {
			return false
		}
	}
	return true
}

func clip(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
