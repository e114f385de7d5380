package audio

import (
	"fmt"

	"github.com/gopxl/beep"
)

const streamChunk = 4096

type frameStreamer struct {
	frames [][2]float64
	pos    int
}

func (s *frameStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.frames) {
		return 0, false
	}
	n := copy(samples, s.frames[s.pos:])
	s.pos += n
	return n, true
}

func (s *frameStreamer) Err() error { return nil }

func (s *frameStreamer) Len() int { return len(s.frames) }

func (s *frameStreamer) Position() int { return s.pos }

func (s *frameStreamer) Seek(p int) error {
	if p < 0 || p > len(s.frames) {
		return fmt.Errorf("seek %d out of range [0, %d]", p, len(s.frames))
	}
	s.pos = p
	return nil
}

// Collect drains a streamer into a Track.
func Collect(s beep.Streamer, format beep.Format) (Track, error) {
	var frames [][2]float64
	buf := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(buf)
		frames = append(frames, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return Track{}, err
	}
	return Track{frames: frames, format: normalizeFormat(format)}, nil
}

// collectN reads exactly n frames, padding with silence if the stream ends early.
func collectN(s beep.Streamer, n int) ([][2]float64, error) {
	out := make([][2]float64, n)
	filled := 0
	for filled < n {
		end := filled + streamChunk
		if end > n {
			end = n
		}
		got, ok := s.Stream(out[filled:end])
		filled += got
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
