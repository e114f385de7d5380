// Package ffprobe wraps ffprobe JSON output for rendered audio files.
//
// Inspect runs ffprobe and returns the parsed streams and container format.
// CheckAudio compares a probe against the duration the renderer produced and
// reports any drift; callers treat the result as advisory.
package ffprobe
