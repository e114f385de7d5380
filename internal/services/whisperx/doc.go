// Package whisperx runs WhisperX through uvx and parses its word-level JSON.
//
// This package handles:
//   - building the uvx/whisperx command line from Config
//   - invoking the transcriber (or a test runner)
//   - loading segments and word timings from the JSON output
//
// A missing uvx binary is reported as ErrUnavailable so callers can treat an
// absent transcriber differently from a failed one.
package whisperx
