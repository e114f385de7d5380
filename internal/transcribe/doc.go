// Package transcribe turns a word-level transcript into flagged and severe
// time ranges.
//
// The Provider asks a Transcriber for segments, normalizes every word
// (lowercase, surrounding punctuation stripped), matches it against the term
// lists, and widens each hit by a fixed buffer. Results are cached in a JSON
// file beside the source audio so a second run never transcribes again. The
// cache filename carries a hash of the term lists unless that is disabled.
//
// A transcriber that cannot be launched, or that hears nothing, yields an
// empty result rather than an error. Any other transcriber failure is
// returned wrapped as services.ErrExternalTool.
package transcribe
