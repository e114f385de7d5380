// Package audio holds the in-memory waveform used by the renderer and the
// codecs that move it on and off disk.
//
// A Track is an immutable run of stereo float frames at a fixed beep.Format.
// Every operation (slice, concatenate, reverse, overlay, fit, conform) returns
// a new Track. Millisecond offsets map to frames through the track's sample
// rate so a cursor walk over the same track always tiles it exactly.
//
// WAV, MP3, and FLAC decode in-process through gopxl/beep. Other containers,
// and every compressed output, go through ffmpeg.
package audio
