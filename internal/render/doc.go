// Package render rebuilds a song from its original waveform and a render plan.
//
// The Engine walks the plan in order with a cursor. Audio between ranges is
// copied from the original untouched; each range is replaced by a transform
// chosen per strategy (instrumental swap, backspin, reversed vocals over the
// instrumental, or pitch-lowered vocals over the instrumental). Every
// transformed slice is fitted to the exact frame length of the span it
// replaces, so output duration follows the input.
//
// Pitch shifting round-trips through scratch WAV files and an external
// shifter. A failed shift aborts the render; a skipped span would leave an
// audible gap.
package render
