// Package pipeline orchestrates a censorship run end to end.
//
// A Runner starts source separation in the background as soon as the mode
// needs stems, transcribes the source in parallel, merges the matched ranges
// into a render plan, waits (bounded) for the stems, renders, and publishes
// the output atomically through a ".partial" file. Scratch stems, pitch-shift
// clips, and the per-source lock are released on every exit path.
//
// RunChunked splits long inputs into equal chunks, runs each one, and joins
// the results. Plan runs only transcription and merging, for previews.
package pipeline
