// Package timeline defines the time ranges produced by transcription matching
// and merges flagged and severe hits into a single ordered render plan.
//
// Ranges are half-open millisecond intervals. The merger sorts by start time,
// orders flagged before severe on equal starts, and drops a severe range that
// exactly duplicates a flagged one so the span renders once with the flagged
// strategy. Overlapping ranges are kept as-is and rendered in order.
package timeline
