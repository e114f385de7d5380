// Package preflight provides readiness checks for the directories, files,
// and executables censorwave depends on.
//
// The pipeline runs RunAll before touching a source file so a missing scratch
// directory fails in milliseconds instead of after a multi-minute
// transcription. The CLI "censorwave status" command renders the same results.
package preflight
