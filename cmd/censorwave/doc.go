// Package main hosts the censorwave CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds a structured
// logger, and hands work to internal/pipeline. Commands cover single runs
// (censor), previews (plan), chunked and multi-file runs (batch), the run
// ledger (history), transcription cache maintenance (cache), dependency
// checks (status), and configuration scaffolding (config).
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through a command or flag here.
package main
