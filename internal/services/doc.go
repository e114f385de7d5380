// Package services defines shared utilities consumed by the pipeline
// components and their external collaborator adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source paths for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into missing-artifact, collaborator, timeout, and validation kinds.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the pipeline.
package services
