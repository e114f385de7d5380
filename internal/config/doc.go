// Package config loads, normalizes, and validates censorwave configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HF_TOKEN, GEMINI_API_KEY, and CENSORWAVE_SCRATCH_DIR, optionally sourced
// from a .env file.
// The Config type centralizes every knob the pipeline and CLI need so the
// scratch layout and collaborator commands are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
