// Package history keeps a SQLite ledger of censorship runs.
//
// Each pipeline run records one row: the source, output, mode, how many
// flagged and severe ranges were rendered, and the outcome. The ledger backs
// "censorwave history". Writes retry with exponential backoff while another
// process holds the database lock.
//
// The schema is versioned; a mismatch asks the user to delete the database
// rather than migrating it.
package history
