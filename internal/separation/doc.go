// Package separation runs source separation in the background and reports
// when the instrumental and vocals stems are ready.
//
// Begin starts the separator in its own goroutine and returns a Handle whose
// Done channel closes exactly once. Await blocks on that channel, optionally
// bounded. TryGetResult never blocks: it only checks whether both stem files
// exist on disk, independent of any running work.
package separation
