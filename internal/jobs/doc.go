// Package jobs tracks video-processing jobs and exposes the store that the
// HTTP layer polls while pipeline runners progress each job.
//
// Two backends implement the Store contract: an in-memory registry (the
// reference behavior, no persistence or eviction) and a SQLite database that
// survives restarts. Both apply updates as whole records under the
// single-writer-per-job discipline, so concurrent readers always observe a
// consistent snapshot: an output file never becomes visible before the status
// flips to complete, terminal states are sticky, and progress never decreases.
//
// Treat this package as the single source of truth for job semantics; new
// statuses or fields belong here first.
package jobs
