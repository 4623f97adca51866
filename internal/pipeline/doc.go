// Package pipeline contains the asynchronous job machinery: the dispatcher
// that accepts uploads and the runner that drives each job through
// split, isolate, and merge to a terminal state.
//
// Stages within one job are strictly sequential and block on their external
// call (ffmpeg or the isolation provider); jobs execute fully independently
// of each other. The runner is the only writer for its job, so every store
// update is a whole-record write that concurrent status polls can read
// safely. All stage failures are absorbed into the job's terminal error
// state; nothing propagates out of a worker goroutine.
package pipeline
