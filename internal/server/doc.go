// Package server exposes the demusic HTTP API: upload intake, job status
// polling, artifact listing/streaming/download, and daemon health.
//
// Handlers only read the job store or enqueue work through the dispatcher;
// pipeline execution happens on separate worker goroutines. Responses are
// JSON views, with the original application's redirect semantics preserved:
// a successful upload redirects to the job's status location, and a completed
// job redirects to its artifact.
package server
