// Package daemon wires the job store, pipeline dispatcher, and HTTP server
// into a single long-running process guarded by a lock file so only one
// demusicd instance serves a data directory at a time.
package daemon
