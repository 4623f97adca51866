// Package services holds the shared error taxonomy for external collaborators
// (the ffmpeg toolchain and vocal isolation providers) plus provider client
// subpackages.
//
// Stage code wraps failures with one of the sentinel markers so the pipeline
// can classify them into the job's terminal error message without inspecting
// provider-specific error types.
package services
