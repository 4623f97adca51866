// Package replicate implements the remote vocal isolation provider backed by
// the Replicate predictions API.
//
// Inference runs can take minutes, so the client polls prediction status at a
// configurable interval under an explicit overall timeout; expiry surfaces as
// a timeout error on the job rather than an indefinite hang. The call is
// never retried automatically.
package replicate
