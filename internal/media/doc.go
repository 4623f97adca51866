// Package media shells out to ffmpeg and ffprobe for the stream surgery the
// pipeline needs: splitting a video into an audio track plus a video-only
// stream, remuxing the two back together, and inspecting containers.
//
// Video is always stream-copied, never re-encoded; only audio passes through
// a codec. Invocations are synchronous and bounded by the configured timeout,
// and failures surface as external tool errors carrying the tail of the
// command output.
package media
