package media

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"demusic/internal/config"
	"demusic/internal/services"
)

// Audio extraction parameters. The isolation models expect a plain stereo
// track at a fixed sample rate, so extraction always re-encodes.
const (
	audioCodec      = "mp3"
	audioBitRate    = "320k"
	audioSampleRate = "44100"
	audioChannels   = "2"
)

// Tool wraps the ffmpeg/ffprobe binaries used to split and remux streams.
// Every invocation is synchronous and bounded by the configured timeout.
type Tool struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
}

// NewTool constructs a media tool from configuration.
func NewTool(cfg *config.Config) *Tool {
	timeout := time.Duration(cfg.Media.TimeoutSeconds) * time.Second
	return &Tool{
		ffmpeg:  cfg.Media.FFmpegBin,
		ffprobe: cfg.Media.FFprobeBin,
		timeout: timeout,
	}
}

// SplitStreams extracts the audio track and the video-only stream from the
// source video into workDir. Audio is re-encoded to stereo mp3; video is
// stream-copied without re-encoding.
func (t *Tool) SplitStreams(ctx context.Context, videoPath, workDir string) (audioPath, videoOnlyPath string, err error) {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	audioPath = filepath.Join(workDir, stem+"_audio.mp3")
	videoOnlyPath = filepath.Join(workDir, stem+"_video.mp4")

	if err := t.run(ctx, "extract audio", extractAudioArgs(videoPath, audioPath)); err != nil {
		return "", "", err
	}
	if err := t.run(ctx, "extract video", extractVideoArgs(videoPath, videoOnlyPath)); err != nil {
		return "", "", err
	}
	return audioPath, videoOnlyPath, nil
}

// Mux combines a video-only stream with an audio track into outputPath. The
// video codec is copied, audio is re-encoded to AAC, and the output is
// truncated to the shorter of the two streams so a longer track never pads
// the result with silence or black frames.
func (t *Tool) Mux(ctx context.Context, videoOnlyPath, audioPath, outputPath string) error {
	return t.run(ctx, "mux", muxArgs(videoOnlyPath, audioPath, outputPath))
}

func extractAudioArgs(videoPath, audioPath string) []string {
	return []string{
		"-i", videoPath,
		"-vn",
		"-ac", audioChannels,
		"-ar", audioSampleRate,
		"-acodec", audioCodec,
		"-ab", audioBitRate,
		"-y", audioPath,
	}
}

func extractVideoArgs(videoPath, videoOnlyPath string) []string {
	return []string{
		"-i", videoPath,
		"-an",
		"-vcodec", "copy",
		"-y", videoOnlyPath,
	}
}

func muxArgs(videoOnlyPath, audioPath, outputPath string) []string {
	return []string{
		"-i", videoOnlyPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		"-y", outputPath,
	}
}

func (t *Tool) run(ctx context.Context, operation string, args []string) error {
	ctx, cancel := t.commandContext(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffmpeg, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := fmt.Sprintf("%s: %s", err, tailOf(output))
		return services.Wrap(services.ErrExternalTool, "media", operation, detail, nil)
	}
	return nil
}

func (t *Tool) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

// tailOf trims command output to the last few lines so error messages stay
// readable; ffmpeg prints its banner and progress before the actual failure.
func tailOf(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return "(no output)"
	}
	lines := strings.Split(text, "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
