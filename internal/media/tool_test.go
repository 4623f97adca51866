package media

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"demusic/internal/testsupport"
)

func TestSplitStreamsDerivesSiblingNames(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	tool := NewTool(cfg)

	audio, video, err := tool.SplitStreams(context.Background(), "/in/My_Video.mkv", "/work")
	if err != nil {
		t.Fatalf("SplitStreams failed: %v", err)
	}
	if audio != "/work/My_Video_audio.mp3" {
		t.Fatalf("unexpected audio path: %s", audio)
	}
	if video != "/work/My_Video_video.mp4" {
		t.Fatalf("unexpected video path: %s", video)
	}
}

func TestExtractAudioArgs(t *testing.T) {
	args := extractAudioArgs("/work/clip.mp4", "/work/clip_audio.mp3")
	want := []string{
		"-i", "/work/clip.mp4",
		"-vn",
		"-ac", "2",
		"-ar", "44100",
		"-acodec", "mp3",
		"-ab", "320k",
		"-y", "/work/clip_audio.mp3",
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", args, want)
	}
}

func TestExtractVideoArgsCopiesStream(t *testing.T) {
	args := extractVideoArgs("/work/clip.mp4", "/work/clip_video.mp4")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-an") {
		t.Fatalf("expected audio to be stripped: %v", args)
	}
	if !strings.Contains(joined, "-vcodec copy") {
		t.Fatalf("expected video stream copy: %v", args)
	}
}

func TestMuxArgsTruncateToShortest(t *testing.T) {
	args := muxArgs("/work/clip_video.mp4", "/work/clip_vocals.mp3", "/out/clip_processed.mp4")
	joined := strings.Join(args, " ")
	for _, fragment := range []string{
		"-c:v copy",
		"-c:a aac",
		"-map 0:v:0",
		"-map 1:a:0",
		"-shortest",
	} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("mux args missing %q: %v", fragment, args)
		}
	}
	if args[len(args)-1] != "/out/clip_processed.mp4" {
		t.Fatalf("expected output path last, got %v", args)
	}
}

func TestProbeArgsTerminatePathSafely(t *testing.T) {
	args := probeArgs("-malicious.mp4")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-- -malicious.mp4") {
		t.Fatalf("expected path after option terminator: %v", args)
	}
	if !strings.Contains(joined, "-of json") {
		t.Fatalf("expected JSON output: %v", args)
	}
}

func TestTailOf(t *testing.T) {
	if got := tailOf(nil); got != "(no output)" {
		t.Fatalf("tailOf(nil) = %q", got)
	}

	lines := []string{"banner", "progress 1", "progress 2", "progress 3", "progress 4", "error: no audio stream"}
	got := tailOf([]byte(strings.Join(lines, "\n")))
	if strings.Contains(got, "banner") {
		t.Fatalf("expected banner trimmed: %q", got)
	}
	if !strings.Contains(got, "error: no audio stream") {
		t.Fatalf("expected final line kept: %q", got)
	}
}

func TestAllowedExtension(t *testing.T) {
	allowed := []string{"clip.mp4", "clip.MOV", "clip.webm", "clip.mkv", "clip.avi"}
	for _, name := range allowed {
		if !AllowedExtension(name) {
			t.Errorf("expected %s to be allowed", name)
		}
	}
	rejected := []string{"clip.txt", "clip.mp3", "clip", "clip.mp4.exe"}
	for _, name := range rejected {
		if AllowedExtension(name) {
			t.Errorf("expected %s to be rejected", name)
		}
	}
}

func TestProbeResultDurationSeconds(t *testing.T) {
	result := ProbeResult{
		Format:  ProbeFormat{Duration: "12.5"},
		Streams: []ProbeStream{{Duration: "11.0"}},
	}
	if got := result.DurationSeconds(); got != 12.5 {
		t.Fatalf("expected container duration, got %v", got)
	}

	noFormat := ProbeResult{
		Streams: []ProbeStream{{Duration: "9.25"}, {Duration: "10.75"}},
	}
	if got := noFormat.DurationSeconds(); got != 10.75 {
		t.Fatalf("expected longest stream duration, got %v", got)
	}

	if got := (ProbeResult{}).DurationSeconds(); got != 0 {
		t.Fatalf("expected zero duration, got %v", got)
	}
}

func TestProbeResultHasStream(t *testing.T) {
	result := ProbeResult{Streams: []ProbeStream{
		{CodecType: "video"},
		{CodecType: "Audio"},
	}}
	if !result.HasStream("video") || !result.HasStream("audio") {
		t.Fatalf("expected both stream types: %#v", result)
	}
	if result.HasStream("subtitle") {
		t.Fatal("unexpected subtitle stream")
	}
}
