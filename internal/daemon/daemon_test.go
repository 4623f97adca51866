package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"demusic/internal/config"
	"demusic/internal/daemon"
	"demusic/internal/jobs"
	"demusic/internal/logging"
	"demusic/internal/pipeline"
	"demusic/internal/testsupport"
)

type stubTool struct{}

func (stubTool) SplitStreams(ctx context.Context, videoPath, workDir string) (string, string, error) {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	audioPath := filepath.Join(workDir, stem+"_audio.mp3")
	videoOnlyPath := filepath.Join(workDir, stem+"_video.mp4")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(videoOnlyPath, []byte("video"), 0o644); err != nil {
		return "", "", err
	}
	return audioPath, videoOnlyPath, nil
}

func (stubTool) Mux(ctx context.Context, videoOnlyPath, audioPath, outputPath string) error {
	return os.WriteFile(outputPath, []byte("muxed"), 0o644)
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store := jobs.NewMemoryStore()
	logger := logging.NewNop()
	runner := pipeline.NewRunner(cfg, store, stubTool{}, nil, logger)
	dispatcher := pipeline.NewDispatcher(cfg, store, runner, logger)
	d, err := daemon.New(cfg, store, dispatcher, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestStartServesAPIAndStops(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDryRun())
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get("http://" + d.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status struct {
		Running      bool   `json:"running"`
		StoreBackend string `json:"store_backend"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.StoreBackend != "memory" {
		t.Fatalf("unexpected backend: %s", status.StoreBackend)
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("expected stopped status after Stop")
	}
}

func TestSecondInstanceIsRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDryRun())
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	if err := second.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	// Releasing the first instance frees the lock for a replacement.
	first.Close()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("restart after release failed: %v", err)
	}
}

func TestStartRejectsNilDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected constructor error")
	}
}
