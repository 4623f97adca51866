package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"127.0.0.1:7465", "http://127.0.0.1:7465"},
		{":7465", "http://127.0.0.1:7465"},
		{"http://demusic.local:7465/", "http://demusic.local:7465"},
		{"https://demusic.example.com", "https://demusic.example.com"},
		{"  demusic.local:80  ", "http://demusic.local:80"},
	}
	for _, tc := range cases {
		if got := normalizeBaseURL(tc.in); got != tc.want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0b7c9a6e-55f1-4c51-9a55-1ddba3aa71f4"); got != "0b7c9a6e" {
		t.Fatalf("unexpected short id: %s", got)
	}
	if got := shortID("tiny"); got != "tiny" {
		t.Fatalf("short ids must pass through, got %s", got)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.in); got != tc.want {
			t.Errorf("formatSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUploadPostsMultipartAndReadsSeeOther(t *testing.T) {
	var gotField string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/videos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, header, err := r.FormFile("video_file"); err == nil {
			gotField = header.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusSeeOther)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-9", "status_url": "/api/jobs/job-9"})
	}))
	t.Cleanup(server.Close)

	videoPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	client := newAPIClient(server.URL)
	result, err := client.upload(context.Background(), videoPath)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if result.JobID != "job-9" {
		t.Fatalf("unexpected job id: %s", result.JobID)
	}
	if gotField != "clip.mp4" {
		t.Fatalf("expected video_file field with filename, got %q", gotField)
	}
}

func TestGetJSONAcceptsCompletedJobRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/api/videos/clip_processed.mp4")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusFound)
		_ = json.NewEncoder(w).Encode(jobView{ID: "job-9", Status: "complete", Progress: 100, OutputFile: "clip_processed.mp4"})
	}))
	t.Cleanup(server.Close)

	client := newAPIClient(server.URL)
	job, err := client.job(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if job.Status != "complete" || job.OutputFile != "clip_processed.mp4" {
		t.Fatalf("unexpected job view: %#v", job)
	}
}

func TestAPIErrorSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "job job-0 not found"})
	}))
	t.Cleanup(server.Close)

	client := newAPIClient(server.URL)
	_, err := client.job(context.Background(), "job-0")
	if err == nil || !strings.Contains(err.Error(), "job job-0 not found") {
		t.Fatalf("expected API error body surfaced, got %v", err)
	}
}
