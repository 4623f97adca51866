package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// jobView mirrors the daemon's job status payload.
type jobView struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Progress         int    `json:"progress"`
	OriginalFilename string `json:"original_filename"`
	ErrorMessage     string `json:"error_message,omitempty"`
	OutputFile       string `json:"output_file,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type videoView struct {
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
	StreamURL   string `json:"stream_url"`
	DownloadURL string `json:"download_url"`
}

type jobCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Complete   int `json:"complete"`
	Errored    int `json:"errored"`
}

type daemonStatus struct {
	Running      bool      `json:"running"`
	PID          int       `json:"pid"`
	StoreBackend string    `json:"store_backend"`
	UptimeSecs   int64     `json:"uptime_seconds"`
	Jobs         jobCounts `json:"jobs"`
}

type uploadResult struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// apiClient talks to the demusicd HTTP API. Redirects are not followed so
// that the 303 upload response and the 302 completed-job response can be
// inspected directly.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *apiClient) status(ctx context.Context) (daemonStatus, error) {
	var status daemonStatus
	err := c.getJSON(ctx, "/api/status", &status)
	return status, err
}

func (c *apiClient) jobs(ctx context.Context, status string) ([]jobView, error) {
	path := "/api/jobs"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var payload struct {
		Jobs []jobView `json:"jobs"`
	}
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

func (c *apiClient) job(ctx context.Context, id string) (jobView, error) {
	var view jobView
	err := c.getJSON(ctx, "/api/jobs/"+url.PathEscape(id), &view)
	return view, err
}

func (c *apiClient) videos(ctx context.Context) ([]videoView, error) {
	var payload struct {
		Videos []videoView `json:"videos"`
	}
	if err := c.getJSON(ctx, "/api/videos", &payload); err != nil {
		return nil, err
	}
	return payload.Videos, nil
}

func (c *apiClient) video(ctx context.Context, name string) (videoView, error) {
	var view videoView
	err := c.getJSON(ctx, "/api/videos/"+url.PathEscape(name), &view)
	return view, err
}

func (c *apiClient) deleteVideo(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/videos/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.wrapTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *apiClient) upload(ctx context.Context, path string) (uploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return uploadResult{}, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("video_file", filepath.Base(path))
	if err != nil {
		return uploadResult{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return uploadResult{}, err
	}
	if err := writer.Close(); err != nil {
		return uploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/videos", &body)
	if err != nil {
		return uploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return uploadResult{}, c.wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		return uploadResult{}, apiError(resp)
	}
	var result uploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return uploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	return result, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.wrapTransportError(err)
	}
	defer resp.Body.Close()

	// Completed jobs answer with a redirect to their artifact; the body still
	// carries the job snapshot.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *apiClient) wrapTransportError(err error) error {
	return fmt.Errorf("connect to daemon at %s: %w (is demusicd running?)", c.baseURL, err)
}

func apiError(resp *http.Response) error {
	var view struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&view); err == nil && view.Error != "" {
		return fmt.Errorf("%s", view.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}
