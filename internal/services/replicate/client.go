package replicate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"demusic/internal/services"
)

const (
	defaultBaseURL      = "https://api.replicate.com/v1"
	defaultTimeout      = 10 * time.Minute
	defaultPollInterval = 5 * time.Second
	requestTimeout      = 60 * time.Second
)

// Config captures the runtime settings required to talk to Replicate.
type Config struct {
	APIToken            string
	Model               string
	BaseURL             string
	TimeoutSeconds      int
	PollIntervalSeconds int
}

// Client drives vocal isolation through the Replicate predictions API. A
// prediction is created for the uploaded audio, polled until it reaches a
// terminal state, and the isolated stem is downloaded next to the input.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	timeout      time.Duration
	pollInterval time.Duration
	sleeper      func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides how often prediction status is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a Replicate client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	pollInterval := defaultPollInterval
	if cfg.PollIntervalSeconds > 0 {
		pollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}

	client := &Client{
		cfg: Config{
			APIToken: strings.TrimSpace(cfg.APIToken),
			Model:    strings.TrimSpace(cfg.Model),
			BaseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		},
		httpClient:   &http.Client{Timeout: requestTimeout},
		timeout:      timeout,
		pollInterval: pollInterval,
		sleeper:      sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Name identifies the provider in logs and status output.
func (c *Client) Name() string { return "replicate" }

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

type modelResponse struct {
	LatestVersion struct {
		ID string `json:"id"`
	} `json:"latest_version"`
}

// Isolate sends the audio file to the inference service and blocks until the
// isolated stem has been downloaded, the configured timeout expires, or the
// service reports failure. The result is written next to the input as
// <name>_<stem>.mp3.
func (c *Client) Isolate(ctx context.Context, audioPath, stem string) (string, error) {
	if c.cfg.APIToken == "" {
		return "", services.Wrap(services.ErrConfiguration, "isolate", "replicate", "api token is not configured", nil)
	}
	if c.cfg.Model == "" {
		return "", services.Wrap(services.ErrConfiguration, "isolate", "replicate", "model is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	version, err := c.resolveVersion(ctx)
	if err != nil {
		return "", err
	}

	audioURI, err := encodeAudio(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrRemoteService, "isolate", "read audio", err.Error(), nil)
	}

	pred, err := c.createPrediction(ctx, version, audioURI, stem)
	if err != nil {
		return "", err
	}

	pred, err = c.waitForPrediction(ctx, pred)
	if err != nil {
		return "", err
	}

	outputURL, err := stemOutputURL(pred.Output, stem)
	if err != nil {
		return "", services.Wrap(services.ErrRemoteService, "isolate", "parse output", err.Error(), nil)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	resultPath := filepath.Join(filepath.Dir(audioPath), fmt.Sprintf("%s_%s.mp3", base, stem))
	if err := c.download(ctx, outputURL, resultPath); err != nil {
		return "", err
	}
	return resultPath, nil
}

// resolveVersion returns the model version to run. Models pinned as
// "owner/name:version" use the pinned version; otherwise the latest published
// version is looked up.
func (c *Client) resolveVersion(ctx context.Context) (string, error) {
	if _, version, ok := strings.Cut(c.cfg.Model, ":"); ok {
		return version, nil
	}

	var model modelResponse
	if err := c.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/models/"+c.cfg.Model, nil, &model); err != nil {
		return "", err
	}
	if model.LatestVersion.ID == "" {
		return "", services.Wrap(services.ErrRemoteService, "isolate", "resolve model", fmt.Sprintf("model %s has no published version", c.cfg.Model), nil)
	}
	return model.LatestVersion.ID, nil
}

func (c *Client) createPrediction(ctx context.Context, version, audioURI, stem string) (prediction, error) {
	body := map[string]any{
		"version": version,
		"input": map[string]any{
			"audio": audioURI,
			"stem":  stem,
		},
	}
	var pred prediction
	if err := c.doJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/predictions", body, &pred); err != nil {
		return prediction{}, err
	}
	if pred.ID == "" {
		return prediction{}, services.Wrap(services.ErrRemoteService, "isolate", "create prediction", "response missing prediction id", nil)
	}
	return pred, nil
}

func (c *Client) waitForPrediction(ctx context.Context, pred prediction) (prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			message := strings.TrimSpace(pred.Error)
			if message == "" {
				message = "prediction " + pred.Status
			}
			return prediction{}, services.Wrap(services.ErrRemoteService, "isolate", "prediction", message, nil)
		}

		if err := c.sleeper(ctx, c.pollInterval); err != nil {
			return prediction{}, timeoutOrRemote(err)
		}

		var next prediction
		if err := c.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/predictions/"+pred.ID, nil, &next); err != nil {
			return prediction{}, err
		}
		pred = next
	}
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrRemoteService, "isolate", "encode request", err.Error(), nil)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return services.Wrap(services.ErrRemoteService, "isolate", "build request", err.Error(), nil)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return timeoutOrRemote(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrRemoteService, "isolate", "read response", err.Error(), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrRemoteService, "isolate", "replicate",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrRemoteService, "isolate", "decode response", err.Error(), nil)
	}
	return nil
}

func (c *Client) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrRemoteService, "isolate", "build download", err.Error(), nil)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return timeoutOrRemote(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrRemoteService, "isolate", "download",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Wrap(services.ErrRemoteService, "isolate", "write result", err.Error(), nil)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return services.Wrap(services.ErrRemoteService, "isolate", "write result", err.Error(), nil)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrRemoteService, "isolate", "write result", err.Error(), nil)
	}
	return nil
}

// stemOutputURL extracts the result file URL from the prediction output. The
// API returns different shapes depending on the model: a bare URL string, a
// map of stem name to URL, or a list of URLs.
func stemOutputURL(raw json.RawMessage, stem string) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("prediction produced no output")
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil && asString != "" {
		return asString, nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		if url, ok := asMap[stem]; ok && url != "" {
			return url, nil
		}
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil && len(asList) > 0 && asList[0] != "" {
		return asList[0], nil
	}

	return "", fmt.Errorf("unrecognized prediction output shape: %s", strings.TrimSpace(string(raw)))
}

func encodeAudio(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func timeoutOrRemote(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "isolate", "replicate", "call exceeded configured timeout", nil)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return services.Wrap(services.ErrRemoteService, "isolate", "replicate", err.Error(), nil)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
