// Package backend is the typed client for the CNE extraction backend's job API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vrsandeep/cne-console/internal/logger"
	"github.com/vrsandeep/cne-console/internal/models"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 1500 * time.Millisecond
	DefaultPollTimeout  = 60 * time.Second
)

// Client talks to the backend's /api/jobs endpoints. It holds no job state
// and is safe for concurrent use.
type Client struct {
	client       *http.Client
	apiBaseURL   string
	logger       *slog.Logger
	pollInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPollInterval overrides the PollUntil interval. Only tests need this.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates a client for the backend served at baseURL
// (e.g. http://localhost:8000).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{Timeout: DefaultTimeout},
		apiBaseURL:   strings.TrimRight(baseURL, "/") + "/api",
		logger:       logger.Discard(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitJob uploads a single document and creates a backend job for it.
func (c *Client) SubmitJob(ctx context.Context, fileName string, r io.Reader, inferOnly bool) (*models.JobCreated, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	if err := mw.WriteField("infer_only", strconv.FormatBool(inferOnly)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/jobs", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var created models.JobCreated
	if err := c.do(req, &created); err != nil {
		return nil, err
	}
	c.logger.Info("Job submitted", "job_id", created.JobID, "file", fileName, "infer_only", inferOnly)
	return &created, nil
}

// SubmitFile opens path and submits it with SubmitJob.
func (c *Client) SubmitFile(ctx context.Context, path string, inferOnly bool) (*models.JobCreated, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.SubmitJob(ctx, filepath.Base(path), f, inferOnly)
}

// GetJob fetches the current server-side status of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*models.JobStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	var status models.JobStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetPreview fetches one backend page (1-based) of extracted rows.
func (c *Client) GetPreview(ctx context.Context, jobID string, page, size int) (*models.PreviewPage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/preview", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	req.URL.RawQuery = q.Encode()

	var preview models.PreviewPage
	if err := c.do(req, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// Approve marks a ready job as approved. Notes are optional; an empty
// string sends an empty body.
func (c *Client) Approve(ctx context.Context, jobID, notes string) (*models.ApproveResult, error) {
	var body io.Reader
	if notes != "" {
		payload, err := json.Marshal(map[string]string{"notes": notes})
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/approve", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result models.ApproveResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	c.logger.Info("Job approved", "job_id", jobID, "status", result.Status)
	return &result, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// send performs the request and decodes non-2xx responses into an *APIError.
// The caller owns the returned body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := decodeError(resp)
		c.logger.Debug("Backend returned an error", "method", req.Method, "path", req.URL.Path,
			"status", resp.StatusCode, "error", apiErr, "request_id", req.Header.Get("X-Request-ID"))
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
