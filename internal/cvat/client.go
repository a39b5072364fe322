package cvat

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
)

// Rate limiter defaults: one request per second against the CVAT API, with
// small bursts for multi-task downloads.
const (
	defaultRateLimit = 1.0
	defaultBurst     = 3
)

var (
	// ErrTaskNotFound indicates a task id the server does not know.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnauthorized indicates rejected CVAT credentials.
	ErrUnauthorized = errors.New("authentication failed")
)

// Config configures a CVAT client.
type Config struct {
	// URL is the base URL of the CVAT server, e.g. https://cvat.example.com.
	URL string

	// Auth is sent verbatim as the Authorization header, so the scheme is
	// the caller's choice ("Token abc...", "Bearer abc...").
	Auth string

	// Timeout bounds a single download request (default: 60s).
	Timeout time.Duration

	// MaxRetries is the number of retries after a transient failure
	// (default: 3).
	MaxRetries int
}

// Client downloads task datasets from a CVAT server.
type Client struct {
	baseURL     string
	auth        string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
}

// NewClient creates a new CVAT client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("CVAT server URL required")
	}
	if cfg.Auth == "" {
		return nil, fmt.Errorf("CVAT authorization required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	maxRetries := defaultMaxRetries
	if cfg.MaxRetries > 0 {
		maxRetries = cfg.MaxRetries
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		auth:    cfg.Auth,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries:  maxRetries,
		baseBackoff: defaultBaseBackoff,
		logger:      logger,
	}, nil
}

// DownloadTask fetches the dataset export of one task in the given format
// and extracts it into destDir/task_<id>. It returns the extracted task
// directory.
//
// The zip archive is deleted after extraction; a failed deletion is logged
// and otherwise ignored.
func (c *Client) DownloadTask(ctx context.Context, taskID int, format, destDir string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	taskDir := filepath.Join(destDir, fmt.Sprintf("task_%d", taskID))
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return "", fmt.Errorf("creating task directory: %w", err)
	}
	zipPath := filepath.Join(taskDir, "dataset.zip")

	c.logger.Info("downloading task dataset",
		zap.Int("task_id", taskID),
		zap.String("format", format),
		zap.String("dir", taskDir))

	// Download with retries
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			c.logger.Warn("retrying task download",
				zap.Int("task_id", taskID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		err := c.downloadZip(ctx, taskID, format, zipPath)
		if err == nil {
			lastErr = nil
			break
		}

		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("max retries exceeded: %w", lastErr)
	}

	if err := extractZip(zipPath, taskDir); err != nil {
		return "", fmt.Errorf("extracting dataset for task %d: %w", taskID, err)
	}
	if err := os.Remove(zipPath); err != nil {
		c.logger.Warn("could not remove dataset archive",
			zap.String("path", zipPath),
			zap.Error(err))
	}

	return taskDir, nil
}

// downloadZip performs a single download attempt, streaming the export to
// zipPath.
func (c *Client) downloadZip(ctx context.Context, taskID int, format, zipPath string) error {
	endpoint := fmt.Sprintf("%s/api/tasks/%d/dataset", c.baseURL, taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	q := httpReq.URL.Query()
	q.Set("action", "download")
	q.Set("format", format)
	q.Set("filename", fmt.Sprintf("task_%d_dataset.zip", taskID))
	httpReq.URL.RawQuery = q.Encode()
	httpReq.Header.Set("Authorization", c.auth)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &retryableError{err: fmt.Errorf("CVAT request failed: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: task %d", ErrTaskNotFound, taskID)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: check the configured CVAT credentials", ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &retryableError{err: fmt.Errorf("rate limited (429)")}
	case resp.StatusCode >= 500:
		return &retryableError{err: fmt.Errorf("server error (%d)", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", zipPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return &retryableError{err: fmt.Errorf("streaming dataset: %w", err)}
	}
	return out.Close()
}

// extractZip unpacks archive into dest, refusing entries that would land
// outside it.
func extractZip(archive, dest string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := extractZipEntry(file, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(file *zip.File, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(file.Name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("archive entry %q escapes %s", file.Name, dest)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	in, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %q: %w", file.Name, err)
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
