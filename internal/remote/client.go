// Package remote implements the Remote Store Client (C4): an HTTP
// client for the managed columnar remote store with retry, backoff,
// and error classification grounded on the teacher's Graph API client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/driftbase/syncmw/internal/batch"
	"github.com/driftbase/syncmw/internal/changelog"
	"github.com/driftbase/syncmw/internal/syncerr"
)

// Retry policy: base 1s, factor 2x, max 60s, +/-25% jitter, max 5
// retries. Retry decisions and backoff are delegated to the Batch
// layer's RetryWithBackoff; this client only classifies responses
// and supplies the policy.
const (
	maxRetries    = 5
	baseBackoff   = 1 * time.Second
	maxBackoff    = 60 * time.Second
	backoffFactor = 2.0
	userAgent     = "syncmw/0.1"
)

// TokenSource provides the opaque bearer credential used to
// authenticate against the remote store. Defined at the consumer
// (remote) per "accept interfaces, return structs": do not move this
// to the credential provider package.
type TokenSource interface {
	Token() (string, error)
}

// QueryResult is the result of an ExecuteSQL call.
type QueryResult struct {
	Rows []changelog.Row
}

// Client is the Remote Store Client contract (C4).
type Client interface {
	Authenticate(ctx context.Context) error
	ExecuteSQL(ctx context.Context, sql string) (*QueryResult, error)
	// Upload sends an already-encoded batch of rows for table. body is
	// gzip-compressed JSON when compressed is true, raw JSON otherwise -
	// the caller (the Batch layer, via EncodeAndCompress) decides based
	// on the configured compression threshold.
	Upload(ctx context.Context, table string, body []byte, compressed bool) error
	Download(ctx context.Context, table string, sinceTS *int64) ([]changelog.Row, error)
}

// HTTPClient is the production Client implementation.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger

	// sleepFunc waits between retries; tests override it to avoid
	// real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewHTTPClient creates a remote store client against baseURL.
func NewHTTPClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

func (c *HTTPClient) Authenticate(ctx context.Context) error {
	if _, err := c.token.Token(); err != nil {
		// An unreadable credential must be re-acquired from its
		// source, not refreshed - the source itself rejected it.
		return &syncerr.Auth{RequiresRefresh: false, Err: err}
	}
	return nil
}

func (c *HTTPClient) ExecuteSQL(ctx context.Context, sql string) (*QueryResult, error) {
	body, err := json.Marshal(map[string]string{"sql": sql})
	if err != nil {
		return nil, &syncerr.Validation{Field: "sql", Details: err.Error()}
	}

	resp, err := c.doRetry(ctx, http.MethodPost, "/query", bytes.NewReader(body), false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &syncerr.Unknown{Cause: fmt.Errorf("remote: reading query result: %w", err)}
	}
	raw, err = batch.Decompress(raw)
	if err != nil {
		return nil, &syncerr.Unknown{Cause: fmt.Errorf("remote: decompressing query result: %w", err)}
	}

	var result struct {
		Rows []changelog.Row `json:"rows"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &syncerr.Unknown{Cause: fmt.Errorf("remote: decoding query result: %w", err)}
	}
	return &QueryResult{Rows: result.Rows}, nil
}

func (c *HTTPClient) Upload(ctx context.Context, table string, body []byte, compressed bool) error {
	resp, err := c.doRetry(ctx, http.MethodPost, "/tables/"+table+"/rows", bytes.NewReader(body), compressed)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *HTTPClient) Download(ctx context.Context, table string, sinceTS *int64) ([]changelog.Row, error) {
	path := "/tables/" + table + "/rows"
	if sinceTS != nil {
		path += fmt.Sprintf("?since=%d", *sinceTS)
	}

	resp, err := c.doRetry(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &syncerr.Unknown{Cause: fmt.Errorf("remote: reading download result: %w", err)}
	}
	// The remote store may return a gzip-compressed body for a large
	// table snapshot; Decompress is a no-op when it isn't.
	raw, err = batch.Decompress(raw)
	if err != nil {
		return nil, &syncerr.Unknown{Cause: fmt.Errorf("remote: decompressing download result: %w", err)}
	}

	var result struct {
		Rows []changelog.Row `json:"rows"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &syncerr.Unknown{Cause: fmt.Errorf("remote: decoding download result: %w", err)}
	}
	return result.Rows, nil
}

// doRetry issues one logical request, retrying through the Batch
// layer's RetryWithBackoff on network failure or a retryable HTTP
// status. Retry decisions live in the Batch layer (C8); this method
// only classifies the outcome of each attempt.
func (c *HTTPClient) doRetry(ctx context.Context, method, path string, body io.Reader, compressed bool) (*http.Response, error) {
	url := c.baseURL + path

	policy := batch.RetryPolicy{
		MaxAttempts:  maxRetries + 1,
		InitialDelay: baseBackoff,
		MaxDelay:     maxBackoff,
		Factor:       backoffFactor,
		Logger:       c.logger,
		Sleep:        c.sleepFunc,
		Retryable: func(err error) bool {
			var netErr *syncerr.Network
			return errors.As(err, &netErr) && netErr.Retryable
		},
	}

	var resp *http.Response
	err := batch.RetryWithBackoff(ctx, policy, func(ctx context.Context) error {
		if err := rewindBody(body); err != nil {
			return &syncerr.Unknown{Cause: err}
		}

		r, err := c.doOnce(ctx, method, url, body, compressed)
		if err != nil {
			if ctx.Err() != nil {
				return &syncerr.Network{Retryable: false, Err: ctx.Err()}
			}
			return &syncerr.Network{Retryable: true, Err: fmt.Errorf("remote: %s %s: %w", method, path, err)}
		}

		if r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices {
			resp = r
			return nil
		}

		errBody, readErr := io.ReadAll(r.Body)
		r.Body.Close()
		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if isRetryable(r.StatusCode) {
			return &syncerr.Network{
				Retryable:      true,
				Status:         r.StatusCode,
				Err:            fmt.Errorf("remote: HTTP %d: %s", r.StatusCode, errBody),
				RetryAfterHint: retryAfterHint(r),
			}
		}

		return classify(r.StatusCode, string(errBody))
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) doOnce(ctx context.Context, method, url string, body io.Reader, compressed bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("remote: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("remote: obtaining token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		if compressed {
			req.Header.Set("Content-Encoding", "gzip")
		}
	}
	req.Header.Set("Accept-Encoding", "gzip")

	return c.httpClient.Do(req)
}

// retryAfterHint reads a 429 response's Retry-After header (seconds
// form), returning 0 when absent or not a positive integer.
func retryAfterHint(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0
	}
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

func rewindBody(body io.Reader) error {
	if body == nil {
		return nil
	}
	if seeker, ok := body.(io.Seeker); ok {
		_, err := seeker.Seek(0, io.SeekStart)
		return err
	}
	return nil
}

func timeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
