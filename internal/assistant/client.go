package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	chatPath = "/chat"

	// sendAttempts bounds retries on transient failures.
	sendAttempts = 3
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "http://127.0.0.1:8000".
	BaseURL string

	// Timeout bounds one chat request (including body read).
	Timeout time.Duration

	// ImageTimeout bounds one remote-image fetch.
	ImageTimeout time.Duration

	// RequestsPerSec / Burst configure the client-side rate limiter.
	// Zero disables limiting.
	RequestsPerSec float64
	Burst          int
}

// Client talks to the herb assistant backend.
// Safe for concurrent use.
type Client struct {
	baseURL      string
	hc           *http.Client
	imageTimeout time.Duration
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// New creates a Client. logger nil means slog.Default().
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	// Spans are no-ops unless a tracer provider is installed.
	transport := otelhttp.NewTransport(http.DefaultTransport)

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		hc:           &http.Client{Timeout: cfg.Timeout, Transport: transport},
		imageTimeout: cfg.ImageTimeout,
		limiter:      limiter,
		logger:       logger,
	}
}

// Send posts one chat turn and decodes the reply.
//
// Transient failures (network errors, 5xx) are retried with backoff up
// to sendAttempts; client errors (4xx) are not. All failures come back
// wrapping ErrBackend so callers can surface exactly this class to the
// user.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrBackend, err)
	}

	var response *Response
	err = retry.Do(
		func() error {
			resp, err := c.post(ctx, body)
			if err != nil {
				return err
			}
			response = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(sendAttempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying chat request", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return response, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post chat: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("backend status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, retry.Unrecoverable(fmt.Errorf("backend status %d", resp.StatusCode))
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
	}
	return &decoded, nil
}
