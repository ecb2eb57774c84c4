package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// Default retry backoff
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
)

// ClientOptions configures the shared HTTP client
type ClientOptions struct {
	BaseURL   string
	UserAgent string

	// Timeout bounds each attempt
	Timeout time.Duration

	// RetryCount is the number of extra attempts after the first; 0 disables retries
	RetryCount int

	// RetryWaitTime and RetryMaxWaitTime bound the exponential backoff.
	// Zero values use the package defaults.
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
}

// NewHTTPClient creates a new HTTP client with a browser-like identity,
// a per-request timeout and bounded retry with exponential backoff
func NewHTTPClient(opts ClientOptions) *resty.Client {
	wait := opts.RetryWaitTime
	if wait <= 0 {
		wait = defaultRetryWaitTime
	}
	maxWait := opts.RetryMaxWaitTime
	if maxWait <= 0 {
		maxWait = defaultRetryMaxWaitTime
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "*/*").
		SetHeader("User-Agent", opts.UserAgent).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(maxWait).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return client
}

// retryCondition determines whether a request should be retried based on the response and error
func retryCondition(r *resty.Response, err error) bool {
	// Retry on network errors
	if err != nil {
		return true
	}

	// Retry on server errors (5xx)
	if r.StatusCode() >= 500 {
		return true
	}

	// Retry on rate limit (429)
	if r.StatusCode() == 429 {
		return true
	}

	// Retry on request timeout (408)
	if r.StatusCode() == 408 {
		return true
	}

	return false
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}
