package completion

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const maxDrainBytes = 64 << 10

func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryTransport retries GET and POST requests that come back with a
// retryable status, backing off exponentially. Transport errors are returned
// on the first occurrence.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries uint64
	Backoff    time.Duration
}

func NewRetryTransport(base http.RoundTripper, maxRetries int, backoff time.Duration) *RetryTransport {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &RetryTransport{Base: base, MaxRetries: uint64(maxRetries), Backoff: backoff}
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.retryable(req) {
		return t.base().RoundTrip(req)
	}

	var resp *http.Response
	attempt := 0
	backoff := retry.WithMaxRetries(t.MaxRetries, retry.NewExponential(t.Backoff))
	err := retry.Do(req.Context(), backoff, func(ctx context.Context) error {
		r := req
		if attempt > 0 {
			r = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return err
				}
				r.Body = body
			}
		}
		attempt++

		res, err := t.base().RoundTrip(r)
		if err != nil {
			return err
		}
		if !IsRetryableStatus(res.StatusCode) {
			resp = res
			return nil
		}
		drainAndClose(res.Body)
		return retry.RetryableError(&StatusError{Code: res.StatusCode})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *RetryTransport) retryable(req *http.Request) bool {
	if t.MaxRetries == 0 {
		return false
	}
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return false
	}
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, body, maxDrainBytes)
	_ = body.Close()
}
