package gh

import (
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	BaseDelay = 500 * time.Millisecond
	MaxDelay  = 10 * time.Second
)

// retryTransport retries idempotent API requests that fail with a network
// timeout or a transient gateway status. Rate limiting (429) is passed
// through untouched.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	logger     hclog.Logger
}

func newRetryTransport(base http.RoundTripper, maxRetries int, logger hclog.Logger) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{
		base:       base,
		maxRetries: max(maxRetries, 0),
		baseDelay:  BaseDelay,
		logger:     logger,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.maxRetries == 0 || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		resp, err := t.base.RoundTrip(req)

		retry := false
		switch {
		case ctx.Err() != nil:
		case err != nil:
			retry = isRetryable(err)
		default:
			retry = isRetryableStatus(resp.StatusCode)
		}
		if !retry || attempt >= t.maxRetries {
			return resp, err
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			t.logger.Debug("retrying request", "url", req.URL.String(), "attempt", attempt+1, "status", resp.StatusCode)
		} else {
			t.logger.Debug("retrying request", "url", req.URL.String(), "attempt", attempt+1, "error", err)
		}

		timer := time.NewTimer(backoffDelay(t.baseDelay, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	return min(time.Duration(float64(base)*math.Pow(2, float64(attempt))), MaxDelay)
}
