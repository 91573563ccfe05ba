package gh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTransport(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{name: "recovers after gateway errors", statuses: []int{503, 502, 200}, maxRetries: 2, wantStatus: 200, wantCalls: 3},
		{name: "gives up after max retries", statuses: []int{503, 503, 503, 503}, maxRetries: 2, wantStatus: 503, wantCalls: 3},
		{name: "not found is final", statuses: []int{404, 200}, maxRetries: 2, wantStatus: 404, wantCalls: 1},
		{name: "rate limit is not retried", statuses: []int{429, 200}, maxRetries: 2, wantStatus: 429, wantCalls: 1},
		{name: "retries disabled", statuses: []int{503, 200}, maxRetries: 0, wantStatus: 503, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				i := calls.Add(1) - 1
				w.WriteHeader(tt.statuses[min(int(i), len(tt.statuses)-1)])
			}))
			t.Cleanup(srv.Close)

			rt := newRetryTransport(nil, tt.maxRetries, hclog.NewNullLogger())
			rt.baseDelay = time.Millisecond
			client := &http.Client{Transport: rt}

			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestRetryTransportSkipsNonIdempotent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	rt := newRetryTransport(nil, 3, hclog.NewNullLogger())
	rt.baseDelay = time.Millisecond
	client := &http.Client{Transport: rt}

	resp, err := client.Post(srv.URL, "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryTransportStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	rt := newRetryTransport(nil, 5, hclog.NewNullLogger())
	rt.baseDelay = time.Hour
	client := &http.Client{Transport: rt}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, backoffDelay(BaseDelay, 0))
	assert.Equal(t, time.Second, backoffDelay(BaseDelay, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(BaseDelay, 2))
	assert.Equal(t, MaxDelay, backoffDelay(BaseDelay, 10))
}
