package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Caiqueoak/cade-meu-busao/internal/metrics"
	"github.com/Caiqueoak/cade-meu-busao/internal/utils"
)

// latencyTrackingRoundTripper records the latency of every outgoing request
// in metrics.OutgoingLatency, labelled by redacted URL, method and status.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	metrics.OutgoingLatency.WithLabelValues(
		utils.RedactURL(req.URL),
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// NewPooledClient returns an HTTP client for upstreams polled by many
// sessions at once. Connections are kept alive between polls, dials and TLS
// handshakes fail fast, and timeout bounds each request as a whole.
func NewPooledClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   timeout,
	}
}
