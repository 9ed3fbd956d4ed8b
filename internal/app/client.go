package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"recycle.ecomap.kr/internal/metrics"
)

// latencyTrackingRoundTripper records the latency of every outgoing request in
// metrics.OutgoingLatency, labelled by URL without query, method and status.
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

	// query strings of data portal downloads carry file ids and keys
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(safeURL, req.Method, status).Observe(duration)
	return resp, err
}

// NewPooledClient returns the client used for config and source downloads.
//
// Source files run to several megabytes from a slow public portal, so the
// overall timeout is generous while connect and TLS timeouts stay short to
// fail fast when the portal is down.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   60 * time.Second,
	}
}
