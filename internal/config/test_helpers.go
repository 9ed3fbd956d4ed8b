package config

import (
	"net/http"
	"sync/atomic"
)

// countingTransport answers every request with respond and counts the round trips.
type countingTransport struct {
	calls   atomic.Int32
	respond func(req *http.Request) (*http.Response, error)
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.respond(req)
}

func statusResponse(code int) (*http.Response, error) {
	return &http.Response{StatusCode: code, Body: http.NoBody}, nil
}
