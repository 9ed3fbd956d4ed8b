package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// CachedPromHandler serves a text exposition of gatherer that is rebuilt every ttl
// instead of on every scrape.
type CachedPromHandler struct {
	mu    sync.RWMutex
	cache []byte
	ttl   time.Duration
	h     http.Handler
}

// NewCachedPromHandler starts the refresh loop, which stops when ctx is done.
func NewCachedPromHandler(ctx context.Context, gatherer prometheus.Gatherer, ttl time.Duration) *CachedPromHandler {
	c := &CachedPromHandler{
		ttl: ttl,
		h:   promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}

	go c.refreshLoop(ctx)
	return c
}

func (c *CachedPromHandler) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh()
		}
	}
}

func (c *CachedPromHandler) refresh() {
	// promhttp negotiates the format from the request, so it needs a real one
	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	var buf bytes.Buffer
	rec := &responseRecorder{buf: &buf, header: http.Header{}, status: http.StatusOK}
	c.h.ServeHTTP(rec, req)
	if rec.status != http.StatusOK {
		return
	}

	c.mu.Lock()
	c.cache = buf.Bytes()
	c.mu.Unlock()
}

// ServeHTTP serves the cached exposition, or gathers live until the first refresh.
func (c *CachedPromHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	cache := c.cache
	c.mu.RUnlock()

	if len(cache) == 0 {
		c.h.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	_, _ = w.Write(cache)
}

// responseRecorder captures promhttp output into buf.
type responseRecorder struct {
	buf    *bytes.Buffer
	header http.Header
	status int
}

func (rr *responseRecorder) Write(b []byte) (int, error) { return rr.buf.Write(b) }
func (rr *responseRecorder) Header() http.Header         { return rr.header }
func (rr *responseRecorder) WriteHeader(statusCode int)  { rr.status = statusCode }
