package eodhd

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/rebalance/logger"
)

// diskCache implements a simple disk cache for HTTP responses.
// Entries expire at the end of the ttl window they were stored in.
type diskCache struct {
	base http.RoundTripper
	dir  string        // empty is os.TempDir()
	ttl  time.Duration // zero disables the cache
	now  func() time.Time
}

// RoundTrip implements the http.RoundTripper interface. It checks for a cached
// response on disk first. If a fresh cached response is not found, it proceeds
// with the actual HTTP request and caches the new response if it's successful.
func (c *diskCache) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	log := logger.FromContext(req.Context())
	if c.ttl <= 0 || req.Method != http.MethodGet {
		return c.base.RoundTrip(req)
	}

	key := c.key(req)
	cachedResp, err := c.get(key, req)
	if err == nil { // Cache hit
		log.Debugw("cache hit", "host", req.URL.Host, "path", req.URL.Path)
		return cachedResp, nil
	}

	resp, err = c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	log.Infow("http", "method", req.Method, "host", req.URL.Host, "path", req.URL.Path, "status", resp.Status)
	if resp.StatusCode >= 300 {
		return resp, nil
	}

	if err := c.put(key, resp); err != nil {
		log.Warnw("cache write failed (ignored)", "error", err)
	}
	return resp, nil
}

// key is unique per request and ttl window, so entries expire with the window.
func (c *diskCache) key(req *http.Request) string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	window := now().Truncate(c.ttl).Unix()
	sum := sha1.Sum([]byte(fmt.Sprintf("%d %s %s", window, req.Method, req.URL.String())))
	return fmt.Sprintf("eodhd-%x", sum)
}

func (c *diskCache) path(key string) string {
	dir := c.dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, key)
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (resp *http.Response, err error) {
	content, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to disk cache
func (c *diskCache) put(key string, resp *http.Response) (err error) {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}

	if c.dir != "" {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(c.path(key))
	if err != nil {
		return err
	}

	_, err = f.Write(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// newCachingClient returns an http.Client that uses a disk cache where entries expire after ttl.
func newCachingClient(dir string, ttl time.Duration) *http.Client {
	client := new(http.Client)
	client.Transport = &diskCache{base: http.DefaultTransport, dir: dir, ttl: ttl}
	return client
}

// jwget performs an HTTP GET request to the given address and unmarshals the
// JSON response body into the provided data structure. It uses the provided
// http.Client for the request.
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}
