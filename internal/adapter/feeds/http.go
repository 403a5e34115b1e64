package feeds

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// NewHTTPClient returns a client with bounded dial and handshake times.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// getter performs the GET shared by every source.
type getter struct {
	client  *http.Client
	headers map[string]string
	maxBody int64
}

func newGetter(opts Options) getter {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = NewHTTPClient(timeout)
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return getter{client: client, headers: opts.Headers, maxBody: maxBody}
}

func (g getter) open(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "perform request")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, errors.Newf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return resp, nil
}

// get returns the whole body.
func (g getter) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := g.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBody+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if int64(len(body)) > g.maxBody {
		return nil, errors.Newf("response exceeds %d bytes", g.maxBody)
	}
	return body, nil
}

// snapshot streams the body into path and returns the cached copy.
// With an empty path the body is held in memory instead.
func (g getter) snapshot(ctx context.Context, url, path string) ([]byte, error) {
	if path == "" {
		return g.get(ctx, url)
	}

	resp, err := g.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create cache dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "create snapshot")
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, g.maxBody+1))
	if err == nil && n > g.maxBody {
		err = errors.Newf("response exceeds %d bytes", g.maxBody)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "write snapshot")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, errors.Wrap(err, "replace snapshot")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	return data, nil
}

func cachePath(opts Options, ext string) string {
	if opts.CacheDir == "" {
		return ""
	}
	return filepath.Join(opts.CacheDir, opts.Name+ext)
}
