// Package remotehttp implements the one RemoteBackend transport the core
// itself ships with: plain http(s) GET (spec §4.8's Pull operation). Every
// other transport (FTP, SFTP, S3) is explicitly out of scope for the
// core (spec's Non-goals name "the wire details of individual remote-fetch
// protocols"), left to extensions registered through
// registry.RegisterRemoteBackend the same way product-type plugins are.
package remotehttp

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stcorp/muninn/internal/apperrors"
)

// ErrRemote is the root of every error this backend returns.
var ErrRemote apperrors.Error = apperrors.ErrStorage.Msg("http remote backend error")

// defaultTimeout is the per-attempt timeout New uses until SetConfiguration
// supplies a "timeout" key.
const defaultTimeout = 30 * time.Second

// Backend implements registry.RemoteBackend and
// registry.ConfigurableRemoteBackend for http:// and https:// remote_url
// values. Retries are this transport's own responsibility (spec §4.8): a
// request that times out is retried exactly once before giving up, the
// default spec.md describes for HTTP/HTTPS specifically.
type Backend struct {
	client *retryablehttp.Client
}

// New returns a Backend with the spec's default single-retry-on-timeout
// policy and a 30s per-attempt timeout.
func New() *Backend {
	return &Backend{client: newClient(defaultTimeout)}
}

func newClient(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 1
	c.RetryWaitMin = 0
	c.RetryWaitMax = 0
	c.Logger = nil
	c.HTTPClient.Timeout = timeout
	// Only a timeout is worth retrying: a 4xx/5xx response is a definite
	// server answer, not a transient condition this transport should mask.
	c.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err == nil {
			return false, nil
		}
		if os.IsTimeout(err) {
			return true, nil
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return true, nil
		}
		return false, nil
	}
	return c
}

// Identify reports whether rawURL is one this backend handles.
func (b *Backend) Identify(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// SetConfiguration accepts an optional "timeout" key (a duration string
// parseable by time.ParseDuration, or a bare integer number of seconds) from
// the archive configuration's remote_backend_extensions wiring.
func (b *Backend) SetConfiguration(cfg map[string]string) apperrors.Error {
	raw, ok := cfg["timeout"]
	if !ok || raw == "" {
		return nil
	}
	d, derr := time.ParseDuration(raw)
	if derr != nil {
		if secs, serr := strconv.Atoi(raw); serr == nil {
			d = time.Duration(secs) * time.Second
		} else {
			return ErrRemote.MsgErr("invalid timeout in remote backend configuration", derr)
		}
	}
	b.client = newClient(d)
	return nil
}

// Pull downloads url's remote_url into targetDir, naming the resulting file
// physicalName (spec §4.8: the orchestrator then performs an ingest-style
// write of the returned path into storage).
func (b *Backend) Pull(ctx context.Context, remoteURL, physicalName, targetDir string) ([]string, apperrors.Error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, ErrRemote.MsgErr("failed to build remote fetch request", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, ErrRemote.MsgErr("remote fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrRemote.Msg("remote fetch returned status " + resp.Status)
	}

	dest := filepath.Join(targetDir, physicalName)
	f, ferr := os.Create(dest)
	if ferr != nil {
		return nil, ErrRemote.MsgErr("failed to create destination file", ferr)
	}
	defer f.Close()

	if _, cerr := io.Copy(f, resp.Body); cerr != nil {
		return nil, ErrRemote.MsgErr("failed writing remote fetch response to disk", cerr)
	}

	return []string{dest}, nil
}
