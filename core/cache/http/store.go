// Package http implements cache.Store against a plain HTTP object server.
//
// Each key maps to one URL under a base URL, named by the sha256 digest of
// the key. Get issues GET, Put issues PUT with the enveloped blob as body,
// and Delete issues DELETE. Any server that stores request bodies verbatim
// (a WebDAV share, an object store gateway, a build cache proxy) can back it.
package http //nolint:revive // intentional naming for domain clarity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/unwrap/core/cache"
)

// maxEnvelopeOverhead bounds how much larger than the decoded blob a stored
// envelope may be (header plus zstd framing).
const maxEnvelopeOverhead = 64 << 10

var _ cache.Store = (*Store)(nil)

// Store keeps enveloped blobs on a remote HTTP server.
// It is safe for concurrent use.
type Store struct {
	base        *url.URL
	client      *nethttp.Client
	headers     nethttp.Header
	compression cache.Compression
	maxBlobSize uint64
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Store) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Store) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithCompression sets the payload compression for uploaded blobs.
// Defaults to zstd.
func WithCompression(c cache.Compression) Option {
	return func(s *Store) {
		s.compression = c
	}
}

// WithMaxBlobSize limits the decoded size of a downloaded blob and bounds
// how much of a response body is read. Use 0 to disable the limit.
func WithMaxBlobSize(n uint64) Option {
	return func(s *Store) {
		s.maxBlobSize = n
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns a Store rooted at baseURL.
func New(baseURL string, opts ...Option) (*Store, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	s := &Store{
		base:        u,
		client:      nethttp.DefaultClient,
		compression: cache.CompressionZstd,
		maxBlobSize: 1 << 30,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// URL returns the object URL used for key.
func (s *Store) URL(key string) (string, error) {
	if key == "" {
		return "", errors.New("key is empty")
	}
	u := *s.base
	u.Path = u.Path + "/" + digest.FromString(key).Encoded()
	return u.String(), nil
}

// Get implements cache.Store.
//
// A body that fails to decode is deleted remotely (best effort) and its
// error returned.
func (s *Store) Get(key string) ([]byte, bool, error) {
	resp, err := s.do(nethttp.MethodGet, key, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusOK:
		// ok
	case nethttp.StatusNotFound, nethttp.StatusGone:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("get %s: %s", key, resp.Status)
	}

	data, err := s.readBody(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	blob, err := cache.Decode(data, s.maxBlobSize)
	if err != nil {
		s.log().Warn("removing undecodable remote cache object", "key", key, "error", err)
		if delErr := s.Delete(key); delErr != nil {
			s.log().Warn("failed to delete remote cache object", "key", key, "error", delErr)
		}
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return blob, true, nil
}

// Stat returns the envelope header of the object stored for key.
func (s *Store) Stat(key string) (cache.Info, bool, error) {
	resp, err := s.do(nethttp.MethodGet, key, nil)
	if err != nil {
		return cache.Info{}, false, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()
	switch resp.StatusCode {
	case nethttp.StatusOK:
	case nethttp.StatusNotFound, nethttp.StatusGone:
		return cache.Info{}, false, nil
	default:
		return cache.Info{}, false, fmt.Errorf("stat %s: %s", key, resp.Status)
	}
	data, err := s.readBody(resp.Body)
	if err != nil {
		return cache.Info{}, false, fmt.Errorf("stat %s: %w", key, err)
	}
	info, err := cache.Inspect(data)
	if err != nil {
		return cache.Info{}, false, err
	}
	return info, true, nil
}

// readBody reads a response body, refusing bodies that cannot hold a blob
// within the size limit.
func (s *Store) readBody(r io.Reader) ([]byte, error) {
	if s.maxBlobSize == 0 {
		return io.ReadAll(r)
	}
	limit := s.maxBlobSize + maxEnvelopeOverhead
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1)) //nolint:gosec // limit is bounded by configuration
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return data, nil
}

// Put implements cache.Store.
func (s *Store) Put(key string, blob []byte) error {
	data, err := cache.Encode(blob, s.compression)
	if err != nil {
		return err
	}
	resp, err := s.do(nethttp.MethodPut, key, data)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()
	switch resp.StatusCode {
	case nethttp.StatusOK, nethttp.StatusCreated, nethttp.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("put %s: %s", key, resp.Status)
	}
}

// Delete implements cache.Store. A missing object is not an error.
func (s *Store) Delete(key string) error {
	resp, err := s.do(nethttp.MethodDelete, key, nil)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()
	switch resp.StatusCode {
	case nethttp.StatusOK, nethttp.StatusAccepted, nethttp.StatusNoContent,
		nethttp.StatusNotFound, nethttp.StatusGone:
		return nil
	default:
		return fmt.Errorf("delete %s: %s", key, resp.Status)
	}
}

// do sends one request with the configured headers.
func (s *Store) do(method, key string, body []byte) (*nethttp.Response, error) {
	target, err := s.URL(key)
	if err != nil {
		return nil, err
	}
	var rd io.Reader = nethttp.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := nethttp.NewRequestWithContext(context.Background(), method, target, rd)
	if err != nil {
		return nil, err
	}
	for k, values := range s.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, key, err)
	}
	return resp, nil
}
