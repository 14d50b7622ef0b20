package http

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/NamanBalaji/segfetch/internal/downloader"
	"github.com/NamanBalaji/segfetch/internal/logger"
	httpPkg "github.com/NamanBalaji/segfetch/pkg/http"
)

// Transport issues the downloader's range requests over HTTP. Chunk files
// are written and read by the downloader itself, so OutputSink and
// InputSource always defer to it.
type Transport struct {
	client *httpPkg.Client
	chunks int
}

type Option func(*Transport)

// WithChunks fixes the number of chunks, 0 keeps the size based default.
func WithChunks(n int) Option {
	return func(t *Transport) {
		if n >= 0 {
			t.chunks = n
		}
	}
}

func WithClient(c *httpPkg.Client) Option {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

func NewTransport(opts ...Option) *Transport {
	t := &Transport{client: httpPkg.NewClient()}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Transport) Execute(ctx context.Context, req *downloader.Request) (*downloader.Response, error) {
	resp, err := t.client.Open(ctx, req.URL, req.Headers)
	if err != nil {
		return nil, err
	}

	logger.Debugf("Request %s range=%q answered %d", req.ID, req.Headers["Range"], resp.StatusCode)

	return &downloader.Response{
		Code:          resp.StatusCode,
		IsSuccessful:  resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices,
		ContentLength: contentLength(resp),
		Body:          resp.Body,
	}, nil
}

func (t *Transport) OutputSink(*downloader.Request, int64) (io.WriteCloser, error) {
	return nil, nil
}

func (t *Transport) InputSource(*downloader.Request, int64) (io.ReadCloser, error) {
	return nil, nil
}

func (t *Transport) ChunkCount(*downloader.Request, int64) int {
	return t.chunks
}

func (t *Transport) Disconnect(resp *downloader.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}

	return resp.Body.Close()
}

// Filename asks the server for the resource name, falling back to the
// last URL path segment.
func (t *Transport) Filename(ctx context.Context, urlStr string) (string, error) {
	resp, err := t.client.Open(ctx, urlStr, map[string]string{"Range": "bytes=0-0"})
	if err != nil {
		return "", err
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("Failed to close response body: %v", err)
		}
	}()

	if err := httpPkg.ClassifyHTTPError(resp.StatusCode); err != nil {
		return "", err
	}

	return httpPkg.GetFilename(resp), nil
}

// contentLength returns the body length, derived from Content-Range when
// the server omitted Content-Length on a partial response.
func contentLength(resp *http.Response) int64 {
	if resp.ContentLength >= 0 || resp.StatusCode != http.StatusPartialContent {
		return resp.ContentLength
	}

	start, end, ok := parseContentRange(resp.Header.Get("Content-Range"))
	if !ok {
		return -1
	}

	return end - start + 1
}

// parseContentRange parses "bytes <start>-<end>/<size>".
func parseContentRange(header string) (int64, int64, bool) {
	value, ok := strings.CutPrefix(header, "bytes ")
	if !ok {
		return 0, 0, false
	}

	span, _, ok := strings.Cut(value, "/")
	if !ok {
		return 0, 0, false
	}

	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, false
	}

	end, err := strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}

	return start, end, true
}
