package downloader

import (
	"context"
	"io"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Request describes one GET issued through a Transport. Headers already
// carry the Range entry for the offset the request starts at.
type Request struct {
	ID      uuid.UUID
	URL     string
	Headers map[string]string
	// File is the target path for the opening request and the chunk temp
	// file for chunk requests.
	File string
	Tag  string
}

// Response is what a Transport returns for an executed Request.
type Response struct {
	Code          int
	IsSuccessful  bool
	ContentLength int64
	Body          io.ReadCloser
}

// Transport executes range requests on behalf of the downloader.
//
// OutputSink and InputSource may return a nil writer or reader, in which
// case the downloader opens the request's file itself and seeks to offset.
// ChunkCount returns the number of chunks to split total into, 0 to let the
// downloader pick by size.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
	OutputSink(req *Request, offset int64) (io.WriteCloser, error)
	InputSource(req *Request, offset int64) (io.ReadCloser, error)
	ChunkCount(req *Request, total int64) int
	Disconnect(resp *Response) error
}

// Delegate observes the lifecycle of a run. Every method is called from
// the goroutine executing Run and should return quickly.
type Delegate interface {
	OnStarted(d Download, eta time.Duration, bps int64)
	OnProgress(d Download, eta time.Duration, bps int64)
	OnError(d Download)
	OnComplete(d Download)
	SaveDownloadProgress(d Download)
}

// NetworkInfo reports whether the host currently has connectivity.
type NetworkInfo interface {
	IsNetworkAvailable() bool
}

// Download is the externally visible state of a run.
type Download struct {
	ID      uuid.UUID         `json:"id"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	File    string            `json:"file"`
	Tag     string            `json:"tag,omitempty"`

	Total int64 `json:"total"`
	// Downloaded is the phase weighted byte count, not the raw one.
	Downloaded int64 `json:"downloaded"`

	Error        ErrorKind `json:"error"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Err          error     `json:"-"`
}

func (d Download) clone() Download {
	d.Headers = maps.Clone(d.Headers)
	return d
}

// Request builds the opening request for the download: a ranged GET from
// byte zero targeting File.
func (d Download) Request() *Request {
	return newRequest(d, d.File, 0)
}

func newRequest(d Download, file string, offset int64) *Request {
	headers := make(map[string]string, len(d.Headers)+1)
	maps.Copy(headers, d.Headers)
	headers["Range"] = rangeHeader(offset)

	return &Request{
		ID:      d.ID,
		URL:     d.URL,
		Headers: headers,
		File:    file,
		Tag:     d.Tag,
	}
}

type nopDelegate struct{}

func (nopDelegate) OnStarted(Download, time.Duration, int64)  {}
func (nopDelegate) OnProgress(Download, time.Duration, int64) {}
func (nopDelegate) OnError(Download)                          {}
func (nopDelegate) OnComplete(Download)                       {}
func (nopDelegate) SaveDownloadProgress(Download)             {}
