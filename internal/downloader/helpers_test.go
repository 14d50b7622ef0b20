package downloader_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NamanBalaji/segfetch/internal/downloader"
)

// fakeTransport serves data from memory, honouring Range headers when
// partial is set.
type fakeTransport struct {
	data    []byte
	partial bool
	chunks  int
	code    int
	length  int64

	fail   func(req *downloader.Request) error
	delay  func(req *downloader.Request) time.Duration
	body   func(r io.Reader) io.Reader
	sink   func(req *downloader.Request, offset int64) (io.WriteCloser, error)
	source func(req *downloader.Request, offset int64) (io.ReadCloser, error)

	mu          sync.Mutex
	ranges      []string
	disconnects atomic.Int32
}

func newFakeTransport(data []byte, partial bool) *fakeTransport {
	return &fakeTransport{data: data, partial: partial}
}

func (f *fakeTransport) Execute(ctx context.Context, req *downloader.Request) (*downloader.Response, error) {
	f.mu.Lock()
	f.ranges = append(f.ranges, req.Headers["Range"])
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(req)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.fail != nil {
		if err := f.fail(req); err != nil {
			return nil, err
		}
	}

	if f.code != 0 {
		return &downloader.Response{
			Code:          f.code,
			IsSuccessful:  f.code < 300,
			ContentLength: f.length,
			Body:          io.NopCloser(strings.NewReader("")),
		}, nil
	}

	offset := parseOffset(req.Headers["Range"])
	code := http.StatusOK
	payload := f.data

	if f.partial {
		code = http.StatusPartialContent
		payload = f.data[offset:]
	}

	var r io.Reader = bytes.NewReader(payload)
	if f.body != nil {
		r = f.body(r)
	}

	return &downloader.Response{
		Code:          code,
		IsSuccessful:  true,
		ContentLength: int64(len(payload)),
		Body:          io.NopCloser(r),
	}, nil
}

func (f *fakeTransport) OutputSink(req *downloader.Request, offset int64) (io.WriteCloser, error) {
	if f.sink == nil {
		return nil, nil
	}

	return f.sink(req, offset)
}

func (f *fakeTransport) InputSource(req *downloader.Request, offset int64) (io.ReadCloser, error) {
	if f.source == nil {
		return nil, nil
	}

	return f.source(req, offset)
}

func (f *fakeTransport) ChunkCount(*downloader.Request, int64) int {
	return f.chunks
}

func (f *fakeTransport) Disconnect(resp *downloader.Response) error {
	f.disconnects.Add(1)

	if resp.Body != nil {
		return resp.Body.Close()
	}

	return nil
}

func (f *fakeTransport) Ranges() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.ranges...)
}

// memFiles stands in for the filesystem when the transport owns storage.
// It records the offset of every sink and source it hands out.
type memFiles struct {
	mu      sync.Mutex
	files   map[string][]byte
	sinks   map[string][]int64
	sources map[string][]int64
}

func newMemFiles() *memFiles {
	return &memFiles{
		files:   make(map[string][]byte),
		sinks:   make(map[string][]int64),
		sources: make(map[string][]int64),
	}
}

func (m *memFiles) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[name] = append([]byte(nil), data...)
}

func (m *memFiles) File(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]byte(nil), m.files[name]...)
}

func (m *memFiles) SinkOffsets(name string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]int64(nil), m.sinks[name]...)
}

func (m *memFiles) SourceOffsets(name string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]int64(nil), m.sources[name]...)
}

// Sink truncates the file to offset and appends every write.
func (m *memFiles) Sink(req *downloader.Request, offset int64) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sinks[req.File] = append(m.sinks[req.File], offset)

	data := m.files[req.File]
	if int64(len(data)) > offset {
		data = data[:offset]
	}

	m.files[req.File] = append([]byte(nil), data...)

	return &memWriter{files: m, name: req.File}, nil
}

func (m *memFiles) Source(req *downloader.Request, offset int64) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources[req.File] = append(m.sources[req.File], offset)

	data := append([]byte(nil), m.files[req.File]...)
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}

	return io.NopCloser(bytes.NewReader(data[offset:])), nil
}

type memWriter struct {
	files *memFiles
	name  string
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.files.mu.Lock()
	defer w.files.mu.Unlock()

	w.files.files[w.name] = append(w.files.files[w.name], p...)

	return len(p), nil
}

func (w *memWriter) Close() error {
	return nil
}

func parseOffset(header string) int64 {
	v := strings.TrimSuffix(strings.TrimPrefix(header, "bytes="), "-")

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}

	return n
}

// slowReader hands out one byte per read after a short pause.
type slowReader struct {
	r     io.Reader
	pause time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	time.Sleep(s.pause)

	if len(p) > 1 {
		p = p[:1]
	}

	return s.r.Read(p)
}

type recorder struct {
	mu sync.Mutex

	started   int
	errors    int
	completes int
	saves     int
	progress  []int64
	last      downloader.Download

	onStarted  func()
	onProgress func()
}

func (r *recorder) OnStarted(d downloader.Download, _ time.Duration, _ int64) {
	r.mu.Lock()
	r.started++
	r.last = d
	hook := r.onStarted
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (r *recorder) OnProgress(d downloader.Download, _ time.Duration, _ int64) {
	r.mu.Lock()
	r.progress = append(r.progress, d.Downloaded)
	r.last = d
	hook := r.onProgress
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (r *recorder) OnError(d downloader.Download) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
	r.last = d
}

func (r *recorder) OnComplete(d downloader.Download) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completes++
	r.last = d
}

func (r *recorder) SaveDownloadProgress(d downloader.Download) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	r.last = d
}

type staticNetwork bool

func (s staticNetwork) IsNetworkAvailable() bool {
	return bool(s)
}
