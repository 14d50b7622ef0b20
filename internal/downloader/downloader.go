package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NamanBalaji/segfetch/internal/chunk"
	"github.com/NamanBalaji/segfetch/internal/logger"
	"github.com/NamanBalaji/segfetch/internal/progress"
	"github.com/NamanBalaji/segfetch/internal/status"
)

var ErrAlreadyRun = errors.New("downloader already run")

// ChunkFileDownloader downloads one resource as parallel byte ranges into
// temp files, then merges them in order into the target file.
//
// A downloader runs once. Interrupt and Terminate may be called from any
// goroutine; both are one-way.
type ChunkFileDownloader struct {
	id        uuid.UUID
	transport Transport
	opts      *options

	mu       sync.Mutex
	download Download
	chunks   []*chunk.Chunk
	cancel   context.CancelFunc

	total      atomic.Int64
	downloaded atomic.Int64
	phase      atomic.Int32

	started     atomic.Bool
	interrupted atomic.Bool
	terminated  atomic.Bool
	completed   atomic.Bool

	avg *progress.MovingAverage
	bps atomic.Int64
	eta atomic.Int64

	// only touched by the goroutine executing Run
	opening *Response
	output  io.WriteCloser
}

// New creates a downloader for d. A nil ID is replaced by a fresh one.
func New(d Download, transport Transport, opts ...Option) *ChunkFileDownloader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.store == nil {
		o.store = chunk.NewTextStore(o.tempDir)
	}

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	d = d.clone()
	d.Error = KindNone
	d.ErrorMessage = ""
	d.Err = nil

	cfd := &ChunkFileDownloader{
		id:        d.ID,
		transport: transport,
		opts:      o,
		download:  d,
		avg:       progress.NewMovingAverage(speedWindow),
	}
	cfd.eta.Store(int64(progress.ETAUnknown))

	return cfd
}

// Run executes the download to completion, failure or interruption.
// Failures are reported to the delegate and returned as *Error;
// an interrupted run returns nil.
func (d *ChunkFileDownloader) Run(parent context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	ctx, cancel := context.WithCancel(parent)
	d.setCancel(cancel)

	if d.stopped() {
		cancel()
	}

	g := new(errgroup.Group)

	defer func() {
		cancel()

		_ = g.Wait()

		d.disconnect(d.opening)
		d.opening = nil

		if d.output != nil {
			if err := d.output.Close(); err != nil {
				logger.Errorf("Failed to close output for download %s: %v", d.id, err)
			}

			d.output = nil
		}

		// a cancelled caller context counts as an interrupt
		if parent.Err() != nil && !d.completed.Load() {
			d.interrupted.Store(true)
		}

		d.terminated.Store(true)
	}()

	err := d.run(ctx, g)
	if err != nil {
		return d.fail(ctx, err)
	}

	return nil
}

func (d *ChunkFileDownloader) run(ctx context.Context, g *errgroup.Group) error {
	req := d.snapshot().Request()

	logger.Debugf("Opening download %s from %s", req.ID, req.URL)

	resp, err := d.transport.Execute(ctx, req)
	d.opening = resp

	if d.halted(ctx) {
		return nil
	}

	switch {
	case err != nil:
		return err
	case resp == nil:
		return ErrEmptyResponseBody
	case !resp.IsSuccessful:
		return responseError(resp.Code)
	case resp.ContentLength <= 0:
		return ErrEmptyResponseBody
	}

	total := resp.ContentLength
	partial := resp.Code == http.StatusPartialContent

	chunks, err := chunk.Plan(req.ID, total, d.transport.ChunkCount(req, total), partial, d.opts.tempDir)
	if err != nil {
		return err
	}

	// the opening body is never read
	d.disconnect(d.opening)
	d.opening = nil

	d.total.Store(total)
	d.downloaded.Store(chunk.Restore(chunks, d.opts.store))
	d.setChunks(chunks, total)

	if d.halted(ctx) {
		return nil
	}

	pending := chunk.Pending(chunks)

	logger.Infof("Download %s started: %d bytes, partial=%t, %d chunks, %d pending",
		req.ID, total, partial, len(chunks), len(pending))

	d.opts.delegate.OnStarted(d.Download(), d.ETA(), d.BytesPerSecond())

	g.SetLimit(len(pending) + 1)
	d.downloadChunks(ctx, g, pending)
	d.monitor(ctx, waitChan(g))

	if !d.halted(ctx) && d.downloaded.Load() == total {
		if err := d.mergeAll(ctx, g, req, chunks); err != nil {
			return err
		}
	}

	d.opts.delegate.SaveDownloadProgress(d.Download())

	if !d.completed.Load() && !d.terminated.Load() {
		d.opts.delegate.OnProgress(d.Download(), d.ETA(), d.BytesPerSecond())
	}

	for _, c := range chunks {
		if c.Status() == status.Error {
			return c.Err()
		}
	}

	return nil
}

// mergeAll runs the merge task on the pool and finalizes the download when
// every chunk was merged.
func (d *ChunkFileDownloader) mergeAll(ctx context.Context, g *errgroup.Group, req *Request, chunks []*chunk.Chunk) error {
	out, err := d.openOutput(req)
	if err != nil {
		return err
	}

	d.output = out

	d.phase.Store(int32(status.PhaseMerging))

	for _, c := range chunks {
		c.SetStatus(status.Merging)
	}

	logger.Debugf("Merging %d chunks of download %s into %s", len(chunks), req.ID, req.File)

	g.Go(func() error {
		d.merge(ctx, out, chunks)
		return nil
	})
	d.monitor(ctx, waitChan(g))

	if d.halted(ctx) || !allMerged(chunks) {
		return nil
	}

	d.completed.Store(true)
	d.phase.Store(int32(status.PhaseCompleted))

	logger.Infof("Download %s completed: %s", req.ID, req.File)

	if !d.terminated.Load() {
		d.opts.delegate.OnProgress(d.Download(), d.ETA(), d.BytesPerSecond())
		d.opts.delegate.OnComplete(d.Download())
	}

	d.removeTemp(req.ID, chunks)

	return nil
}

// fail classifies err, optionally reclassifies it as a connectivity loss
// and reports it. Failures seen after an interruption are not reported.
func (d *ChunkFileDownloader) fail(ctx context.Context, err error) error {
	if d.halted(ctx) {
		logger.Debugf("Ignoring failure of interrupted download %s: %v", d.id, err)
		return nil
	}

	logger.Errorf("Download %s failed: %v", d.id, err)

	kind := KindOf(err)
	if d.opts.retryOnNetworkGain && d.networkLost() {
		kind = KindNoNetworkConnection
	}

	reported := &Error{Kind: kind, Err: err}

	d.mu.Lock()
	d.download.Error = kind
	d.download.ErrorMessage = err.Error()
	d.download.Err = reported
	d.mu.Unlock()

	if !d.terminated.Load() {
		d.opts.delegate.OnError(d.Download())
	}

	return reported
}

// networkLost polls the network provider a bounded number of times and
// reports whether connectivity was missing at any point.
func (d *ChunkFileDownloader) networkLost() bool {
	ni := d.opts.networkInfo
	if ni == nil {
		return false
	}

	if !ni.IsNetworkAvailable() {
		return true
	}

	for range d.opts.recheckAttempts {
		time.Sleep(d.opts.recheckInterval)

		if !ni.IsNetworkAvailable() {
			return true
		}
	}

	return false
}

// Interrupt stops the run cooperatively. Chunks in flight are requeued so a
// later run resumes them from their persisted offsets.
func (d *ChunkFileDownloader) Interrupt() {
	d.interrupted.Store(true)
	d.cancelRun()
}

// Terminate stops the run and suppresses every further delegate callback.
func (d *ChunkFileDownloader) Terminate() {
	d.terminated.Store(true)
	d.cancelRun()
}

func (d *ChunkFileDownloader) Interrupted() bool {
	return d.interrupted.Load()
}

// Terminated reports whether Terminate was called or Run has returned.
func (d *ChunkFileDownloader) Terminated() bool {
	return d.terminated.Load()
}

// CompletedDownload reports whether the run merged every chunk.
func (d *ChunkFileDownloader) CompletedDownload() bool {
	return d.completed.Load()
}

// Download returns the current state with the phase weighted byte count.
func (d *ChunkFileDownloader) Download() Download {
	shown := d.displayed()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.download.Downloaded = shown

	return d.download.clone()
}

// ETA returns the last estimate, progress.ETAUnknown without throughput.
func (d *ChunkFileDownloader) ETA() time.Duration {
	return time.Duration(d.eta.Load())
}

func (d *ChunkFileDownloader) BytesPerSecond() int64 {
	return d.bps.Load()
}

// Chunks returns the planned chunks, nil before planning.
func (d *ChunkFileDownloader) Chunks() []*chunk.Chunk {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.chunks
}

func (d *ChunkFileDownloader) snapshot() Download {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.download.clone()
}

func (d *ChunkFileDownloader) setChunks(chunks []*chunk.Chunk, total int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.chunks = chunks
	d.download.Total = total
}

func (d *ChunkFileDownloader) setCancel(cancel context.CancelFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancel = cancel
}

func (d *ChunkFileDownloader) cancelRun() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (d *ChunkFileDownloader) stopped() bool {
	return d.interrupted.Load() || d.terminated.Load()
}

func (d *ChunkFileDownloader) halted(ctx context.Context) bool {
	return d.stopped() || ctx.Err() != nil
}

// displayed maps the raw counters to the byte count shown to observers.
func (d *ChunkFileDownloader) displayed() int64 {
	chunks := d.Chunks()

	merged := 0
	for _, c := range chunks {
		if c.Status() == status.Merged {
			merged++
		}
	}

	return progress.Displayed(status.Phase(d.phase.Load()), d.downloaded.Load(), d.total.Load(), merged, len(chunks))
}

func (d *ChunkFileDownloader) disconnect(resp *Response) {
	if resp == nil {
		return
	}

	if err := d.transport.Disconnect(resp); err != nil {
		logger.Errorf("Failed to disconnect response: %v", err)
	}
}

// removeTemp deletes every chunk file, progress record and the download's
// temp directory. Failures are only logged.
func (d *ChunkFileDownloader) removeTemp(id uuid.UUID, chunks []*chunk.Chunk) {
	for _, c := range chunks {
		if err := os.Remove(c.TempFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Errorf("Failed to remove chunk file %s: %v", c.TempFilePath, err)
		}

		if err := d.opts.store.Delete(c.DownloadID, c.Position); err != nil {
			logger.Errorf("Failed to delete progress of chunk %d: %v", c.Position, err)
		}
	}

	dir := chunk.Dir(d.opts.tempDir, id)
	if err := os.RemoveAll(dir); err != nil {
		logger.Errorf("Failed to remove temp directory %s: %v", dir, err)
	}
}

// openOutput opens the target file for the merge, preferring the
// transport's sink.
func (d *ChunkFileDownloader) openOutput(req *Request) (io.WriteCloser, error) {
	sink, err := d.transport.OutputSink(req, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if sink != nil {
		return sink, nil
	}

	if err := os.MkdirAll(filepath.Dir(req.File), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	f, err := os.OpenFile(req.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return f, nil
}

func allMerged(chunks []*chunk.Chunk) bool {
	for _, c := range chunks {
		if c.Status() != status.Merged {
			return false
		}
	}

	return true
}

// waitChan closes the returned channel once every task on g returned.
func waitChan(g *errgroup.Group) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		_ = g.Wait()
		close(done)
	}()

	return done
}
