package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NamanBalaji/segfetch/internal/chunk"
	"github.com/NamanBalaji/segfetch/internal/logger"
	"github.com/NamanBalaji/segfetch/internal/status"
)

func rangeHeader(offset int64) string {
	return fmt.Sprintf("bytes=%d-", offset)
}

// chunkRequest builds the ranged request resuming c at its next offset.
func (d *ChunkFileDownloader) chunkRequest(c *chunk.Chunk) *Request {
	return newRequest(d.snapshot(), c.TempFilePath, c.NextOffset())
}

// downloadChunks submits one task per chunk. Tasks never return an error
// so a failing chunk does not cancel its siblings.
func (d *ChunkFileDownloader) downloadChunks(ctx context.Context, g *errgroup.Group, chunks []*chunk.Chunk) {
	for _, c := range chunks {
		if d.halted(ctx) {
			return
		}

		c.SetStatus(status.Downloading)

		g.Go(func() error {
			d.downloadChunk(ctx, c)
			return nil
		})
	}
}

// downloadChunk owns c until it reaches Completed, Queued or Error.
func (d *ChunkFileDownloader) downloadChunk(ctx context.Context, c *chunk.Chunk) {
	req := d.chunkRequest(c)
	logger.Debugf("Downloading chunk %d of %s with range %s", c.Position, c.DownloadID, req.Headers["Range"])

	resp, err := d.transport.Execute(ctx, req)
	defer d.disconnect(resp)

	if err == nil {
		err = d.transferChunk(ctx, c, req, resp)
	}

	switch {
	case d.halted(ctx):
		// resume from the last persisted offset, not the in-memory one
		c.SetStatus(status.Queued)
	case err != nil:
		logger.Errorf("Chunk %d of %s failed: %v", c.Position, c.DownloadID, err)
		c.Fail(err)
	case c.Remaining() == 0:
		d.saveChunk(c)
		c.SetStatus(status.Completed)
		logger.Debugf("Chunk %d of %s completed with %d bytes", c.Position, c.DownloadID, c.Downloaded())
	default:
		c.Fail(fmt.Errorf("%w: chunk %d stopped with %d bytes left", ErrUnknown, c.Position, c.Remaining()))
	}
}

func (d *ChunkFileDownloader) transferChunk(ctx context.Context, c *chunk.Chunk, req *Request, resp *Response) error {
	if d.halted(ctx) {
		return nil
	}

	switch {
	case resp == nil:
		return ErrEmptyResponseBody
	case !resp.IsSuccessful:
		return responseError(resp.Code)
	case resp.Body == nil:
		return ErrEmptyResponseBody
	}

	// a server ignoring the range sends the resource from byte zero
	if resp.Code != http.StatusPartialContent && c.NextOffset() > 0 {
		if _, err := io.CopyN(io.Discard, resp.Body, c.NextOffset()); err != nil {
			return fmt.Errorf("%w: %w", ErrRangeSkip, err)
		}
	}

	out, err := d.openChunkSink(req, c.TempFilePath, c.Downloaded())
	if err != nil {
		return err
	}

	defer func() {
		if err := out.Close(); err != nil {
			logger.Errorf("Failed to close chunk %d file: %v", c.Position, err)
		}
	}()

	buf := make([]byte, d.opts.bufferSize)
	lastSave := time.Now()

	for remaining := c.Remaining(); remaining > 0 && !d.halted(ctx); remaining = c.Remaining() {
		n, readErr := resp.Body.Read(buf)
		if int64(n) > remaining {
			n = int(remaining)
		}

		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("%w: %w", ErrWriteFailed, err)
			}

			c.AddDownloaded(int64(n))
			d.downloaded.Add(int64(n))
		}

		if time.Since(lastSave) >= d.opts.progressInterval {
			d.saveChunk(c)
			lastSave = time.Now()
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return readErr
			}

			if c.Remaining() > 0 {
				return io.ErrUnexpectedEOF
			}

			return nil
		}
	}

	return nil
}

// openChunkSink opens the chunk's temp file positioned at offset,
// preferring the transport's sink.
func (d *ChunkFileDownloader) openChunkSink(req *Request, path string, offset int64) (io.WriteCloser, error) {
	sink, err := d.transport.OutputSink(req, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if sink != nil {
		return sink, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return f, nil
}

func (d *ChunkFileDownloader) saveChunk(c *chunk.Chunk) {
	if err := d.opts.store.Save(c.DownloadID, c.Position, c.Downloaded()); err != nil {
		logger.Warnf("Failed to save progress of chunk %d: %v", c.Position, err)
	}
}
