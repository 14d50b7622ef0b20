package downloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/NamanBalaji/segfetch/internal/chunk"
	"github.com/NamanBalaji/segfetch/internal/logger"
	"github.com/NamanBalaji/segfetch/internal/status"
)

var errHalted = errors.New("merge halted")

// merge streams every chunk file into out in position order. When halted
// or failing, the chunks not yet merged go back to Queued.
func (d *ChunkFileDownloader) merge(ctx context.Context, out io.Writer, chunks []*chunk.Chunk) {
	w := bufio.NewWriterSize(out, mergeBufSize)
	buf := make([]byte, d.opts.bufferSize)

	for i, c := range chunks {
		err := d.mergeChunk(ctx, c, w, buf)
		if err == nil {
			if flushErr := w.Flush(); flushErr != nil {
				err = fmt.Errorf("%w: %w", ErrWriteFailed, flushErr)
			}
		}

		switch {
		case err == nil:
			c.SetStatus(status.Merged)
			continue
		case errors.Is(err, errHalted) || d.halted(ctx):
			requeue(chunks[i:])
		default:
			logger.Errorf("Failed to merge chunk %d of download %s: %v", c.Position, c.DownloadID, err)
			c.Fail(fmt.Errorf("%w: %w", ErrMergeFailed, err))
			requeue(chunks[i+1:])
		}

		return
	}
}

// mergeChunk copies exactly the chunk's span from its temp file into w.
func (d *ChunkFileDownloader) mergeChunk(ctx context.Context, c *chunk.Chunk, w io.Writer, buf []byte) error {
	src, err := d.openChunkSource(c)
	if err != nil {
		return err
	}

	defer func() {
		if err := src.Close(); err != nil {
			logger.Errorf("Failed to close chunk %d source: %v", c.Position, err)
		}
	}()

	r := io.LimitReader(src, c.Size())

	var copied int64

	for {
		if d.halted(ctx) {
			return errHalted
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: %w", ErrWriteFailed, werr)
			}

			copied += int64(n)
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return err
		}
	}

	if copied != c.Size() {
		return fmt.Errorf("chunk %d holds %d of %d bytes: %w", c.Position, copied, c.Size(), io.ErrUnexpectedEOF)
	}

	return nil
}

func (d *ChunkFileDownloader) openChunkSource(c *chunk.Chunk) (io.ReadCloser, error) {
	src, err := d.transport.InputSource(d.chunkSourceRequest(c), 0)
	if err != nil {
		return nil, err
	}

	if src != nil {
		return src, nil
	}

	return os.Open(c.TempFilePath)
}

func (d *ChunkFileDownloader) chunkSourceRequest(c *chunk.Chunk) *Request {
	return newRequest(d.snapshot(), c.TempFilePath, c.StartByte)
}

func requeue(chunks []*chunk.Chunk) {
	for _, c := range chunks {
		c.SetStatus(status.Queued)
	}
}
