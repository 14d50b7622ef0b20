package chunk

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/NamanBalaji/segfetch/internal/status"
)

// Chunk is one byte range [StartByte, EndByte) of the remote resource.
//
// StartByte and EndByte never change after planning. Downloaded and the
// status are written by a single owner at a time (the segment worker, then
// the merger) and read by the progress monitor, so both are atomics.
type Chunk struct {
	DownloadID   uuid.UUID
	Position     int
	StartByte    int64
	EndByte      int64
	TempFilePath string

	downloaded atomic.Int64
	status     atomic.Int32

	mu  sync.Mutex
	err error
}

// New creates a queued chunk whose temp file lives under tempRoot/<downloadID>.
func New(downloadID uuid.UUID, position int, start, end int64, tempRoot string) *Chunk {
	return &Chunk{
		DownloadID:   downloadID,
		Position:     position,
		StartByte:    start,
		EndByte:      end,
		TempFilePath: FilePath(tempRoot, downloadID, position),
	}
}

// Dir returns the directory holding every temp artifact of a download.
func Dir(tempRoot string, downloadID uuid.UUID) string {
	return filepath.Join(tempRoot, downloadID.String())
}

// FilePath returns the temp file path for the chunk at position.
func FilePath(tempRoot string, downloadID uuid.UUID, position int) string {
	return filepath.Join(Dir(tempRoot, downloadID), fmt.Sprintf("%s.%d.tmp", downloadID, position))
}

// Size returns the span of the chunk in bytes.
func (c *Chunk) Size() int64 {
	return c.EndByte - c.StartByte
}

func (c *Chunk) Downloaded() int64 {
	return c.downloaded.Load()
}

func (c *Chunk) SetDownloaded(n int64) {
	c.downloaded.Store(n)
}

// AddDownloaded advances the downloaded counter and returns the new value.
func (c *Chunk) AddDownloaded(n int64) int64 {
	return c.downloaded.Add(n)
}

// NextOffset is the absolute offset of the next byte to request.
func (c *Chunk) NextOffset() int64 {
	return c.StartByte + c.Downloaded()
}

// Remaining returns the number of bytes still missing from the chunk.
func (c *Chunk) Remaining() int64 {
	return c.EndByte - c.NextOffset()
}

func (c *Chunk) Status() status.Status {
	return c.status.Load()
}

func (c *Chunk) SetStatus(s status.Status) {
	c.status.Store(s)
}

// Completed reports whether the chunk finished downloading.
func (c *Chunk) Completed() bool {
	return c.Status() == status.Completed
}

// Fail records err and moves the chunk to the Error status.
func (c *Chunk) Fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()

	c.SetStatus(status.Error)
}

// Err returns the error retained by the last failure, if any.
func (c *Chunk) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *Chunk) String() string {
	return fmt.Sprintf("chunk %d [%d-%d) %s %d/%d", c.Position, c.StartByte, c.EndByte,
		status.String(c.Status()), c.Downloaded(), c.Size())
}
