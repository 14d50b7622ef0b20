package chunk

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/NamanBalaji/segfetch/internal/logger"
	"github.com/NamanBalaji/segfetch/internal/status"
)

const (
	mebibyte int64 = 1024 * 1024
	gibibyte int64 = 1024 * mebibyte
)

// ProgressStore persists the downloaded byte count of each chunk so an
// interrupted download can resume where it stopped.
type ProgressStore interface {
	Load(downloadID uuid.UUID, position int) (int64, error)
	Save(downloadID uuid.UUID, position int, downloaded int64) error
	Delete(downloadID uuid.UUID, position int) error
}

// Count returns how many chunks a resource of total bytes is split into and
// the span of every chunk but the last. A hint <= 0 selects the size tiers.
func Count(total int64, hint int) (int, int64) {
	if total <= 0 {
		return 0, 0
	}

	chunks := int64(hint)
	if hint <= 0 {
		switch {
		case total >= gibibyte:
			chunks = 4
		case total >= mebibyte:
			chunks = 2
		default:
			chunks = 1
		}
	}

	if chunks > total {
		chunks = total
	}

	size := (total + chunks - 1) / chunks

	// a large hint can make the last few spans empty; drop them
	return int((total + size - 1) / size), size
}

// Plan splits [0, total) into ordered, contiguous chunks. When the server
// did not answer the opening request with partial content a single chunk
// covering the whole resource is returned.
func Plan(downloadID uuid.UUID, total int64, hint int, partial bool, tempRoot string) ([]*Chunk, error) {
	if total <= 0 {
		return nil, ErrInvalidSize
	}

	dir := Dir(tempRoot, downloadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Errorf("Failed to create temp directory %s: %v", dir, err)
		return nil, fmt.Errorf("%w: %w", ErrChunkTempDirCreate, err)
	}

	if !partial {
		logger.Debugf("Range requests not honoured for %s, planning a single chunk of %d bytes", downloadID, total)
		return []*Chunk{New(downloadID, 1, 0, total, tempRoot)}, nil
	}

	count, size := Count(total, hint)
	logger.Debugf("Planning %d chunks of ~%d bytes for %s (total=%d, hint=%d)", count, size, downloadID, total, hint)

	chunks := make([]*Chunk, 0, count)

	var start int64
	for position := 1; position <= count; position++ {
		end := start + size
		if position == count || end > total {
			end = total
		}

		chunks = append(chunks, New(downloadID, position, start, end, tempRoot))
		start = end
	}

	return chunks, nil
}

// Restore loads the persisted progress of every chunk, marks fully
// downloaded chunks as completed and returns the sum of restored bytes.
// Unreadable or out-of-range records restart their chunk from zero.
func Restore(chunks []*Chunk, store ProgressStore) int64 {
	var total int64

	for _, c := range chunks {
		downloaded, err := store.Load(c.DownloadID, c.Position)
		if err != nil {
			logger.Warnf("Failed to load progress of chunk %d for %s: %v", c.Position, c.DownloadID, err)
			downloaded = 0
		}

		if downloaded < 0 || downloaded > c.Size() {
			logger.Warnf("Discarding progress %d of chunk %d for %s (span %d)", downloaded, c.Position, c.DownloadID, c.Size())
			downloaded = 0
		}

		c.SetDownloaded(downloaded)
		total += downloaded

		if c.StartByte+downloaded == c.EndByte {
			c.SetStatus(status.Completed)
		}
	}

	return total
}

// Pending returns the chunks that still have to be downloaded.
func Pending(chunks []*Chunk) []*Chunk {
	var pending []*Chunk

	for _, c := range chunks {
		if !c.Completed() {
			pending = append(pending, c)
		}
	}

	return pending
}
