package chunk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TextStore keeps the progress of each chunk as a decimal number in a text
// file next to the chunk's temp file.
type TextStore struct {
	tempRoot string
}

func NewTextStore(tempRoot string) *TextStore {
	return &TextStore{tempRoot: tempRoot}
}

// RecordPath returns the progress record path for the chunk at position.
func (s *TextStore) RecordPath(downloadID uuid.UUID, position int) string {
	return FilePath(s.tempRoot, downloadID, position) + ".txt"
}

func (s *TextStore) Load(downloadID uuid.UUID, position int) (int64, error) {
	b, err := os.ReadFile(s.RecordPath(downloadID, position))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}

		return 0, err
	}

	line, _, _ := strings.Cut(string(b), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRecordCorrupt, err)
	}

	return n, nil
}

func (s *TextStore) Save(downloadID uuid.UUID, position int, downloaded int64) error {
	path := s.RecordPath(downloadID, position)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(strconv.FormatInt(downloaded, 10)), 0o644)
}

func (s *TextStore) Delete(downloadID uuid.UUID, position int) error {
	err := os.Remove(s.RecordPath(downloadID, position))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
