package repository

import (
	"github.com/google/uuid"

	"github.com/NamanBalaji/segfetch/internal/downloader"
)

// Repository keeps download snapshots so they can be listed and resumed.
type Repository interface {
	Save(download downloader.Download) error
	Find(id uuid.UUID) (downloader.Download, error)
	FindAll() ([]downloader.Download, error)
	Delete(id uuid.UUID) error
}
