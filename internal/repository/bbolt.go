package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/NamanBalaji/segfetch/internal/chunk"
	"github.com/NamanBalaji/segfetch/internal/downloader"
)

const (
	downloadsBucket = "downloads"
	segmentsBucket  = "segments"
	metadataBucket  = "metadata"
	schemaVersion   = 1
)

var (
	// ErrDownloadNotFound is returned when a download cannot be found
	ErrDownloadNotFound = errors.New("download not found")
	ErrEmptyID          = errors.New("download ID cannot be empty")
)

// BboltRepository implements Repository on a single bbolt file.
type BboltRepository struct {
	db *bbolt.DB
}

var _ Repository = (*BboltRepository)(nil)

// NewBboltRepository creates a new bbolt repository
func NewBboltRepository(dbPath string) (*BboltRepository, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &BboltRepository{
		db: db,
	}

	if err := repo.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// initialize sets up buckets and schema
func (r *BboltRepository) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{downloadsBucket, segmentsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}

		metadata, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		err = metadata.Put([]byte("schema_version"), []byte(strconv.Itoa(schemaVersion)))
		if err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}

		return nil
	})
}

// Save persists a download snapshot, replacing any previous one.
func (r *BboltRepository) Save(download downloader.Download) error {
	if download.ID == uuid.Nil {
		return ErrEmptyID
	}

	data, err := json.Marshal(download)
	if err != nil {
		return fmt.Errorf("failed to marshal download: %w", err)
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket([]byte(downloadsBucket)).Put([]byte(download.ID.String()), data)
		if err != nil {
			return fmt.Errorf("failed to save download: %w", err)
		}

		return nil
	})
}

// Find retrieves a download by ID
func (r *BboltRepository) Find(id uuid.UUID) (downloader.Download, error) {
	if id == uuid.Nil {
		return downloader.Download{}, ErrEmptyID
	}

	var download downloader.Download

	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(downloadsBucket)).Get([]byte(id.String()))
		if data == nil {
			return ErrDownloadNotFound
		}

		if err := json.Unmarshal(data, &download); err != nil {
			return fmt.Errorf("failed to unmarshal download: %w", err)
		}

		return nil
	})

	return download, err
}

// FindAll retrieves all downloads
func (r *BboltRepository) FindAll() ([]downloader.Download, error) {
	var downloads []downloader.Download

	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(downloadsBucket)).ForEach(func(k, v []byte) error {
			var download downloader.Download

			if err := json.Unmarshal(v, &download); err != nil {
				return fmt.Errorf("failed to unmarshal download %s: %w", k, err)
			}

			downloads = append(downloads, download)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return downloads, nil
}

// Delete removes a download together with its chunk progress.
func (r *BboltRepository) Delete(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrEmptyID
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(downloadsBucket))
		if bucket.Get([]byte(id.String())) == nil {
			return ErrDownloadNotFound
		}

		if err := bucket.Delete([]byte(id.String())); err != nil {
			return err
		}

		segments := tx.Bucket([]byte(segmentsBucket))
		prefix := []byte(id.String() + "/")

		var keys [][]byte

		c := segments.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}

		for _, k := range keys {
			if err := segments.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// Segments returns the chunk progress store sharing this database.
func (r *BboltRepository) Segments() *SegmentStore {
	return &SegmentStore{db: r.db}
}

// SegmentStore keeps each chunk's downloaded byte count under the key
// <download id>/<position>.
type SegmentStore struct {
	db *bbolt.DB
}

var _ chunk.ProgressStore = (*SegmentStore)(nil)

// Load returns the persisted byte count of a chunk, 0 when none is stored.
func (s *SegmentStore) Load(downloadID uuid.UUID, position int) (int64, error) {
	var downloaded int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(segmentsBucket)).Get(segmentKey(downloadID, position))
		if v == nil {
			return nil
		}

		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", chunk.ErrRecordCorrupt, err)
		}

		downloaded = n

		return nil
	})

	return downloaded, err
}

func (s *SegmentStore) Save(downloadID uuid.UUID, position int, downloaded int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(segmentsBucket)).Put(segmentKey(downloadID, position), []byte(strconv.FormatInt(downloaded, 10)))
	})
}

func (s *SegmentStore) Delete(downloadID uuid.UUID, position int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(segmentsBucket)).Delete(segmentKey(downloadID, position))
	})
}

func (r *BboltRepository) Close() error {
	return r.db.Close()
}

func segmentKey(downloadID uuid.UUID, position int) []byte {
	return []byte(downloadID.String() + "/" + strconv.Itoa(position))
}
