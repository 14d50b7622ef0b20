package repository_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/NamanBalaji/segfetch/internal/chunk"
	"github.com/NamanBalaji/segfetch/internal/downloader"
	"github.com/NamanBalaji/segfetch/internal/repository"
)

func openRepo(t *testing.T) (*repository.BboltRepository, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	repo, err := repository.NewBboltRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}

	t.Cleanup(func() { repo.Close() })

	return repo, dbPath
}

func TestNewBboltRepository_OpenError(t *testing.T) {
	dir := t.TempDir()
	_, err := repository.NewBboltRepository(dir)
	if err == nil {
		t.Errorf("Expected error when opening DB on directory path, got nil")
	}
}

func TestSaveEmptyID(t *testing.T) {
	repo, _ := openRepo(t)

	err := repo.Save(downloader.Download{})
	if !errors.Is(err, repository.ErrEmptyID) {
		t.Errorf("Expected ErrEmptyID, got %v", err)
	}
}

func TestSaveFindAllDelete(t *testing.T) {
	repo, _ := openRepo(t)

	list, err := repo.FindAll()
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected empty list, got %d items", len(list))
	}

	id := uuid.New()
	dl := downloader.Download{
		ID:         id,
		URL:        "http://example.com/a.iso",
		File:       "/tmp/a.iso",
		Headers:    map[string]string{"Authorization": "token"},
		Total:      1000,
		Downloaded: 450,
		Error:      downloader.KindNoNetworkConnection,
	}

	if err := repo.Save(dl); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	dl.Downloaded = 900
	if err := repo.Save(dl); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	list, err = repo.FindAll()
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(list))
	}

	got, err := repo.Find(id)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if got.URL != dl.URL || got.File != dl.File || got.Total != 1000 || got.Downloaded != 900 {
		t.Errorf("Find returned %+v, want %+v", got, dl)
	}
	if got.Error != downloader.KindNoNetworkConnection || got.Headers["Authorization"] != "token" {
		t.Errorf("Find lost fields: %+v", got)
	}

	if err := repo.Delete(id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	if _, err := repo.Find(id); !errors.Is(err, repository.ErrDownloadNotFound) {
		t.Errorf("Expected ErrDownloadNotFound after delete, got %v", err)
	}

	if err := repo.Delete(id); !errors.Is(err, repository.ErrDownloadNotFound) {
		t.Errorf("Expected ErrDownloadNotFound deleting twice, got %v", err)
	}

	if _, err := repo.Find(uuid.Nil); !errors.Is(err, repository.ErrEmptyID) {
		t.Errorf("Expected ErrEmptyID, got %v", err)
	}
}

func TestSegments_RoundTrip(t *testing.T) {
	repo, _ := openRepo(t)
	store := repo.Segments()
	id := uuid.New()

	n, err := store.Load(id, 1)
	if err != nil || n != 0 {
		t.Fatalf("Load of missing segment = %d, %v; want 0, nil", n, err)
	}

	if err := store.Save(id, 1, 4096); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	n, err = store.Load(id, 1)
	if err != nil || n != 4096 {
		t.Errorf("Load = %d, %v; want 4096, nil", n, err)
	}

	if err := store.Delete(id, 1); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	n, _ = store.Load(id, 1)
	if n != 0 {
		t.Errorf("Load after delete = %d; want 0", n)
	}
}

func TestSegments_Corrupt(t *testing.T) {
	repo, dbPath := openRepo(t)
	id := uuid.New()

	if err := repo.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		t.Fatalf("bbolt open error: %v", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte("segments")).Put([]byte(id.String()+"/1"), []byte("garbage"))
	})
	db.Close()

	if err != nil {
		t.Fatalf("Put error: %v", err)
	}

	repo, err = repository.NewBboltRepository(dbPath)
	if err != nil {
		t.Fatalf("Reopen error: %v", err)
	}
	defer repo.Close()

	if _, err := repo.Segments().Load(id, 1); !errors.Is(err, chunk.ErrRecordCorrupt) {
		t.Errorf("Expected ErrRecordCorrupt, got %v", err)
	}
}

func TestDelete_RemovesOnlyOwnSegments(t *testing.T) {
	repo, _ := openRepo(t)
	store := repo.Segments()

	mine, other := uuid.New(), uuid.New()

	for _, id := range []uuid.UUID{mine, other} {
		if err := repo.Save(downloader.Download{ID: id}); err != nil {
			t.Fatalf("Save error: %v", err)
		}

		for pos := 1; pos <= 3; pos++ {
			if err := store.Save(id, pos, int64(pos*10)); err != nil {
				t.Fatalf("Save segment error: %v", err)
			}
		}
	}

	if err := repo.Delete(mine); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	for pos := 1; pos <= 3; pos++ {
		if n, _ := store.Load(mine, pos); n != 0 {
			t.Errorf("segment %d of deleted download still holds %d", pos, n)
		}

		if n, _ := store.Load(other, pos); n != int64(pos*10) {
			t.Errorf("segment %d of other download = %d; want %d", pos, n, pos*10)
		}
	}
}

func TestSegments_ResumeMarksCompleted(t *testing.T) {
	repo, _ := openRepo(t)
	store := repo.Segments()
	id := uuid.New()

	chunks, err := chunk.Plan(id, 100, 4, true, t.TempDir())
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}

	if err := store.Save(id, 3, chunks[2].Size()); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if got := chunk.Restore(chunks, store); got != 25 {
		t.Errorf("Restore = %d; want 25", got)
	}

	if !chunks[2].Completed() {
		t.Errorf("chunk 3 should be completed")
	}

	if pending := chunk.Pending(chunks); len(pending) != 3 {
		t.Errorf("Pending = %d chunks; want 3", len(pending))
	}
}
