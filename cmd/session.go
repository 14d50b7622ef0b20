package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/NamanBalaji/segfetch/internal/config"
	"github.com/NamanBalaji/segfetch/internal/downloader"
	internalhttp "github.com/NamanBalaji/segfetch/internal/http"
	"github.com/NamanBalaji/segfetch/internal/logger"
	"github.com/NamanBalaji/segfetch/internal/network"
	"github.com/NamanBalaji/segfetch/internal/repository"
	httpPkg "github.com/NamanBalaji/segfetch/pkg/http"
)

var ErrInvalidHeader = errors.New("invalid header")

// session owns the resources opened for one command invocation.
type session struct {
	cfg       *config.Config
	repo      *repository.BboltRepository
	transport *internalhttp.Transport
	out       io.Writer
}

// open opens the snapshot database and builds the HTTP transport. A chunks
// value of zero falls back to the configured count.
func (a *app) open(chunks int) (*session, error) {
	dbPath := a.cfg.Storage.DBPath

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo, err := repository.NewBboltRepository(dbPath)
	if err != nil {
		return nil, err
	}

	if chunks == 0 {
		chunks = a.cfg.Http.Chunks
	}

	transport := internalhttp.NewTransport(
		internalhttp.WithClient(httpPkg.NewClient()),
		internalhttp.WithChunks(chunks),
	)

	return &session{
		cfg:       a.cfg,
		repo:      repo,
		transport: transport,
		out:       a.out,
	}, nil
}

func (s *session) Close() {
	if err := s.repo.Close(); err != nil {
		logger.Warnf("Failed to close repository: %v", err)
	}
}

func (s *session) options(delegate downloader.Delegate) []downloader.Option {
	opts := []downloader.Option{
		downloader.WithTempDir(s.cfg.Http.TempDir),
		downloader.WithBufferSize(s.cfg.Http.BufferSize),
		downloader.WithProgressInterval(s.cfg.Http.ProgressInterval),
		downloader.WithDelegate(delegate),
	}

	if s.cfg.Storage.Store == config.StoreBbolt {
		opts = append(opts, downloader.WithProgressStore(s.repo.Segments()))
	}

	if !s.cfg.Network.DisableCheck {
		opts = append(opts,
			downloader.WithRetryOnNetworkGain(true),
			downloader.WithNetworkInfo(network.NewProbe(s.cfg.Network.Probe, 0)),
		)
	}

	return opts
}

// run downloads d, keeping its snapshot in the repository until the file
// is complete.
func (s *session) run(ctx context.Context, d downloader.Download) error {
	delegate := newBarDelegate(s.out, s.repo, filepath.Base(d.File))
	dl := downloader.New(d, s.transport, s.options(delegate)...)

	d = dl.Download()
	if err := s.repo.Save(d); err != nil {
		return err
	}

	err := dl.Run(ctx)

	switch {
	case err != nil:
		fmt.Fprintf(s.out, "Resume with: segfetch resume %s\n", d.ID)
		return err
	case dl.CompletedDownload():
		if err := s.repo.Delete(d.ID); err != nil {
			logger.Warnf("Failed to delete snapshot %s: %v", d.ID, err)
		}

		fmt.Fprintf(s.out, "Saved %s\n", d.File)
	case dl.Interrupted():
		fmt.Fprintf(s.out, "Interrupted, resume with: segfetch resume %s\n", d.ID)
	}

	return nil
}

// parseHeaders turns "Key: Value" pairs into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	headers := make(map[string]string, len(values))

	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, v)
		}

		headers[key] = strings.TrimSpace(value)
	}

	return headers, nil
}
