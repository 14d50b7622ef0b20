package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segfetch/internal/downloader"
	httpPkg "github.com/NamanBalaji/segfetch/pkg/http"
)

var ErrInvalidURL = errors.New("not an http or https URL")

func newGetCmd(a *app) *cobra.Command {
	var (
		output  string
		chunks  int
		id      string
		headers []string
	)

	cmd := &cobra.Command{
		Use:   "get URL [--output PATH]",
		Short: "Download a file over HTTP/HTTPS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			if !httpPkg.IsHTTPURL(url) {
				return fmt.Errorf("%w: %s", ErrInvalidURL, url)
			}

			if chunks < 0 {
				return fmt.Errorf("chunks must not be negative, got %d", chunks)
			}

			var downloadID uuid.UUID
			if id != "" {
				parsed, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("invalid download id %q: %w", id, err)
				}

				downloadID = parsed
			}

			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			s, err := a.open(chunks)
			if err != nil {
				return err
			}
			defer s.Close()

			file, err := s.target(cmd, url, output)
			if err != nil {
				return err
			}

			return s.run(cmd.Context(), downloader.Download{
				ID:      downloadID,
				URL:     url,
				Headers: hdrs,
				File:    file,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (default: configured download directory)")
	cmd.Flags().IntVarP(&chunks, "chunks", "c", 0, "Number of parallel chunks (default: picked by size)")
	cmd.Flags().StringVar(&id, "id", "", "Download ID to use instead of a generated one")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header as 'Key: Value' (repeatable)")

	return cmd
}

// target resolves where url is saved. An empty output or an existing
// directory asks the server for the file name.
func (s *session) target(cmd *cobra.Command, url, output string) (string, error) {
	dir := s.cfg.Http.DownloadDir

	if output != "" {
		info, err := os.Stat(output)
		if err != nil || !info.IsDir() {
			return filepath.Abs(output)
		}

		dir = output
	}

	name, err := s.transport.Filename(cmd.Context(), url)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file name: %w", err)
	}

	return filepath.Abs(filepath.Join(dir, filepath.Base(name)))
}
