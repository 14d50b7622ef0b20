package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segfetch/internal/chunk"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [ID]",
		Short: "Remove temporary chunk files and saved snapshots",
		Long:  "Without an ID every unfinished download is forgotten and the temp directory removed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(0)
			if err != nil {
				return err
			}
			defer s.Close()

			tempRoot := s.cfg.Http.TempDir

			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid download id %q: %w", args[0], err)
				}

				return s.forget(id, tempRoot)
			}

			downloads, err := s.repo.FindAll()
			if err != nil {
				return err
			}

			for _, d := range downloads {
				if err := s.repo.Delete(d.ID); err != nil {
					return err
				}
			}

			if err := os.RemoveAll(tempRoot); err != nil {
				return fmt.Errorf("failed to remove %s: %w", tempRoot, err)
			}

			fmt.Fprintf(a.out, "Removed %d snapshot(s) and %s\n", len(downloads), tempRoot)

			return nil
		},
	}
}

func (s *session) forget(id uuid.UUID, tempRoot string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	dir := chunk.Dir(tempRoot, id)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}

	fmt.Fprintf(s.out, "Removed %s\n", id)

	return nil
}
