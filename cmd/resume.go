package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segfetch/internal/repository"
)

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume ID",
		Short: "Resume an interrupted or failed download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid download id %q: %w", args[0], err)
			}

			s, err := a.open(0)
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := s.repo.Find(id)
			if err != nil {
				if errors.Is(err, repository.ErrDownloadNotFound) {
					return fmt.Errorf("%w: %s (see segfetch list)", err, id)
				}

				return err
			}

			return s.run(cmd.Context(), d)
		},
	}
}
