package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/segfetch/internal/downloader"
	"github.com/NamanBalaji/segfetch/internal/progress"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List downloads that can be resumed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(0)
			if err != nil {
				return err
			}
			defer s.Close()

			downloads, err := s.repo.FindAll()
			if err != nil {
				return err
			}

			if len(downloads) == 0 {
				fmt.Fprintln(a.out, "No unfinished downloads")
				return nil
			}

			fmt.Fprintln(a.out, downloadTable(downloads))

			return nil
		},
	}
}

func downloadTable(downloads []downloader.Download) string {
	t := table.New().
		Headers("ID", "PROGRESS", "STATE", "FILE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Align(lipgloss.Center).Padding(0, 1)
			}

			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, d := range downloads {
		t.Row(d.ID.String(), percent(d), state(d), d.File)
	}

	return t.String()
}

func percent(d downloader.Download) string {
	pct := progress.Percent(d.Downloaded, d.Total)
	if pct < 0 {
		return "-"
	}

	return fmt.Sprintf("%d%%", pct)
}

func state(d downloader.Download) string {
	if d.Error == downloader.KindNone {
		return "paused"
	}

	return d.Error.String()
}
