package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/NamanBalaji/segfetch/internal/downloader"
	"github.com/NamanBalaji/segfetch/internal/logger"
	"github.com/NamanBalaji/segfetch/internal/progress"
	"github.com/NamanBalaji/segfetch/internal/repository"
)

// barDelegate renders a run on a terminal progress bar and persists its
// snapshots so the run can be resumed.
type barDelegate struct {
	out  io.Writer
	repo repository.Repository
	name string
	bar  *progressbar.ProgressBar
}

var _ downloader.Delegate = (*barDelegate)(nil)

func newBarDelegate(out io.Writer, repo repository.Repository, name string) *barDelegate {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionFullWidth(),
	)

	return &barDelegate{
		out:  out,
		repo: repo,
		name: name,
		bar:  bar,
	}
}

func (b *barDelegate) OnStarted(d downloader.Download, eta time.Duration, bps int64) {
	b.bar.ChangeMax64(d.Total)
	b.update(d, eta, bps)
	b.save(d)
}

func (b *barDelegate) OnProgress(d downloader.Download, eta time.Duration, bps int64) {
	b.update(d, eta, bps)
}

func (b *barDelegate) OnError(d downloader.Download) {
	_ = b.bar.Exit()
	b.save(d)
	fmt.Fprintf(b.out, "\n%s failed: %s: %s\n", b.name, d.Error, d.ErrorMessage)
}

func (b *barDelegate) OnComplete(d downloader.Download) {
	_ = b.bar.Set64(d.Total)
	_ = b.bar.Finish()
	fmt.Fprintln(b.out)
}

func (b *barDelegate) SaveDownloadProgress(d downloader.Download) {
	b.save(d)
}

func (b *barDelegate) update(d downloader.Download, eta time.Duration, bps int64) {
	b.bar.Describe(describe(b.name, progress.New(d.Total, d.Downloaded, bps, eta)))

	if err := b.bar.Set64(d.Downloaded); err != nil {
		logger.Debugf("Failed to render progress: %v", err)
	}
}

func (b *barDelegate) save(d downloader.Download) {
	if err := b.repo.Save(d); err != nil {
		logger.Errorf("Failed to save snapshot %s: %v", d.ID, err)
	}
}

// describe renders the bar label: name, percentage and ETA.
func describe(name string, r progress.Reporter) string {
	return fmt.Sprintf("%s %3.0f%% (eta %s)", name, r.GetPercentage(), r.GetETA())
}
