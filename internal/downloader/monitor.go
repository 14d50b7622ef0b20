package downloader

import (
	"context"
	"math"
	"time"

	"github.com/NamanBalaji/segfetch/internal/progress"
)

// monitor reports progress until done is closed or the run is halted.
//
// Throughput is sampled every speed interval; OnProgress fires every
// progress interval. SaveDownloadProgress follows whichever of the two
// intervals is shorter.
func (d *ChunkFileDownloader) monitor(ctx context.Context, done <-chan struct{}) {
	speed := time.NewTicker(d.opts.speedInterval)
	defer speed.Stop()

	report := time.NewTicker(d.opts.progressInterval)
	defer report.Stop()

	saveOnSpeed := d.opts.progressInterval > d.opts.speedInterval
	last := d.displayed()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-speed.C:
			current := d.displayed()
			d.sample(current-last, current)
			last = current

			if saveOnSpeed {
				d.opts.delegate.SaveDownloadProgress(d.Download())
			}
		case <-report.C:
			if !saveOnSpeed {
				d.opts.delegate.SaveDownloadProgress(d.Download())
			}

			if !d.terminated.Load() {
				d.opts.delegate.OnProgress(d.Download(), d.ETA(), d.BytesPerSecond())
			}
		}
	}
}

// sample feeds the bytes shown during the last speed interval into the
// moving average and refreshes speed and ETA.
func (d *ChunkFileDownloader) sample(delta, shown int64) {
	d.avg.Add(float64(delta) / d.opts.speedInterval.Seconds())

	var bps int64
	if avg := d.avg.Weighted(); avg >= 1 {
		bps = int64(math.Ceil(avg))
	}

	d.bps.Store(bps)
	d.eta.Store(int64(progress.ETA(shown, d.total.Load(), bps)))
}
