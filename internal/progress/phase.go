package progress

import (
	"math"

	"github.com/NamanBalaji/segfetch/internal/status"
)

const (
	// downloadShare of the reported range is filled by the download phase,
	// the rest by merging.
	downloadShare = 0.9
	mergeShare    = 1 - downloadShare
)

// Displayed maps raw counters to the byte count reported to observers.
//
// Downloading fills the first 90% of total in whole percent steps, every
// merged chunk adds an equal part of the last 10%, and only a completed
// download reports exactly total.
func Displayed(phase status.Phase, downloaded, total int64, merged, chunks int) int64 {
	if total <= 0 {
		return 0
	}

	switch phase {
	case status.PhaseDownloading:
		pct := Percent(downloaded, total)
		if pct < 0 {
			return 0
		}

		return belowTotal(int64(math.Round(float64(pct)/100*downloadShare*float64(total))), total)
	case status.PhaseMerging:
		base := downloadShare * float64(total)
		if chunks > 0 {
			base += float64(merged) / float64(chunks) * mergeShare * float64(total)
		}

		return belowTotal(int64(math.Round(base)), total)
	default:
		return total
	}
}

func belowTotal(shown, total int64) int64 {
	if shown >= total {
		return total - 1
	}

	return shown
}
