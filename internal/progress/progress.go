package progress

import (
	"fmt"
	"math"
	"time"
)

// ETAUnknown is reported while no throughput has been measured yet.
const ETAUnknown time.Duration = -1

type Reporter interface {
	GetTotalSize() int64
	GetDownloaded() int64
	GetPercentage() float64
	GetSpeedBPS() int64
	GetETA() string
}

// Progress is a point-in-time view of a download as shown to the user.
type Progress struct {
	TotalSize  int64
	Downloaded int64
	Percentage float64
	SpeedBPS   int64
	ETA        time.Duration
}

// New builds a Progress from displayed bytes, speed and ETA.
func New(total, downloaded, speedBPS int64, eta time.Duration) Progress {
	pct := 0.0
	if total > 0 {
		pct = float64(downloaded) / float64(total) * 100
	}

	return Progress{
		TotalSize:  total,
		Downloaded: downloaded,
		Percentage: pct,
		SpeedBPS:   speedBPS,
		ETA:        eta,
	}
}

func (p Progress) GetTotalSize() int64    { return p.TotalSize }
func (p Progress) GetDownloaded() int64   { return p.Downloaded }
func (p Progress) GetPercentage() float64 { return p.Percentage }
func (p Progress) GetSpeedBPS() int64     { return p.SpeedBPS }
func (p Progress) GetETA() string {
	if p.ETA <= 0 {
		return "unknown"
	}

	hrs := int(p.ETA.Hours())
	mins := int(p.ETA.Minutes()) % 60
	secs := int(p.ETA.Seconds()) % 60

	switch {
	case hrs > 0:
		return fmt.Sprintf("%dh %dm %ds", hrs, mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// Percent returns the whole percentage of downloaded over total, -1 when
// the total is unknown.
func Percent(downloaded, total int64) int {
	switch {
	case total < 1:
		return -1
	case downloaded < 1:
		return 0
	case downloaded >= total:
		return 100
	default:
		return int(float64(downloaded) / float64(total) * 100)
	}
}

// ETA estimates the time left to move the remaining bytes at bytesPerSecond.
func ETA(downloaded, total, bytesPerSecond int64) time.Duration {
	if bytesPerSecond < 1 || total < 1 {
		return ETAUnknown
	}

	remaining := total - downloaded
	if remaining <= 0 {
		return 0
	}

	secs := float64(remaining) / float64(bytesPerSecond)

	return time.Duration(math.Ceil(secs * float64(time.Second)))
}
