package status

import "fmt"

// Status is the lifecycle state of a single segment.
type Status = int32

const (
	Queued Status = iota
	Downloading
	Completed
	Error
	Merging
	Merged
)

// String returns a readable name for a segment status.
func String(s Status) string {
	switch s {
	case Queued:
		return "Queued"
	case Downloading:
		return "Downloading"
	case Completed:
		return "Completed"
	case Error:
		return "Error"
	case Merging:
		return "Merging"
	case Merged:
		return "Merged"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Phase is the download-wide stage. It only moves forward.
type Phase int32

const (
	PhaseDownloading Phase = iota
	PhaseMerging
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseDownloading:
		return "Downloading"
	case PhaseMerging:
		return "Merging"
	case PhaseCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(p))
	}
}
