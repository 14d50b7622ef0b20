package downloader

import (
	"os"
	"path/filepath"
	"time"

	"github.com/NamanBalaji/segfetch/internal/chunk"
)

const (
	DefaultProgressInterval = 2 * time.Second
	DefaultSpeedInterval    = time.Second
	DefaultBufferSize       = 8 * 1024
	DefaultRecheckAttempts  = 10
	DefaultRecheckInterval  = 500 * time.Millisecond

	speedWindow  = 5
	mergeBufSize = 4 * 1024 * 1024
)

// DefaultTempDir is the root under which every download keeps its chunks.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), "segfetch")
}

type options struct {
	progressInterval   time.Duration
	speedInterval      time.Duration
	bufferSize         int
	retryOnNetworkGain bool
	networkInfo        NetworkInfo
	tempDir            string
	store              chunk.ProgressStore
	delegate           Delegate
	recheckAttempts    int
	recheckInterval    time.Duration
}

type Option func(*options)

func defaultOptions() *options {
	return &options{
		progressInterval: DefaultProgressInterval,
		speedInterval:    DefaultSpeedInterval,
		bufferSize:       DefaultBufferSize,
		tempDir:          DefaultTempDir(),
		delegate:         nopDelegate{},
		recheckAttempts:  DefaultRecheckAttempts,
		recheckInterval:  DefaultRecheckInterval,
	}
}

// WithProgressInterval sets how often OnProgress fires and chunk progress
// is persisted.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.progressInterval = d
		}
	}
}

// WithSpeedInterval sets the throughput sampling interval.
func WithSpeedInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.speedInterval = d
		}
	}
}

func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithRetryOnNetworkGain enables reporting KindNoNetworkConnection when
// connectivity is lost around a failure.
func WithRetryOnNetworkGain(enabled bool) Option {
	return func(o *options) {
		o.retryOnNetworkGain = enabled
	}
}

func WithNetworkInfo(ni NetworkInfo) Option {
	return func(o *options) {
		o.networkInfo = ni
	}
}

// WithNetworkRecheck bounds the connectivity poll done on failure.
func WithNetworkRecheck(attempts int, interval time.Duration) Option {
	return func(o *options) {
		if attempts >= 0 {
			o.recheckAttempts = attempts
		}

		if interval > 0 {
			o.recheckInterval = interval
		}
	}
}

func WithTempDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.tempDir = dir
		}
	}
}

// WithProgressStore replaces the default text record store.
func WithProgressStore(s chunk.ProgressStore) Option {
	return func(o *options) {
		o.store = s
	}
}

func WithDelegate(d Delegate) Option {
	return func(o *options) {
		if d != nil {
			o.delegate = d
		}
	}
}
