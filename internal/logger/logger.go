package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var (
	log = zerolog.Nop()

	DebugEnabled = false

	logFile *os.File
)

// InitLogging sets up logging based on configuration.
// With debug disabled nothing is written.
func InitLogging(debugMode bool, logPath string) error {
	DebugEnabled = debugMode

	if !DebugEnabled {
		log = zerolog.Nop()
		return nil
	}

	var out io.Writer = os.Stderr

	if logPath != "" {
		logDir := filepath.Dir(logPath)
		err := os.MkdirAll(logDir, 0o755)
		if err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		logFile = f
		out = f
	}

	SetOutput(out)

	return nil
}

// SetOutput redirects the logger to w at debug level.
func SetOutput(w io.Writer) {
	DebugEnabled = true
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		NoColor:    true,
	}
	log = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// Close closes the log file if open.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	log = zerolog.Nop()
}

func Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Errorf logs an error message if debug mode is enabled.
func Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

func Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}
