package logging

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	once   sync.Once
)

// Get returns the process logger. Debug output is on unless NO_DEBUG is set,
// LEOVNF_LOG_LEVEL overrides both.
func Get() zerolog.Logger {
	once.Do(func() {
		logLevel := zerolog.DebugLevel
		if os.Getenv("NO_DEBUG") != "" {
			logLevel = zerolog.InfoLevel
		}
		if lvl, err := zerolog.ParseLevel(os.Getenv("LEOVNF_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
			logLevel = lvl
		}

		console := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}

		logger = zerolog.New(console).Level(logLevel).With().Timestamp().Caller().Logger()
	})

	return logger
}

// ForPass returns a logger tagged with a planning pass id and the network service it serves.
func ForPass(passId string, nsName string) zerolog.Logger {
	l := Get()
	return l.With().Str("pass", passId).Str("ns", nsName).Logger()
}
