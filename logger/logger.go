package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. The level comes from
// VOTING_CLIENT_LOG_LEVEL (info when unset or unparsable); output is a
// console writer unless VOTING_CLIENT_LOG_FORMAT_JSON is set, in which case
// raw JSON goes to stdout.
func NewLogger() *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.TrimSpace(os.Getenv("VOTING_CLIENT_LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if strings.TrimSpace(os.Getenv("VOTING_CLIENT_LOG_FORMAT_JSON")) != "" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	}
	return &logger
}
