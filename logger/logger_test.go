package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevel(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("VOTING_CLIENT_LOG_LEVEL", "debug")
	logger := NewLogger()
	assert.NotNil(logger)
	assert.Equal(zerolog.DebugLevel, zerolog.GlobalLevel())

	t.Setenv("VOTING_CLIENT_LOG_LEVEL", "nonsense")
	logger = NewLogger()
	assert.NotNil(logger)
	assert.Equal(zerolog.InfoLevel, zerolog.GlobalLevel())
}
