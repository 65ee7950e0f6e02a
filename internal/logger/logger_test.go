package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/wod-ingestor/internal/logger"
)

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		log, err := logger.NewLogger(debug)
		require.NoError(t, err)
		require.NotNil(t, log)

		// must not panic
		log.Debug("debug message", logger.String("k", "v"))
		log.Info("info message", logger.Int("n", 1))
		log.Warn("warn message", logger.Bool("flag", true))
		log.Error("error message", logger.Error(errors.New("boom")))
	}
}

func TestLoggerWith(t *testing.T) {
	log := logger.NewNopLogger()

	child := log.With(logger.String("component", "test"))
	require.NotNil(t, child)
	assert.NotNil(t, child.With(logger.Int("depth", 2)))

	child.Info("message with inherited fields")
	assert.NoError(t, child.Sync())
}
