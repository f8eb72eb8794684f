package describes

import (
	"time"

	"github.com/rs/zerolog/log"
)

// TestLogger receives test events from a Tree run.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestSkipped(id TestID, reason string)
	TestFinished(id TestID, failed bool, d time.Duration)
}

type nullTestLogger struct{}

func (nullTestLogger) TestStarted(TestID)                       {}
func (nullTestLogger) TestError(TestID, error)                  {}
func (nullTestLogger) TestSkipped(TestID, string)               {}
func (nullTestLogger) TestFinished(TestID, bool, time.Duration) {}

// LogTestLogger writes test events to the global zerolog logger.
type LogTestLogger struct{}

func (LogTestLogger) TestStarted(id TestID) {
	log.Debug().Str("test", id.String()).Msg("test started")
}

func (LogTestLogger) TestError(id TestID, err error) {
	log.Error().Err(err).Str("test", id.String()).Msg("test error")
}

func (LogTestLogger) TestSkipped(id TestID, reason string) {
	log.Info().Str("test", id.String()).Str("reason", reason).Msg("test skipped")
}

func (LogTestLogger) TestFinished(id TestID, failed bool, d time.Duration) {
	ev := log.Info()
	if failed {
		ev = log.Warn()
	}
	ev.Str("test", id.String()).Bool("failed", failed).Dur("duration", d).Msg("test finished")
}
