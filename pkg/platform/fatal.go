package platform

import (
	"os"

	"go.uber.org/zap"
)

// ExitFunc is called by FatalExit after logging; it is a package
// variable rather than a hard os.Exit(1) call so tests can substitute a
// non-terminating stand-in, the same pattern the teacher uses for its
// injectable newLogger/newIMDS/newController factories.
var ExitFunc = func() { os.Exit(1) }

// FatalExit logs msg at error level with the given fields and then
// calls ExitFunc. It exists for the small number of conditions the
// original treats as unrecoverable process termination
// (ROBOTICK_FATAL_EXIT) — a corrupt build-time registration, not a
// runtime input the caller could have validated in advance.
func FatalExit(logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
	ExitFunc()
}
