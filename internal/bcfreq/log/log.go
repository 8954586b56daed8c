package log

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"bcfreq/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	closer      func() error
)

// Setup installs the bcfreq logger as the slog default. Debug forces the
// debug level and source locations; otherwise level selects it.
func Setup(level string, debug bool) {
	initOnce.Do(func() {
		if debug {
			level = "debug"
		}
		lg := logging.NewLogger(level)
		lg.SetReportCaller(debug)
		closer = lg.Close

		slog.SetDefault(slog.New(lg.Logger))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// Close releases the log file, if any.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
