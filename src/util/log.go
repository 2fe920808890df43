package util

import "go.uber.org/zap"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// -------------------
// ----- Globals -----
// -------------------

// Log is the package-wide sugared logger used by the lowerer and emitter to
// report debug-level progress and recoverable warnings. Compile errors are
// never routed through Log; they are returned as error values (see §2 of
// SPEC_FULL.md) so the CLI can report them regardless of log level.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// ---------------------
// ----- Functions -----
// ---------------------

// InitLog replaces the package logger with a production or development zap
// configuration depending on verbose.
func InitLog(verbose bool) error {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = true
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l.Sugar()
	return nil
}

// SyncLog flushes any buffered log entries. Errors from Sync are ignored:
// they're expected when the logger is writing to a terminal.
func SyncLog() {
	_ = Log.Sync()
}
