package logger

import "sync"

var (
	globalLogger *Logger
	once         sync.Once
)

// Init constructs the process-wide logger exactly once. Subsequent
// calls are no-ops, matching the once-per-process contract every other
// component in this codebase relies on (see internal/sharedobject).
func Init(cfg *Config) error {
	var err error
	once.Do(func() {
		globalLogger, err = New(cfg)
	})
	return err
}

// GetGlobal returns the process-wide logger, or nil if Init was never
// called (callers should prefer a ComponentLogger over this).
func GetGlobal() *Logger { return globalLogger }

func Debug(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Debug(msg, fields...)
	}
}

func Info(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Error(msg, fields...)
	}
}

func Fatal(msg string, fields ...Field) {
	if globalLogger != nil {
		globalLogger.Fatal(msg, fields...)
	}
}

// Close flushes and closes the global logger, if initialized.
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}
