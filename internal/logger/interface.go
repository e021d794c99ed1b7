package logger

// ComponentLogger is what every horloge package asks for rather than
// reaching into the global logger directly; it tags every entry with
// the owning component so a mixed-goroutine log stream stays readable.
type ComponentLogger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
}

// NewComponentLogger returns a ComponentLogger that forwards to the
// global logger with "component" prepended to every call's fields.
func NewComponentLogger(component string) ComponentLogger {
	return &componentLogger{component: component}
}

type componentLogger struct {
	component string
}

func (cl *componentLogger) with(fields []Field) []Field {
	return append([]Field{String("component", cl.component)}, fields...)
}

func (cl *componentLogger) Debug(msg string, fields ...Field) { Debug(msg, cl.with(fields)...) }
func (cl *componentLogger) Info(msg string, fields ...Field)  { Info(msg, cl.with(fields)...) }
func (cl *componentLogger) Warn(msg string, fields ...Field)  { Warn(msg, cl.with(fields)...) }
func (cl *componentLogger) Error(msg string, fields ...Field) { Error(msg, cl.with(fields)...) }
func (cl *componentLogger) Fatal(msg string, fields ...Field) { Fatal(msg, cl.with(fields)...) }
