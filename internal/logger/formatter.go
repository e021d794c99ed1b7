package logger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Formatter renders a LogEntry to its wire/console representation.
type Formatter interface {
	Format(*LogEntry) string
}

// JSONFormatter renders one JSON object per line.
type JSONFormatter struct{}

// TextFormatter renders a human-readable "key=value" line.
type TextFormatter struct{}

// NewFormatter returns the formatter named by format ("json" or
// "text"), defaulting to JSON for anything else.
func NewFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case "text":
		return &TextFormatter{}
	default:
		return &JSONFormatter{}
	}
}

func (f *JSONFormatter) Format(entry *LogEntry) string {
	data := map[string]interface{}{
		"timestamp": entry.Timestamp.Format(time.RFC3339),
		"level":     entry.Level.String(),
		"message":   entry.Message,
	}
	for _, field := range entry.Fields {
		data[field.Key] = field.Value
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%s [%s] %s", entry.Timestamp.Format(time.RFC3339), entry.Level.String(), entry.Message)
	}
	return string(bytes)
}

func (f *TextFormatter) Format(entry *LogEntry) string {
	timestamp := entry.Timestamp.Format("2006-01-02 15:04:05")
	level := fmt.Sprintf("%-5s", entry.Level.String())

	var fields strings.Builder
	for i, field := range entry.Fields {
		if i > 0 {
			fields.WriteString(" ")
		}
		fmt.Fprintf(&fields, "%s=%v", field.Key, field.Value)
	}

	if fields.Len() > 0 {
		return fmt.Sprintf("%s [%s] %s | %s", timestamp, level, entry.Message, fields.String())
	}
	return fmt.Sprintf("%s [%s] %s", timestamp, level, entry.Message)
}
