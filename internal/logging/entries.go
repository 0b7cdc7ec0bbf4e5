// pattern: Functional Core

package logging

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// LogEntry is a parsed log line.
type LogEntry struct {
	Timestamp time.Time
	Level     string // DEBUG, INFO, WARN, ERROR
	Scope     string // dotted scope, e.g. "project.create"
	Message   string
	Fields    map[string]any
}

// String renders the entry on one line with fields sorted by key.
func (e LogEntry) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s [%s] %s", e.Timestamp.Format("15:04:05"), e.Level, e.Scope, e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Fields[k])
	}
	return sb.String()
}

// IsProblem reports whether the entry is a warning or an error.
func (e LogEntry) IsProblem() bool {
	return e.Level == "WARN" || e.Level == "ERROR"
}

// ParseLevel normalizes a zap level name. Unknown levels become INFO.
func ParseLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error", "dpanic", "panic", "fatal":
		return "ERROR"
	default:
		return "INFO"
	}
}
