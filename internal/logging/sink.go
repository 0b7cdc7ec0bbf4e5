// pattern: Imperative Shell

package logging

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"
)

var errFeedClosed = errors.New("log feed is closed")

// zapLine holds the keys zap's JSON encoder writes for every entry.
type zapLine struct {
	Msg    string   `json:"msg"`
	Level  string   `json:"level"`
	Logger string   `json:"logger"`
	TS     *float64 `json:"ts"`
}

// reservedKeys never become LogEntry fields.
var reservedKeys = []string{"msg", "level", "logger", "ts", "caller", "stacktrace"}

// entryFeed is the zap WriteSyncer behind the TUI log panel. Each JSON line
// becomes a LogEntry on a bounded channel; once full, the oldest entry is
// evicted so a slow reader never stalls a clone or an HTTP handler.
type entryFeed struct {
	mu     sync.Mutex
	ch     chan LogEntry
	closed bool
}

func newEntryFeed(capacity int) *entryFeed {
	return &entryFeed{ch: make(chan LogEntry, capacity)}
}

// Write never fails on malformed input; zap would only retry it.
func (f *entryFeed) Write(p []byte) (int, error) {
	entry, ok := decodeLine(p)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errFeedClosed
	}
	if ok {
		f.push(entry)
	}
	return len(p), nil
}

// push requires f.mu.
func (f *entryFeed) push(entry LogEntry) {
	for {
		select {
		case f.ch <- entry:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *entryFeed) Sync() error { return nil }

func (f *entryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.ch)
	return nil
}

func (f *entryFeed) Entries() <-chan LogEntry { return f.ch }

func decodeLine(data []byte) (LogEntry, bool) {
	var head zapLine
	var rest map[string]any
	if json.Unmarshal(data, &head) != nil || json.Unmarshal(data, &rest) != nil {
		return LogEntry{}, false
	}
	for _, k := range reservedKeys {
		delete(rest, k)
	}
	if rest == nil {
		rest = map[string]any{}
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "app",
		Message:   head.Msg,
		Fields:    rest,
	}
	if head.Level != "" {
		entry.Level = ParseLevel(head.Level)
	}
	if head.Logger != "" {
		entry.Scope = head.Logger
	}
	if head.TS != nil {
		sec, frac := math.Modf(*head.TS)
		entry.Timestamp = time.Unix(int64(sec), int64(frac*float64(time.Second)))
	}
	return entry, true
}
