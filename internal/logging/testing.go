// pattern: Imperative Shell

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestLogManager is a LoggerProvider for tests. It logs at DEBUG into a
// channel only, so tests can assert on what was written.
type TestLogManager struct {
	registry
	feed *entryFeed
}

// NewTestLogManager creates a TestLogManager buffering up to bufferSize entries.
func NewTestLogManager(bufferSize int) *TestLogManager {
	feed := newEntryFeed(bufferSize)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(feed),
		zapcore.DebugLevel,
	)
	return &TestLogManager{
		registry: newRegistry(zap.New(core), zapcore.DebugLevel),
		feed:     feed,
	}
}

// Channel returns the entries written so far.
func (m *TestLogManager) Channel() <-chan LogEntry {
	return m.feed.Entries()
}

// Drain returns every entry currently buffered without blocking.
func (m *TestLogManager) Drain() []LogEntry {
	var out []LogEntry
	for {
		select {
		case e, ok := <-m.feed.Entries():
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

// Close closes the underlying channel.
func (m *TestLogManager) Close() error {
	return m.feed.Close()
}
