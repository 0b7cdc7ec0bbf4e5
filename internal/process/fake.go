package process

import (
	"context"
	"sync"
)

// Fake is a Runner for tests. Handler decides the outcome of Run and
// Stream; StartErr is returned from StartDetached. Calls are recorded.
type Fake struct {
	Handler  func(spec Spec) (Output, error)
	Lines    []string
	StartErr error

	mu      sync.Mutex
	calls   []Spec
	started []Spec
}

func (f *Fake) Run(_ context.Context, spec Spec) (Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	f.mu.Unlock()
	if f.Handler == nil {
		return Output{}, nil
	}
	return f.Handler(spec)
}

func (f *Fake) Stream(ctx context.Context, spec Spec, onLine func(string)) (Output, error) {
	if onLine != nil {
		for _, l := range f.Lines {
			onLine(l)
		}
	}
	return f.Run(ctx, spec)
}

func (f *Fake) StartDetached(spec Spec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, spec)
	return f.StartErr
}

// Calls returns the specs passed to Run and Stream.
func (f *Fake) Calls() []Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Spec(nil), f.calls...)
}

// Started returns the specs passed to StartDetached.
func (f *Fake) Started() []Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Spec(nil), f.started...)
}
