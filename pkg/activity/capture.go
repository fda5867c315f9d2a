package activity

import (
	"context"
	"sync"
)

// CaptureHook collects the settings lifecycle events a manager emits so tests
// can assert on verbs, channels, and metadata. Err, when set, is returned from
// every Notify to exercise failure handling.
type CaptureHook struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

// Notify normalizes and records the event, then returns the configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}
