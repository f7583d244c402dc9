package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid events into a single callback invocation.
// Only the last event within the configured interval triggers the callback.
type Debouncer struct {
	interval time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
	timer    *time.Timer
	callback func(path string)
	lastPath string
	inflight sync.WaitGroup
}

// NewDebouncer creates a debouncer that waits for interval of quiet before
// firing callback with the path of the last event. A nil logger uses
// slog.Default.
func NewDebouncer(interval time.Duration, logger *slog.Logger, callback func(path string)) *Debouncer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Debouncer{
		interval: interval,
		logger:   logger,
		callback: callback,
	}
}

// Trigger records an event for the given path. If no further events arrive
// within the debounce interval, the callback fires with the last path seen.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastPath = path

	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}

	d.inflight.Add(1)
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	defer d.inflight.Done()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("debouncer callback panicked", slog.Any("error", r))
		}
	}()

	d.mu.Lock()
	p := d.lastPath
	d.mu.Unlock()

	d.callback(p)
}

// Stop cancels any pending debounced callback and waits for a running one
// to return.
func (d *Debouncer) Stop() {
	d.mu.Lock()

	if d.timer != nil {
		if d.timer.Stop() {
			d.inflight.Done()
		}

		d.timer = nil
	}

	d.mu.Unlock()

	d.inflight.Wait()
}
