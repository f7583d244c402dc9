package visibility

import (
	"log/slog"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/cache"
)

const (
	// DefaultInterval is the default suppression interval between two
	// high-severity reports of the same failing filter.
	DefaultInterval = 60 * time.Minute

	// DefaultLedgerSize caps the number of failing filters remembered.
	// The least recently reported filter is evicted first.
	DefaultLedgerSize = 1024
)

// Severities returned by Ledger.SeverityFor.
const (
	LevelHigh = slog.LevelWarn
	LevelLow  = slog.LevelDebug
)

// Clock reports the current time. Tests substitute a fake.
type Clock = cache.Clock

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Ledger remembers when each failing filter was last reported at
// LevelHigh. Entries expire after the suppression interval and are keyed by
// filter name; entries for unregistered filters are removed with Forget,
// and the LRU cap bounds the ledger when filters come and go without being
// unregistered.
type Ledger struct {
	mu       sync.Mutex
	interval time.Duration
	size     int
	clock    Clock
	entries  *cache.LRUExpireCache
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithInterval sets the suppression interval. Non-positive values are
// ignored.
func WithInterval(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithClock sets the clock used to timestamp reports.
func WithClock(c Clock) LedgerOption {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithSize sets the maximum number of remembered filters. Non-positive
// values are ignored.
func WithSize(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.size = n
		}
	}
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		interval: DefaultInterval,
		size:     DefaultLedgerSize,
		clock:    realClock{},
	}

	for _, opt := range opts {
		opt(l)
	}

	l.entries = cache.NewLRUExpireCacheWithClock(l.size, l.clock)

	return l
}

// Interval returns the suppression interval.
func (l *Ledger) Interval() time.Duration {
	return l.interval
}

// SeverityFor returns the level at which a failure of f should be logged.
// It returns LevelHigh for the first failure of f and for the first failure
// after the interval has elapsed since the last LevelHigh, recording the
// current time; otherwise it returns LevelLow.
func (l *Ledger) SeverityFor(f Filter) slog.Level {
	key := f.Name()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.entries.Get(key); seen {
		return LevelLow
	}

	l.entries.Add(key, l.clock.Now(), l.interval)

	return LevelHigh
}

// Forget drops the entry for the named filter.
func (l *Ledger) Forget(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries.Remove(name)
}

// Track makes l forget filters as they are unregistered from r.
func (l *Ledger) Track(r *Registry) {
	r.OnUnregister(l.Forget)
}
