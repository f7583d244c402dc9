package visibility

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Step(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestLedger_HighThenLow(t *testing.T) {
	l := NewLedger(WithClock(newFakeClock()))
	f := &Funcs{ID: "bad"}

	assert.Equal(t, LevelHigh, l.SeverityFor(f))
	assert.Equal(t, LevelLow, l.SeverityFor(f))
	assert.Equal(t, LevelLow, l.SeverityFor(f))
}

func TestLedger_HighAgainAfterInterval(t *testing.T) {
	clock := newFakeClock()
	l := NewLedger(WithClock(clock), WithInterval(10*time.Minute))
	f := &Funcs{ID: "bad"}

	assert.Equal(t, LevelHigh, l.SeverityFor(f))

	clock.Step(10 * time.Minute)
	assert.Equal(t, LevelLow, l.SeverityFor(f), "interval must be strictly exceeded")

	clock.Step(time.Millisecond)
	assert.Equal(t, LevelHigh, l.SeverityFor(f))
	assert.Equal(t, LevelLow, l.SeverityFor(f))
}

func TestLedger_IntervalMeasuredFromLastHigh(t *testing.T) {
	clock := newFakeClock()
	l := NewLedger(WithClock(clock), WithInterval(time.Hour))
	f := &Funcs{ID: "bad"}

	assert.Equal(t, LevelHigh, l.SeverityFor(f))

	clock.Step(45 * time.Minute)
	assert.Equal(t, LevelLow, l.SeverityFor(f))

	// Low reports do not move the window.
	clock.Step(16 * time.Minute)
	assert.Equal(t, LevelHigh, l.SeverityFor(f))
}

func TestLedger_FiltersTrackedIndependently(t *testing.T) {
	l := NewLedger(WithClock(newFakeClock()))

	assert.Equal(t, LevelHigh, l.SeverityFor(&Funcs{ID: "a"}))
	assert.Equal(t, LevelHigh, l.SeverityFor(&Funcs{ID: "b"}))
	assert.Equal(t, LevelLow, l.SeverityFor(&Funcs{ID: "a"}))
}

func TestLedger_Defaults(t *testing.T) {
	l := NewLedger(WithInterval(0), WithSize(-1), WithClock(nil))
	assert.Equal(t, DefaultInterval, l.Interval())
	assert.Equal(t, DefaultLedgerSize, l.size)
}

func TestLedger_Forget(t *testing.T) {
	l := NewLedger(WithClock(newFakeClock()))
	f := &Funcs{ID: "bad"}

	assert.Equal(t, LevelHigh, l.SeverityFor(f))
	l.Forget("bad")
	assert.Equal(t, LevelHigh, l.SeverityFor(f))
}

func TestLedger_TrackForgetsUnregistered(t *testing.T) {
	f := &Funcs{ID: "bad"}
	reg := NewRegistry(f)
	l := NewLedger(WithClock(newFakeClock()))
	l.Track(reg)

	assert.Equal(t, LevelHigh, l.SeverityFor(f))
	assert.True(t, reg.Unregister("bad"))
	assert.Equal(t, LevelHigh, l.SeverityFor(f))
}

func TestLedger_SizeCapEvictsOldest(t *testing.T) {
	l := NewLedger(WithClock(newFakeClock()), WithSize(2))

	assert.Equal(t, LevelHigh, l.SeverityFor(&Funcs{ID: "a"}))
	assert.Equal(t, LevelHigh, l.SeverityFor(&Funcs{ID: "b"}))
	assert.Equal(t, LevelHigh, l.SeverityFor(&Funcs{ID: "c"}))

	// "a" was evicted to make room for "c".
	assert.Equal(t, LevelHigh, l.SeverityFor(&Funcs{ID: "a"}))
	assert.Equal(t, LevelLow, l.SeverityFor(&Funcs{ID: "c"}))
}

func TestLedger_ConcurrentSingleHigh(t *testing.T) {
	l := NewLedger(WithClock(newFakeClock()))
	f := &Funcs{ID: "bad"}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		high int
	)

	for i := 0; i < 64; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if l.SeverityFor(f) == LevelHigh {
				mu.Lock()
				high++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, high)
}
