package visibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PreservesOrder(t *testing.T) {
	reg := NewRegistry(&Funcs{ID: "c"}, &Funcs{ID: "a"})
	require.NoError(t, reg.Register(&Funcs{ID: "b"}))

	assert.Equal(t, []string{"c", "a", "b"}, reg.Names())
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg := NewRegistry(&Funcs{ID: "a"})

	err := reg.Register(&Funcs{ID: "a"})
	require.ErrorIs(t, err, ErrDuplicateFilter)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RejectsNil(t *testing.T) {
	reg := NewRegistry()
	require.ErrorIs(t, reg.Register(nil), ErrNilFilter)
}

func TestNewRegistry_PanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(&Funcs{ID: "a"}, &Funcs{ID: "a"})
	})
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry(&Funcs{ID: "a"}, &Funcs{ID: "b"}, &Funcs{ID: "c"})

	var removed []string
	reg.OnUnregister(func(name string) { removed = append(removed, name) })

	assert.True(t, reg.Unregister("b"))
	assert.False(t, reg.Unregister("missing"))
	assert.Equal(t, []string{"a", "c"}, reg.Names())
	assert.Equal(t, []string{"b"}, removed)
}

func TestRegistry_SnapshotUnaffectedByLaterChanges(t *testing.T) {
	reg := NewRegistry(&Funcs{ID: "a"})
	snap := reg.Snapshot()

	require.NoError(t, reg.Register(&Funcs{ID: "b"}))
	reg.Unregister("a")

	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].Name())
	assert.Equal(t, []string{"b"}, reg.Names())
}

func TestFilters_Snapshot(t *testing.T) {
	fs := Filters{&Funcs{ID: "x"}}
	assert.Len(t, fs.Snapshot(), 1)
	assert.Empty(t, Filters(nil).Snapshot())
}

func TestFuncs_NilFuncsApprove(t *testing.T) {
	f := &Funcs{ID: "noop"}

	ok, err := f.FilterType(nil, testItem{id: "a"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Filter(nil, testItem{id: "a"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBase_Approves(t *testing.T) {
	var b Base

	ok, err := b.FilterType(nil, testItem{id: "a"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Filter(nil, testItem{id: "a"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistry_Replace(t *testing.T) {
	reg := NewRegistry(&Funcs{ID: "a"}, &Funcs{ID: "b"}, &Funcs{ID: "c"})

	var removed []string
	reg.OnUnregister(func(name string) { removed = append(removed, name) })

	require.NoError(t, reg.Replace([]Filter{&Funcs{ID: "c"}, &Funcs{ID: "d"}, &Funcs{ID: "a"}}))
	assert.Equal(t, []string{"c", "d", "a"}, reg.Names())
	assert.Equal(t, []string{"b"}, removed)
}

func TestRegistry_ReplaceRejectsDuplicatesAtomically(t *testing.T) {
	reg := NewRegistry(&Funcs{ID: "a"}, &Funcs{ID: "b"})

	var removed []string
	reg.OnUnregister(func(name string) { removed = append(removed, name) })

	err := reg.Replace([]Filter{&Funcs{ID: "x"}, &Funcs{ID: "x"}})
	require.ErrorIs(t, err, ErrDuplicateFilter)
	require.ErrorIs(t, reg.Replace([]Filter{&Funcs{ID: "x"}, nil}), ErrNilFilter)

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.Empty(t, removed)
}

func TestRegistry_ReplaceKeepsLedgerEntries(t *testing.T) {
	ledger := NewLedger(WithClock(newFakeClock()), WithInterval(time.Hour))

	stays := &Funcs{ID: "stays"}
	goes := &Funcs{ID: "goes"}

	reg := NewRegistry(stays, goes)
	ledger.Track(reg)

	assert.Equal(t, LevelHigh, ledger.SeverityFor(stays))
	assert.Equal(t, LevelHigh, ledger.SeverityFor(goes))

	require.NoError(t, reg.Replace([]Filter{&Funcs{ID: "stays"}}))

	assert.Equal(t, LevelLow, ledger.SeverityFor(&Funcs{ID: "stays"}))
	assert.Equal(t, LevelHigh, ledger.SeverityFor(&Funcs{ID: "goes"}))
}
