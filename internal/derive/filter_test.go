package derive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ripple/internal/store"
	"github.com/roach88/ripple/internal/testutil"
)

func positive(i Item) bool { return i.Value > 0 }

func TestFilter_Initial(t *testing.T) {
	src := newArray(t, Items(1, 10, -10, -20, 30)...)
	f, err := Filter(src, positive)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 10, 30}, Values(f.Get()))
	assert.True(t, f.Ordered())
}

func TestFilter_Incremental(t *testing.T) {
	src := newSet(t, Items(1, -1)...)
	f, err := Filter(src, positive)
	require.NoError(t, err)
	deltas := record[Item](f)

	require.NoError(t, src.Set(store.Patch[Item]{
		Added:   []Item{{ID: "a", Value: 5}, {ID: "b", Value: -5}},
		Updated: []Item{{ID: "i0", Value: -1}, {ID: "i1", Value: 2}},
	}))
	require.Len(t, *deltas, 1)
	d := (*deltas)[0]
	assert.Equal(t, []string{"a", "i1"}, IDs(d.Added))
	assert.Equal(t, []string{"i0"}, IDs(d.Removed))
	assert.Empty(t, d.Updated)
	assert.Equal(t, src.TS(), d.TS)

	require.NoError(t, src.Set(store.Patch[Item]{Updated: []Item{{ID: "a", Value: 6}}}))
	require.Len(t, *deltas, 2)
	assert.Equal(t, []int{6}, Values((*deltas)[1].Updated))

	require.NoError(t, src.Set(store.Patch[Item]{Removed: []Item{{ID: "a"}, {ID: "b"}}}))
	require.Len(t, *deltas, 3)
	assert.Equal(t, []string{"a"}, IDs((*deltas)[2].Removed))
	assert.Equal(t, []string{"i1"}, IDs(f.Get()))
}

func TestFilter_ExcludedChangesDoNotEmit(t *testing.T) {
	src := newSet(t, Items(1)...)
	f, err := Filter(src, positive)
	require.NoError(t, err)
	deltas := record[Item](f)

	require.NoError(t, src.Set(store.Patch[Item]{Added: []Item{{ID: "n", Value: -3}}}))
	require.NoError(t, src.Set(store.Patch[Item]{Removed: []Item{{ID: "n"}}}))
	assert.Empty(t, *deltas)
}

func byID(item Item, q string) bool { return strings.Contains(item.ID, q) }

func byIDParam(item Item, values []any) bool { return byID(item, values[0].(string)) }

func TestFilterBy_ParamChangeRescans(t *testing.T) {
	clk := testutil.NewDeterministicClock()
	src, err := store.NewSet(testutil.ItemKey, []Item{{ID: "apple"}, {ID: "apricot"}, {ID: "banana"}}, store.WithClock(clk))
	require.NoError(t, err)
	q := store.New("ap", store.WithClock(clk))

	f, err := FilterBy(src, []Param{ParamOf(q, nil)}, byIDParam)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "apricot"}, IDs(f.Get()))

	require.NoError(t, q.Set("an"))
	assert.Equal(t, []string{"banana"}, IDs(f.Get()))
	assert.Equal(t, q.TS(), f.TS())

	require.NoError(t, src.Set(store.Patch[Item]{Added: []Item{{ID: "mango"}}}))
	assert.ElementsMatch(t, []string{"banana", "mango"}, IDs(f.Get()))
}

func TestFilterBy_NarrowingRetestsIncludedOnly(t *testing.T) {
	clk := testutil.NewDeterministicClock()
	src, err := store.NewSet(testutil.ItemKey, []Item{{ID: "apple"}, {ID: "apricot"}, {ID: "banana"}}, store.WithClock(clk))
	require.NoError(t, err)
	q := store.New("a", store.WithClock(clk))

	var tested []string
	pred := func(item Item, values []any) bool {
		tested = append(tested, item.ID)
		return byIDParam(item, values)
	}
	f, err := FilterBy(src, []Param{ParamOf(q, Narrowing)}, pred)
	require.NoError(t, err)
	assert.Len(t, f.Get(), 3)

	tested = nil
	require.NoError(t, q.Set("ap"))
	assert.Equal(t, []string{"apple", "apricot"}, IDs(f.Get()))
	assert.Len(t, tested, 3)

	tested = nil
	require.NoError(t, q.Set("apr"))
	assert.Equal(t, []string{"apricot"}, IDs(f.Get()))
	assert.Equal(t, []string{"apple", "apricot"}, tested)

	// Widening falls back to a full rescan.
	require.NoError(t, q.Set("b"))
	assert.Equal(t, []string{"banana"}, IDs(f.Get()))
}

func TestNarrowing(t *testing.T) {
	assert.True(t, Narrowing(store.Delta[string]{OldValue: "ab", NewValue: "abc"}))
	assert.True(t, Narrowing(store.Delta[string]{OldValue: "", NewValue: "x"}))
	assert.False(t, Narrowing(store.Delta[string]{OldValue: "abc", NewValue: "ab"}))
}

func TestFilter_DestroyDetaches(t *testing.T) {
	src := newSet(t, Items(1)...)
	q := store.New(0)
	f, err := FilterBy(src, []Param{ParamOf(q, nil)}, func(i Item, values []any) bool { return i.Value > values[0].(int) })
	require.NoError(t, err)
	assert.Equal(t, 1, src.Listeners())
	assert.Equal(t, 1, q.Listeners())

	f.Destroy()
	assert.Equal(t, 0, src.Listeners())
	assert.Equal(t, 0, q.Listeners())
}

func TestFilter_AddThenRemoveSameKey(t *testing.T) {
	src := newSet(t)
	f, err := Filter(src, func(Item) bool { return true })
	require.NoError(t, err)
	deltas := record[Item](f)

	require.NoError(t, src.Set(store.Patch[Item]{
		Added:   []Item{{ID: "a", Value: 1}},
		Removed: []Item{{ID: "a"}},
	}))
	assert.Empty(t, f.Get())
	assert.Empty(t, *deltas)
}

func TestFilter_UpdateThenRemoveSameKey(t *testing.T) {
	src := newSet(t, Items(1, 2)...)
	f, err := Filter(src, positive)
	require.NoError(t, err)
	deltas := record[Item](f)

	require.NoError(t, src.Set(store.Patch[Item]{
		Updated: []Item{{ID: "i0", Value: 5}},
		Removed: []Item{{ID: "i0"}},
	}))
	require.Len(t, *deltas, 1)
	assert.Equal(t, []string{"i0"}, IDs((*deltas)[0].Removed))
	assert.Empty(t, (*deltas)[0].Updated)
	assert.Equal(t, []string{"i1"}, IDs(f.Get()))
}

func TestFilterBy_SeveralParams(t *testing.T) {
	clk := testutil.NewDeterministicClock()
	src, err := store.NewSet(testutil.ItemKey, []Item{
		{ID: "apple", Value: 1},
		{ID: "apricot", Value: 5},
		{ID: "banana", Value: 9},
	}, store.WithClock(clk))
	require.NoError(t, err)
	q := store.New("a", store.WithClock(clk))
	floor := store.New(0, store.WithClock(clk))

	var tested []string
	pred := func(item Item, values []any) bool {
		tested = append(tested, item.ID)
		return byID(item, values[0].(string)) && item.Value > values[1].(int)
	}
	f, err := FilterBy(src, []Param{ParamOf(q, Narrowing), ParamOf(floor, nil)}, pred)
	require.NoError(t, err)
	assert.Len(t, f.Get(), 3)
	assert.Equal(t, 1, q.Listeners())
	assert.Equal(t, 1, floor.Listeners())

	tested = nil
	require.NoError(t, floor.Set(3))
	assert.Equal(t, []string{"apricot", "banana"}, IDs(f.Get()))
	assert.Len(t, tested, 3)
	assert.Equal(t, floor.TS(), f.TS())

	// Narrowing the search only retests what is included.
	tested = nil
	require.NoError(t, q.Set("ap"))
	assert.Equal(t, []string{"apricot"}, IDs(f.Get()))
	assert.ElementsMatch(t, []string{"apricot", "banana"}, tested)

	tested = nil
	require.NoError(t, floor.Set(0))
	assert.ElementsMatch(t, []string{"apple", "apricot"}, IDs(f.Get()))
	assert.Len(t, tested, 3)
}
