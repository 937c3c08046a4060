package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSet(t *testing.T, items ...Item) *Collection[string, Item] {
	t.Helper()
	c, err := NewSet(ItemKey, items, WithClock(NewDeterministicClock()), WithName("set"))
	require.NoError(t, err)
	return c
}

func newTestArray(t *testing.T, items ...Item) *Collection[string, Item] {
	t.Helper()
	c, err := NewArray(ItemKey, ByValue, items, WithClock(NewDeterministicClock()), WithName("array"))
	require.NoError(t, err)
	return c
}

func recordDeltas[T any](c interface {
	OnChange(func(CollectionDelta[T]) error) func()
}) *[]CollectionDelta[T] {
	var got []CollectionDelta[T]
	c.OnChange(func(d CollectionDelta[T]) error {
		got = append(got, d)
		return nil
	})
	return &got
}

func TestSet_InitialItems(t *testing.T) {
	c := newTestSet(t, Items(3, 1, 2)...)
	assert.Equal(t, []string{"i0", "i1", "i2"}, IDs(c.Get()))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(0), c.TS())
	assert.False(t, c.Ordered())
}

func TestSet_InitialDuplicateKey(t *testing.T) {
	items := []Item{{ID: "a"}, {ID: "a"}}
	_, err := NewSet(ItemKey, items)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestSet_AddUpdateRemove(t *testing.T) {
	c := newTestSet(t)
	deltas := recordDeltas[Item](c)

	a, b := Item{ID: "a", Value: 1}, Item{ID: "b", Value: 2}
	require.NoError(t, c.Set(Patch[Item]{Added: []Item{a, b}}))
	assert.Equal(t, []string{"a", "b"}, IDs(c.Get()))

	a2 := Item{ID: "a", Value: 10}
	require.NoError(t, c.Set(Patch[Item]{Updated: []Item{a2}}))
	got, ok := c.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 10, got.Value)
	assert.Equal(t, []string{"b", "a"}, IDs(c.Get()), "update is remove then add")

	require.NoError(t, c.Set(Patch[Item]{Removed: []Item{{ID: "b"}}}))
	assert.False(t, c.Has("b"))

	require.Len(t, *deltas, 3)
	assert.Equal(t, []Item{a, b}, (*deltas)[0].Added)
	assert.Equal(t, []Item{a2}, (*deltas)[1].Updated)
	assert.Equal(t, []Item{b}, (*deltas)[2].Removed, "removed reports the indexed item")
	assert.Equal(t, int64(3), (*deltas)[2].TS)
}

func TestSet_DuplicateAddKeepsFirst(t *testing.T) {
	c := newTestSet(t)
	first := Item{ID: "a", Value: 1}
	require.NoError(t, c.Set(Patch[Item]{Added: []Item{first}}))

	err := c.Set(Patch[Item]{Added: []Item{{ID: "a", Value: 2}}})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	got, ok := c.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestSet_DuplicateKeyIsAllOrNothing(t *testing.T) {
	c := newTestSet(t, Item{ID: "a"})
	deltas := recordDeltas[Item](c)
	ts := c.TS()

	err := c.Set(Patch[Item]{
		Added:   []Item{{ID: "b"}, {ID: "a"}},
		Removed: []Item{{ID: "a"}},
	})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	assert.False(t, c.Has("b"), "items before the duplicate are not applied")
	assert.True(t, c.Has("a"))
	assert.Empty(t, *deltas)
	assert.Equal(t, ts, c.TS())
}

func TestSet_DuplicateWithinBatch(t *testing.T) {
	c := newTestSet(t)
	err := c.Set(Patch[Item]{Added: []Item{{ID: "x"}, {ID: "x"}}})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
	assert.Equal(t, 0, c.Len())
}

func TestSet_AbsentKeysSkippedSilently(t *testing.T) {
	c := newTestSet(t, Item{ID: "a"})
	deltas := recordDeltas[Item](c)

	err := c.Set(Patch[Item]{
		Updated: []Item{{ID: "ghost"}},
		Removed: []Item{{ID: "phantom"}},
	})
	require.NoError(t, err)
	assert.Empty(t, *deltas, "nothing accepted means no event")
	assert.Equal(t, int64(0), c.TS())
}

func TestSet_PartialAcceptance(t *testing.T) {
	c := newTestSet(t, Item{ID: "a"})
	deltas := recordDeltas[Item](c)

	require.NoError(t, c.Set(Patch[Item]{
		Updated: []Item{{ID: "a", Value: 5}, {ID: "ghost"}},
	}))
	require.Len(t, *deltas, 1)
	assert.Equal(t, []Item{{ID: "a", Value: 5}}, (*deltas)[0].Updated)
	assert.Empty(t, (*deltas)[0].Added)
}

func TestSet_EmptyPatchIsNoOp(t *testing.T) {
	c := newTestSet(t)
	deltas := recordDeltas[Item](c)
	require.NoError(t, c.SetAt(Patch[Item]{}, 3))
	assert.Empty(t, *deltas)
	assert.Equal(t, int64(0), c.TS())
}

func TestSet_OutOfOrder(t *testing.T) {
	c := newTestSet(t)
	require.NoError(t, c.SetAt(Patch[Item]{Added: []Item{{ID: "a"}}}, 5))

	err := c.SetAt(Patch[Item]{Added: []Item{{ID: "b"}}}, 4)
	require.Error(t, err)
	assert.True(t, IsOutOfOrder(err))
	assert.False(t, c.Has("b"))
}

func TestSet_ManyRemovalsCompact(t *testing.T) {
	c := newTestSet(t, Items(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)...)
	var removed []Item
	for _, it := range c.Get()[:8] {
		removed = append(removed, it)
	}
	require.NoError(t, c.Set(Patch[Item]{Removed: removed}))
	assert.Equal(t, []string{"i8", "i9"}, IDs(c.Get()))

	require.NoError(t, c.Set(Patch[Item]{Added: []Item{{ID: "z"}}}))
	assert.Equal(t, []string{"i8", "i9", "z"}, IDs(c.Get()))
}

func TestSet_Clone(t *testing.T) {
	c := newTestSet(t, Item{ID: "a"})
	c.OnChange(func(CollectionDelta[Item]) error { return nil })

	clone := c.Clone()
	assert.Equal(t, 0, clone.Len())
	assert.Equal(t, 0, clone.Listeners())
	assert.False(t, clone.Ordered())
	assert.Equal(t, "a", clone.KeyOf(Item{ID: "a"}))
}

func TestArray_SortsOnAdd(t *testing.T) {
	c := newTestArray(t)
	items := []Item{{ID: "two", Value: 2}, {ID: "one", Value: 1}}
	require.NoError(t, c.Set(Patch[Item]{Added: items}))
	assert.Equal(t, []int{1, 2}, Values(c.Get()))
	assert.True(t, c.Ordered())
}

func TestArray_InitialItemsSorted(t *testing.T) {
	c := newTestArray(t, Items(5, -3, 9, 0)...)
	assert.Equal(t, []int{-3, 0, 5, 9}, Values(c.Get()))
}

func TestArray_TiesKeepInsertionOrder(t *testing.T) {
	c := newTestArray(t)
	require.NoError(t, c.Set(Patch[Item]{Added: []Item{
		{ID: "a", Value: 1}, {ID: "b", Value: 1}, {ID: "c", Value: 0}, {ID: "d", Value: 1},
	}}))
	assert.Equal(t, []string{"c", "a", "b", "d"}, IDs(c.Get()))
}

func TestArray_UpdateReorders(t *testing.T) {
	c := newTestArray(t, Items(1, 2, 3)...)
	require.NoError(t, c.Set(Patch[Item]{Updated: []Item{{ID: "i0", Value: 10}}}))
	assert.Equal(t, []string{"i1", "i2", "i0"}, IDs(c.Get()))
	assert.Equal(t, 3, c.Len())
}

func TestArray_UpdateSameValueKeepsItem(t *testing.T) {
	c := newTestArray(t, Items(1, 2)...)
	require.NoError(t, c.Set(Patch[Item]{Updated: []Item{{ID: "i1", Value: 2}}}))
	assert.Equal(t, []string{"i0", "i1"}, IDs(c.Get()))
}

func TestArray_BulkRemove(t *testing.T) {
	c := newTestArray(t, Items(5, 4, 3, 2, 1)...)
	require.NoError(t, c.Set(Patch[Item]{
		Added:   []Item{{ID: "x", Value: 0}},
		Removed: []Item{{ID: "i0"}, {ID: "i2"}, {ID: "i4"}},
	}))
	assert.Equal(t, []int{0, 2, 4}, Values(c.Get()))
	assert.Equal(t, 3, c.Len())
}

func TestArray_Compare(t *testing.T) {
	c := newTestArray(t)
	assert.Negative(t, c.Compare(Item{Value: 1}, Item{Value: 2}))

	s := newTestSet(t)
	assert.Panics(t, func() { s.Compare(Item{}, Item{}) })
}

func TestArray_CloneKeepsComparator(t *testing.T) {
	c := newTestArray(t, Items(1)...)
	clone := c.Clone()
	require.True(t, clone.Ordered())

	require.NoError(t, clone.Set(Patch[Item]{Added: Items(3, 2, 1)}))
	assert.Equal(t, []int{1, 2, 3}, Values(clone.Get()))
}

func TestCollection_SetAsync(t *testing.T) {
	c := newTestSet(t, Item{ID: "a"})
	err := c.SetAsync(context.Background(), func(ctx context.Context, current []Item) (Patch[Item], error) {
		assert.Equal(t, []string{"a"}, IDs(current))
		return Patch[Item]{Added: []Item{{ID: "b"}}}, nil
	})
	require.NoError(t, err)
	assert.True(t, c.Has("b"))
}

func TestCollection_SetAsyncStale(t *testing.T) {
	c := newTestSet(t)
	err := c.SetAsync(context.Background(), func(ctx context.Context, current []Item) (Patch[Item], error) {
		require.NoError(t, c.Set(Patch[Item]{Added: []Item{{ID: "newer"}}}))
		return Patch[Item]{Added: []Item{{ID: "stale"}}}, nil
	})
	require.Error(t, err)
	assert.True(t, IsOutOfOrder(err))
	assert.False(t, c.Has("stale"))
}

func TestCollection_LastDelta(t *testing.T) {
	c := newTestSet(t)
	_, ok := c.LastDelta()
	assert.False(t, ok)

	require.NoError(t, c.SetAt(Patch[Item]{Added: []Item{{ID: "a"}}}, 2))
	d, ok := c.LastDelta()
	require.True(t, ok)
	assert.Equal(t, int64(2), d.TS)
	assert.Len(t, d.Added, 1)
}
