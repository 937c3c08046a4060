package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ripple/internal/store"
)

func byValueDesc(a, b Item) int { return b.Value - a.Value }

func TestSort_OrdersSetSource(t *testing.T) {
	src := newSet(t, Items(2, 9, 4)...)
	s, err := Sort(src, byValueDesc)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 4, 2}, Values(s.Get()))
	assert.True(t, s.Ordered())

	deltas := record[Item](s)
	require.NoError(t, src.Set(store.Patch[Item]{
		Added:   []Item{{ID: "x", Value: 5}},
		Updated: []Item{{ID: "i1", Value: 1}},
	}))
	assert.Equal(t, []int{5, 4, 2, 1}, Values(s.Get()))

	require.Len(t, *deltas, 1)
	assert.Equal(t, []string{"x"}, IDs((*deltas)[0].Added))
	assert.Equal(t, []string{"i1"}, IDs((*deltas)[0].Updated))
	assert.Equal(t, src.TS(), (*deltas)[0].TS)
}

func TestSort_SliceOfSortedSet(t *testing.T) {
	src := newSet(t, Items(3, 1, 2)...)
	sorted, err := Sort(src, byValueDesc)
	require.NoError(t, err)
	top, err := Slice(sorted, store.New(Range{0, 2}))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, Values(top.Get()))

	require.NoError(t, src.Set(store.Patch[Item]{Added: []Item{{ID: "x", Value: 10}}}))
	assert.Equal(t, []int{10, 3}, Values(top.Get()))
}

func TestSort_MixedSectionsOnSameKey(t *testing.T) {
	src := newSet(t, Items(2, 9, 4)...)
	s, err := Sort(src, byValueDesc)
	require.NoError(t, err)

	require.NoError(t, src.Set(store.Patch[Item]{
		Added:   []Item{{ID: "n", Value: 7}},
		Updated: []Item{{ID: "i0", Value: 8}},
		Removed: []Item{{ID: "n"}, {ID: "i0"}},
	}))
	assert.Equal(t, []int{9, 4}, Values(s.Get()))
	assert.ElementsMatch(t, IDs(src.Get()), IDs(s.Get()))
}

func TestSort_DestroyDetaches(t *testing.T) {
	src := newSet(t, Items(2, 9)...)
	s, err := Sort(src, byValueDesc)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Listeners())

	s.Destroy()
	assert.Equal(t, 0, src.Listeners())
}
