package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ripple/internal/store"
)

func itemGroup(i Item) string { return i.Group }

func bucketIDs(c *store.Collection[string, Bucket[string, Item]]) map[string][]string {
	out := make(map[string][]string)
	for _, b := range c.Get() {
		out[b.Index] = IDs(b.Items)
	}
	return out
}

func TestReindex_Initial(t *testing.T) {
	src := newSet(t,
		Item{ID: "a", Group: "x"},
		Item{ID: "b", Group: "y"},
		Item{ID: "c", Group: "x"},
	)
	r, err := Reindex(src, itemGroup)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"x": {"a", "c"}, "y": {"b"}}, bucketIDs(r))
}

func TestReindex_BucketLifecycle(t *testing.T) {
	src := newSet(t, Item{ID: "a", Group: "x"}, Item{ID: "b", Group: "y"})
	r, err := Reindex(src, itemGroup)
	require.NoError(t, err)
	deltas := record[Bucket[string, Item]](r)

	// b moves from y to a new bucket z; y becomes empty.
	require.NoError(t, src.Set(store.Patch[Item]{Updated: []Item{{ID: "b", Group: "z"}}}))
	require.Len(t, *deltas, 1)
	d := (*deltas)[0]
	require.Len(t, d.Added, 1)
	assert.Equal(t, "z", d.Added[0].Index)
	require.Len(t, d.Removed, 1)
	assert.Equal(t, "y", d.Removed[0].Index)
	assert.Equal(t, []string{"b"}, IDs(d.Removed[0].Items))
	assert.Empty(t, d.Updated)

	require.NoError(t, src.Set(store.Patch[Item]{Added: []Item{{ID: "c", Group: "x"}}}))
	require.Len(t, *deltas, 2)
	d = (*deltas)[1]
	require.Len(t, d.Updated, 1)
	assert.Equal(t, "x", d.Updated[0].Index)
	assert.Equal(t, []string{"a", "c"}, IDs(d.Updated[0].Items))
	assert.Equal(t, src.TS(), d.TS)

	require.NoError(t, src.Set(store.Patch[Item]{Removed: []Item{{ID: "a"}}}))
	assert.Equal(t, map[string][]string{"x": {"c"}, "z": {"b"}}, bucketIDs(r))
}

func TestReindex_UpdateWithinBucketKeepsPosition(t *testing.T) {
	src := newSet(t, Item{ID: "a", Group: "x"}, Item{ID: "b", Group: "x"})
	r, err := Reindex(src, itemGroup)
	require.NoError(t, err)

	require.NoError(t, src.Set(store.Patch[Item]{Updated: []Item{{ID: "a", Group: "x", Value: 7}}}))
	b, ok := r.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, IDs(b.Items))
	assert.Equal(t, 7, b.Items[0].Value)
}

func TestReindex_UpdateThenRemoveSameKey(t *testing.T) {
	src := newSet(t, Item{ID: "a", Group: "g"}, Item{ID: "b", Group: "h"})
	r, err := Reindex(src, itemGroup)
	require.NoError(t, err)
	deltas := record[Bucket[string, Item]](r)

	require.NoError(t, src.Set(store.Patch[Item]{
		Updated: []Item{{ID: "a", Group: "g", Value: 1}},
		Removed: []Item{{ID: "a"}},
	}))
	require.Len(t, *deltas, 1)
	d := (*deltas)[0]
	require.Len(t, d.Removed, 1)
	assert.Equal(t, "g", d.Removed[0].Index)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Updated)
	assert.Equal(t, map[string][]string{"h": {"b"}}, bucketIDs(r))
}

func TestReindex_AddThenRemoveSameKey(t *testing.T) {
	src := newSet(t, Item{ID: "a", Group: "g"})
	r, err := Reindex(src, itemGroup)
	require.NoError(t, err)
	deltas := record[Bucket[string, Item]](r)

	require.NoError(t, src.Set(store.Patch[Item]{
		Added:   []Item{{ID: "n", Group: "k"}},
		Removed: []Item{{ID: "n"}},
	}))
	assert.Empty(t, *deltas)
	assert.Equal(t, map[string][]string{"g": {"a"}}, bucketIDs(r))
}

func TestReindex_DestroyDetaches(t *testing.T) {
	src := newSet(t, Item{ID: "a", Group: "g"})
	r, err := Reindex(src, itemGroup)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Listeners())

	r.Destroy()
	assert.Equal(t, 0, src.Listeners())
}
