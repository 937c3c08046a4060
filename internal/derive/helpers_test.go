package derive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ripple/internal/store"
	"github.com/roach88/ripple/internal/testutil"
)

type Item = testutil.Item

var (
	Items  = testutil.Items
	IDs    = testutil.IDs
	Values = testutil.Values
)

func newSet(t *testing.T, items ...Item) *store.Collection[string, Item] {
	t.Helper()
	c, err := store.NewSet(testutil.ItemKey, items, store.WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	return c
}

func newArray(t *testing.T, items ...Item) *store.Collection[string, Item] {
	t.Helper()
	c, err := store.NewArray(testutil.ItemKey, testutil.ByValue, items, store.WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	return c
}

func record[T any](c interface {
	OnChange(func(store.CollectionDelta[T]) error) func()
}) *[]store.CollectionDelta[T] {
	var got []store.CollectionDelta[T]
	c.OnChange(func(d store.CollectionDelta[T]) error {
		got = append(got, d)
		return nil
	})
	return &got
}
