package testutil

import "strconv"

// Item is the fixture record used across store and combinator tests.
type Item struct {
	ID    string
	Value int
	Tags  []string
	Group string
}

// ItemKey keys an Item by ID.
func ItemKey(i Item) string {
	return i.ID
}

// ByValue orders items ascending by Value.
func ByValue(a, b Item) int {
	return a.Value - b.Value
}

// ItemTags extracts the tags of an item.
func ItemTags(i Item) []string {
	return i.Tags
}

// Items builds items named "i0", "i1", ... with the given values.
func Items(values ...int) []Item {
	out := make([]Item, len(values))
	for i, v := range values {
		out[i] = Item{ID: itemID(i), Value: v}
	}
	return out
}

// IDs returns the IDs of items in order.
func IDs(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// Values returns the values of items in order.
func Values(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Value
	}
	return out
}

func itemID(i int) string {
	return "i" + strconv.Itoa(i)
}
