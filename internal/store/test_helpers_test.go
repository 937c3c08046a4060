package store

import "github.com/roach88/ripple/internal/testutil"

// Short names for the shared fixtures.
type Item = testutil.Item

var (
	Items                 = testutil.Items
	IDs                   = testutil.IDs
	Values                = testutil.Values
	ItemKey               = testutil.ItemKey
	ItemTags              = testutil.ItemTags
	ByValue               = testutil.ByValue
	NewDeterministicClock = testutil.NewDeterministicClock
)
