package scenario

import "github.com/roach88/ripple/internal/canon"

// Record is one collection item. Records are keyed by one of their fields
// (KeyField by default).
type Record = map[string]any

// DefaultKeyField is the record field used as key when a store does not
// name one.
const DefaultKeyField = "id"

// Digest identifies the document's content: two documents with the same
// stores, steps and assertions share a digest whatever their formatting.
func (d *Document) Digest() (string, error) {
	return canon.Digest(canon.DomainScenario, d)
}

// Store kinds.
const (
	KindValue   = "value"
	KindSet     = "set"
	KindArray   = "array"
	KindFilter  = "filter"
	KindSort    = "sort"
	KindSlice   = "slice"
	KindCount   = "count"
	KindMap     = "map"
	KindReindex = "reindex"
	KindDerived = "derived"
)

// Derived operations.
const (
	OpSum = "sum"
	OpLen = "len"
	OpMin = "min"
	OpMax = "max"
)

// Document is a parsed scenario file.
type Document struct {
	// Name uniquely identifies the scenario; golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Stores declares the graph. Order does not matter; sources may be
	// declared after the stores that use them.
	Stores []StoreSpec `yaml:"stores"`

	// Steps mutate source stores, in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// StoreSpec declares one store.
type StoreSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Key is the key field of a collection (default "id"). For map it is
	// the key field of the mapped records.
	Key string `yaml:"key,omitempty"`

	// Value is the initial value of a value store.
	Value any `yaml:"value,omitempty"`

	// Items are the initial records of a set or array.
	Items []Record `yaml:"items,omitempty"`

	// OrderBy lists the sort fields of an array or sort store. A leading
	// "-" sorts that field descending.
	OrderBy []string `yaml:"order_by,omitempty"`

	// Source is the upstream collection of a combinator.
	Source string `yaml:"source,omitempty"`

	// Sources are the upstream stores of a derived store.
	Sources []string `yaml:"sources,omitempty"`

	// Where is the predicate of a filter.
	Where *Predicate `yaml:"where,omitempty"`

	// Param names a value store whose value a filter compares against
	// instead of Where.Value.
	Param string `yaml:"param,omitempty"`

	// Narrowing marks a string filter param as only ever growing more
	// specific, so a param change re-tests only the included records.
	Narrowing bool `yaml:"narrowing,omitempty"`

	// Range is the window of a slice: either a literal [start, end] or the
	// name of a value store holding one.
	Range any `yaml:"range,omitempty"`

	// Field is the counted field of a count, the bucket field of a
	// reindex, and the aggregated field of a derived store.
	Field string `yaml:"field,omitempty"`

	// Fields projects records for a map: output field -> source field.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Op is the aggregation of a derived store.
	Op string `yaml:"op,omitempty"`
}

// Predicate tests one record field.
type Predicate struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value,omitempty"`
}

// Predicate operators.
const (
	PredEq       = "eq"
	PredNe       = "ne"
	PredGt       = "gt"
	PredGte      = "gte"
	PredLt       = "lt"
	PredLte      = "lte"
	PredContains = "contains"
)

// Step is one mutation. Exactly one of Set, Patch and Destroy is given.
type Step struct {
	// Set names a value store to assign Value to.
	Set   string `yaml:"set,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Patch names a set or array collection to patch.
	Patch   string   `yaml:"patch,omitempty"`
	Added   []Record `yaml:"added,omitempty"`
	Updated []Record `yaml:"updated,omitempty"`
	Removed []Record `yaml:"removed,omitempty"`

	// Destroy names a store to destroy, detaching it from its sources.
	Destroy string `yaml:"destroy,omitempty"`

	// TS stamps the update explicitly instead of using the clock.
	TS *int64 `yaml:"ts,omitempty"`

	// ExpectError is the error code the step must fail with, such as
	// OUT_OF_ORDER_TIMESTAMP or DUPLICATE_KEY.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the final state or the recorded deltas.
type Assertion struct {
	// Type is one of value, keys, items, counts, event_count, no_event.
	Type  string `yaml:"type"`
	Store string `yaml:"store"`

	// Expect is the expected value (value), key list (keys), record list
	// (items) or element counts (counts).
	Expect any `yaml:"expect,omitempty"`

	// Count is the expected number of deltas emitted during the steps
	// (event_count).
	Count int `yaml:"count,omitempty"`

	// Step is the 1-based step during which Store must not emit (no_event).
	Step int `yaml:"step,omitempty"`
}

// Assertion types.
const (
	AssertValue      = "value"
	AssertKeys       = "keys"
	AssertItems      = "items"
	AssertCounts     = "counts"
	AssertEventCount = "event_count"
	AssertNoEvent    = "no_event"
)

// TraceEvent is one delta emitted by a store.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Step  int    `json:"step"` // 0 while building, then 1-based step index
	Store string `json:"store"`
	Kind  string `json:"kind"` // value, collection or counter
	TS    int64  `json:"ts"`
	Delta any    `json:"delta"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every delta in emission order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed step or assertion.
	Errors []string `json:"errors,omitempty"`

	// State is the final content of every live store.
	State map[string]any `json:"state"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
