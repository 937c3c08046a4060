package scenario

import (
	"bytes"
	"fmt"

	"github.com/roach88/ripple/internal/canon"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Index    int    // Position in the document's assertion list
	Type     string // Assertion type for categorization
	Store    string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion[%d] %s on %s: expected %s, got %s",
		e.Index, e.Type, e.Store, e.Expected, e.Actual)
}

// evaluate checks every assertion and returns the failures. It runs on
// the loop after the last step.
func evaluate(g *graph, rec *recorder, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := check(g, rec, a); err != nil {
			err.Index = i
			err.Type = a.Type
			err.Store = a.Store
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func check(g *graph, rec *recorder, a Assertion) *AssertionError {
	switch a.Type {
	case AssertEventCount:
		if n := rec.stepEvents(a.Store, 0); n != a.Count {
			return &AssertionError{
				Expected: fmt.Sprintf("%d deltas", a.Count),
				Actual:   fmt.Sprintf("%d deltas", n),
			}
		}
		return nil
	case AssertNoEvent:
		if n := rec.stepEvents(a.Store, a.Step); n != 0 {
			return &AssertionError{
				Expected: fmt.Sprintf("no delta during step %d", a.Step),
				Actual:   fmt.Sprintf("%d deltas", n),
			}
		}
		return nil
	}

	n, ok := g.nodes[a.Store]
	if !ok {
		return &AssertionError{Expected: "a live store", Actual: "destroyed store"}
	}

	var actual any
	switch a.Type {
	case AssertValue:
		actual = n.value.Get()
	case AssertKeys:
		expected := make([]any, 0)
		if list, ok := a.Expect.([]any); ok {
			for _, k := range list {
				expected = append(expected, render(k))
			}
		}
		return compare(expected, stringsToAny(n.keys()))
	case AssertItems, AssertCounts:
		actual = n.snapshot()
	}
	return compare(a.Expect, actual)
}

// compare reports a mismatch between the canonical encodings of expected
// and actual, so 3 and 3.0 are equal and map order is irrelevant.
func compare(expected, actual any) *AssertionError {
	want, err := canon.Marshal(expected)
	if err != nil {
		return &AssertionError{Expected: fmt.Sprintf("%v", expected), Actual: fmt.Sprintf("unencodable expectation: %v", err)}
	}
	got, err := canon.Marshal(actual)
	if err != nil {
		return &AssertionError{Expected: string(want), Actual: fmt.Sprintf("unencodable value: %v", err)}
	}
	if !bytes.Equal(want, got) {
		return &AssertionError{Expected: string(want), Actual: string(got)}
	}
	return nil
}
