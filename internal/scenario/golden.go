package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ripple/internal/canon"
)

// Snapshot returns the canonical JSON form of a result: the scenario name,
// every recorded delta and the final state. Two runs of the same document
// produce identical snapshots.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		trace[i] = map[string]any{
			"seq":   ev.Seq,
			"step":  ev.Step,
			"store": ev.Store,
			"kind":  ev.Kind,
			"ts":    ev.TS,
			"delta": ev.Delta,
		}
	}
	return canon.Marshal(map[string]any{
		"scenario": name,
		"trace":    trace,
		"state":    result.State,
	})
}

// AssertGolden compares the snapshot of result against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
