// Package metrics counts store activity and renders it in the Prometheus
// text exposition format.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metric family names.
const (
	DeltasTotal = "ripple_deltas_total"
	LastTS      = "ripple_store_last_ts"
	RunsTotal   = "ripple_scenario_runs_total"
)

type storeKey struct {
	store string
	kind  string
}

// Registry accumulates delta and run counts.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	deltas map[storeKey]float64
	lastTS map[string]int64
	runs   map[string]float64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		deltas: make(map[storeKey]float64),
		lastTS: make(map[string]int64),
		runs:   make(map[string]float64),
	}
}

// ObserveDelta counts one delta emitted by store.
func (r *Registry) ObserveDelta(store, kind string, ts int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas[storeKey{store, kind}]++
	if cur, ok := r.lastTS[store]; !ok || ts > cur {
		r.lastTS[store] = ts
	}
}

// ObserveRun counts a finished scenario run. result is "passed" or "failed".
func (r *Registry) ObserveRun(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[result]++
}

// Deltas returns the number of deltas counted for store across kinds.
func (r *Registry) Deltas(store string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0.0
	for k, n := range r.deltas {
		if k.store == store {
			total += n
		}
	}
	return int(total)
}

// Families returns a snapshot of the registry as metric families, sorted
// by name with metrics sorted by label values.
func (r *Registry) Families() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	deltas := &dto.MetricFamily{
		Name: proto.String(DeltasTotal),
		Help: proto.String("Deltas emitted, by store and delta kind."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	keys := make([]storeKey, 0, len(r.deltas))
	for k := range r.deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].store != keys[j].store {
			return keys[i].store < keys[j].store
		}
		return keys[i].kind < keys[j].kind
	})
	for _, k := range keys {
		deltas.Metric = append(deltas.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{label("kind", k.kind), label("store", k.store)},
			Counter: &dto.Counter{Value: proto.Float64(r.deltas[k])},
		})
	}

	last := &dto.MetricFamily{
		Name: proto.String(LastTS),
		Help: proto.String("Highest timestamp a store emitted a delta at."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, name := range sortedKeys(r.lastTS) {
		last.Metric = append(last.Metric, &dto.Metric{
			Label: []*dto.LabelPair{label("store", name)},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(r.lastTS[name]))},
		})
	}

	runs := &dto.MetricFamily{
		Name: proto.String(RunsTotal),
		Help: proto.String("Scenario runs, by result."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, result := range sortedKeys(r.runs) {
		runs.Metric = append(runs.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{label("result", result)},
			Counter: &dto.Counter{Value: proto.Float64(r.runs[result])},
		})
	}

	var out []*dto.MetricFamily
	for _, mf := range []*dto.MetricFamily{deltas, last, runs} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

// Write renders the registry in the Prometheus text format.
func (r *Registry) Write(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range r.Families() {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
