package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a document that parsed but failed validation.
var ErrInvalid = errors.New("invalid scenario")

// Load reads and validates a scenario file. Files ending in .cue are
// evaluated as CUE; anything else is parsed as YAML (which includes JSON).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if filepath.Ext(path) == ".cue" {
		return ParseCUE(data, path)
	}
	return ParseYAML(data)
}

// ParseYAML parses and validates a YAML scenario. Unknown fields are
// rejected so typos ("assertion:" for "assertions:") fail loudly.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &doc, nil
}

// ParseCUE evaluates a CUE scenario. The value must be concrete; it is
// exported as JSON and then decoded like a YAML document, so both formats
// share one set of field rules.
func ParseCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE value is not concrete: %w", err)
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE: %w", err)
	}
	return ParseYAML(js)
}

// Validate checks that a document is complete and internally consistent.
func Validate(doc *Document) error {
	if doc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(doc.Stores) == 0 {
		return fmt.Errorf("stores list is required and must be non-empty")
	}

	kinds := make(map[string]string, len(doc.Stores))
	for i, s := range doc.Stores {
		if s.Name == "" {
			return fmt.Errorf("stores[%d]: name is required", i)
		}
		if _, dup := kinds[s.Name]; dup {
			return fmt.Errorf("stores[%d]: duplicate store name %q", i, s.Name)
		}
		kinds[s.Name] = s.Kind
	}
	for i, s := range doc.Stores {
		if err := validateStore(s, kinds); err != nil {
			return fmt.Errorf("stores[%d] (%s): %w", i, s.Name, err)
		}
	}

	for i, step := range doc.Steps {
		if err := validateStep(step, kinds); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range doc.Assertions {
		if err := validateAssertion(a, kinds, len(doc.Steps)); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func isCollection(kind string) bool {
	switch kind {
	case KindSet, KindArray, KindFilter, KindSort, KindSlice, KindMap, KindReindex:
		return true
	}
	return false
}

func isValue(kind string) bool {
	return kind == KindValue || kind == KindDerived
}

func validateStore(s StoreSpec, kinds map[string]string) error {
	needSource := func() error {
		if s.Source == "" {
			return fmt.Errorf("source is required for %s", s.Kind)
		}
		kind, ok := kinds[s.Source]
		if !ok {
			return fmt.Errorf("unknown source %q", s.Source)
		}
		if !isCollection(kind) || kind == KindReindex {
			return fmt.Errorf("source %q is a %s, not a record collection", s.Source, kind)
		}
		return nil
	}

	switch s.Kind {
	case KindValue:
		return nil
	case KindSet:
		return nil
	case KindArray:
		if len(s.OrderBy) == 0 {
			return fmt.Errorf("order_by is required for array")
		}
		return nil
	case KindFilter:
		if err := needSource(); err != nil {
			return err
		}
		if s.Where == nil {
			return fmt.Errorf("where is required for filter")
		}
		if err := validatePredicate(*s.Where); err != nil {
			return err
		}
		if s.Param != "" && kinds[s.Param] != KindValue && kinds[s.Param] != KindDerived {
			return fmt.Errorf("param %q must be a value store", s.Param)
		}
		if s.Narrowing && s.Param == "" {
			return fmt.Errorf("narrowing requires param")
		}
		return nil
	case KindSort:
		if len(s.OrderBy) == 0 {
			return fmt.Errorf("order_by is required for sort")
		}
		return needSource()
	case KindSlice:
		if err := needSource(); err != nil {
			return err
		}
		switch r := s.Range.(type) {
		case string:
			if !isValue(kinds[r]) {
				return fmt.Errorf("range %q must be a value store", r)
			}
		case []any:
			if _, err := toRange(r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("range must be [start, end] or a value store name")
		}
		return nil
	case KindCount, KindReindex:
		if s.Field == "" {
			return fmt.Errorf("field is required for %s", s.Kind)
		}
		return needSource()
	case KindMap:
		if len(s.Fields) == 0 {
			return fmt.Errorf("fields is required for map")
		}
		return needSource()
	case KindDerived:
		if len(s.Sources) == 0 {
			return fmt.Errorf("sources is required for derived")
		}
		for _, src := range s.Sources {
			if _, ok := kinds[src]; !ok {
				return fmt.Errorf("unknown source %q", src)
			}
		}
		switch s.Op {
		case OpSum, OpMin, OpMax:
			reads := false
			for _, src := range s.Sources {
				reads = reads || isCollection(kinds[src])
			}
			if reads && s.Field == "" {
				return fmt.Errorf("field is required for %s", s.Op)
			}
		case OpLen:
		default:
			return fmt.Errorf("unknown op %q", s.Op)
		}
		return nil
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
}

func validatePredicate(p Predicate) error {
	if p.Field == "" {
		return fmt.Errorf("where.field is required")
	}
	switch p.Op {
	case PredEq, PredNe, PredGt, PredGte, PredLt, PredLte, PredContains:
		return nil
	default:
		return fmt.Errorf("unknown where.op %q", p.Op)
	}
}

func validateStep(step Step, kinds map[string]string) error {
	targets := 0
	for _, name := range []string{step.Set, step.Patch, step.Destroy} {
		if name != "" {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("exactly one of set, patch, destroy is required")
	}

	switch {
	case step.Set != "":
		if kinds[step.Set] != KindValue {
			return fmt.Errorf("set target %q is not a value store", step.Set)
		}
	case step.Patch != "":
		if k := kinds[step.Patch]; k != KindSet && k != KindArray {
			return fmt.Errorf("patch target %q is not a set or array", step.Patch)
		}
	case step.Destroy != "":
		if _, ok := kinds[step.Destroy]; !ok {
			return fmt.Errorf("unknown store %q", step.Destroy)
		}
	}
	return nil
}

func validateAssertion(a Assertion, kinds map[string]string, steps int) error {
	kind, ok := kinds[a.Store]
	if !ok {
		return fmt.Errorf("unknown store %q", a.Store)
	}

	switch a.Type {
	case AssertValue:
		if !isValue(kind) {
			return fmt.Errorf("value assertion on %s store %q", kind, a.Store)
		}
	case AssertKeys, AssertItems:
		if !isCollection(kind) {
			return fmt.Errorf("%s assertion on %s store %q", a.Type, kind, a.Store)
		}
	case AssertCounts:
		if kind != KindCount {
			return fmt.Errorf("counts assertion on %s store %q", kind, a.Store)
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertNoEvent:
		if a.Step < 1 || a.Step > steps {
			return fmt.Errorf("step must be between 1 and %d", steps)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
