package scenario

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/ripple/internal/canon"
	"github.com/roach88/ripple/internal/derive"
)

// keyFunc returns the key function for records keyed by field. Non-string
// keys are rendered as canonical JSON so 1 and "1" stay distinct.
func keyFunc(field string) func(Record) string {
	return func(r Record) string {
		return render(r[field])
	}
}

// render formats v as a key or counter element.
func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := canon.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// toFloat reports v as a float64 when it is numeric.
func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// typeRank orders values of different types: null, booleans, numbers,
// strings, then everything else.
func typeRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := v.(bool); ok {
		return 1
	}
	if _, ok := toFloat(v); ok {
		return 2
	}
	if _, ok := v.(string); ok {
		return 3
	}
	return 4
}

// compareValues totally orders scalar record values.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return cmp.Compare(af, bf)
	case 3:
		return strings.Compare(a.(string), b.(string))
	case 4:
		return strings.Compare(render(a), render(b))
	}
	return 0
}

// comparator builds a record comparator from order_by fields. A leading
// "-" reverses a field.
func comparator(orderBy []string) func(a, b Record) int {
	type key struct {
		field string
		desc  bool
	}
	keys := make([]key, len(orderBy))
	for i, f := range orderBy {
		name, desc := strings.CutPrefix(f, "-")
		keys[i] = key{field: name, desc: desc}
	}
	return func(a, b Record) int {
		for _, k := range keys {
			c := compareValues(a[k.field], b[k.field])
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}

// matches evaluates op between a record value and an operand.
func matches(op string, v, operand any) bool {
	switch op {
	case PredEq:
		return compareValues(v, operand) == 0
	case PredNe:
		return compareValues(v, operand) != 0
	case PredGt:
		return typeRank(v) == typeRank(operand) && compareValues(v, operand) > 0
	case PredGte:
		return typeRank(v) == typeRank(operand) && compareValues(v, operand) >= 0
	case PredLt:
		return typeRank(v) == typeRank(operand) && compareValues(v, operand) < 0
	case PredLte:
		return typeRank(v) == typeRank(operand) && compareValues(v, operand) <= 0
	case PredContains:
		switch val := v.(type) {
		case string:
			s, ok := operand.(string)
			return ok && strings.Contains(val, s)
		case []any:
			for _, elem := range val {
				if compareValues(elem, operand) == 0 {
					return true
				}
			}
		}
		return false
	}
	return false
}

// elements extracts the counted elements of a record field: each element
// of a list, or the value itself. A missing field yields nothing.
func elements(field string) func(Record) []string {
	return func(r Record) []string {
		v, ok := r[field]
		if !ok || v == nil {
			return nil
		}
		if list, ok := v.([]any); ok {
			out := make([]string, len(list))
			for i, elem := range list {
				out[i] = render(elem)
			}
			return out
		}
		return []string{render(v)}
	}
}

// project builds the map function for a map store.
func project(fields map[string]string) func(Record) Record {
	return func(r Record) Record {
		out := make(Record, len(fields))
		for to, from := range fields {
			out[to] = r[from]
		}
		return out
	}
}

// toRange converts a [start, end] list to a slice window.
func toRange(v any) (derive.Range, error) {
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return derive.Range{}, fmt.Errorf("range must be a [start, end] pair, got %v", v)
	}
	var bounds [2]int
	for i, b := range list {
		f, ok := toFloat(b)
		if !ok || f != float64(int(f)) {
			return derive.Range{}, fmt.Errorf("range bound %v is not an integer", b)
		}
		bounds[i] = int(f)
	}
	return derive.Range{Start: bounds[0], End: bounds[1]}, nil
}
