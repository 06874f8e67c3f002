// internal/catalog/conditions.go
//
// Achievement conditions: `key op value` checks against a progress map.
// Responsibilities:
//   - Compare numeric and boolean progress values from YAML, JSON or Go.
//   - Require every condition of an achievement to hold.

package catalog

import "encoding/json"

var ops = map[string]func(cmp int) bool{
	"eq":  func(c int) bool { return c == 0 },
	"ne":  func(c int) bool { return c != 0 },
	"gt":  func(c int) bool { return c > 0 },
	"gte": func(c int) bool { return c >= 0 },
	"lt":  func(c int) bool { return c < 0 },
	"lte": func(c int) bool { return c <= 0 },
}

// Met reports whether every condition holds. Missing keys fail.
func (a Achievement) Met(progress map[string]any) bool {
	for _, c := range a.When {
		if !c.Holds(progress) {
			return false
		}
	}
	return true
}

// Holds evaluates one condition.
func (c Condition) Holds(progress map[string]any) bool {
	v, ok := progress[c.Key]
	if !ok {
		return false
	}
	test := ops[c.Op]
	if test == nil {
		return false
	}
	if want, ok := c.Value.(bool); ok {
		got, ok := v.(bool)
		if !ok || (c.Op != "eq" && c.Op != "ne") {
			return false
		}
		if got == want {
			return test(0)
		}
		return test(1)
	}
	got, ok1 := number(v)
	want, ok2 := number(c.Value)
	if !ok1 || !ok2 {
		return false
	}
	switch {
	case got < want:
		return test(-1)
	case got > want:
		return test(1)
	}
	return test(0)
}

// number accepts the numeric types produced by YAML, JSON and Go callers.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
