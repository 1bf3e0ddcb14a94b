// Package expr implements the sandboxed expression language used by prompt
// scripts: arithmetic, string concatenation, comparisons, boolean AND/OR/NOT
// and a fixed set of functions, evaluated against a caller-supplied variable
// scope. It is a dedicated tokenizer, recursive-descent parser and
// tree-walking evaluator; there is no host code execution of any kind.
package expr

import (
	"math"
	"strconv"
	"strings"
)

// Value is a runtime value: nil, bool, int64, float64 or string.
type Value = interface{}

// Scope supplies variable values during evaluation.
type Scope interface {
	Lookup(name string) (Value, bool)
}

// MapScope is a Scope over a plain map.
type MapScope map[string]Value

func (m MapScope) Lookup(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Truthy reports the boolean interpretation of a value: nil, false, zero and
// the empty string are false, everything else is true.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

// TypeName names a value's type for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	}
	return "unknown"
}

// ToString renders a value the way script authors expect to see it inside
// composed text.
func ToString(v Value) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") && !math.IsInf(t, 0) && !math.IsNaN(t) {
			s += ".0"
		}
		return s
	case string:
		return t
	}
	return ""
}

// IsScalar reports whether v is a non-string scalar (nil, bool or number),
// the kinds the string-coercion repair strategy converts.
func IsScalar(v Value) bool {
	switch v.(type) {
	case nil, bool, int64, float64:
		return true
	}
	return false
}

// asFloat converts numeric values (bools count as 0/1) to float64.
func asFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// asInt converts integral values to int64.
func asInt(v Value) (int64, bool) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case int64:
		return t, true
	}
	return 0, false
}
