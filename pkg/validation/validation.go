// Package validation checks and coerces attribute maps against the per-class
// schema table before they become typed literals.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/ontology"
)

// Value is a validated attribute ready to be written
type Value struct {
	Attribute ontology.Attribute
	// Term is the typed literal
	Term quad.Value
	// Native is the coerced Go value, used in responses
	Native interface{}
}

// Result of validating one attribute map
type Result struct {
	Values  []Value
	Ignored []string
	Errors  []string
}

// Valid reports whether no errors were found
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Error joins the errors into one message
func (r Result) Error() string { return strings.Join(r.Errors, "; ") }

// Get returns the validated value for an attribute key
func (r Result) Get(key string) (Value, bool) {
	for _, v := range r.Values {
		if v.Attribute.Key == key {
			return v, true
		}
	}
	return Value{}, false
}

// Validate coerces attrs against the attributes of class. Canonical keys win
// over aliases; keys the class does not recognise are reported in Ignored.
// When requireName is set a non-empty name must be present.
func Validate(class *ontology.Class, attrs map[string]interface{}, requireName bool) Result {
	var res Result
	used := make(map[string]bool)

	for _, attr := range class.Attributes {
		key, raw, found := pick(attr, attrs)
		if !found {
			continue
		}
		used[key] = true
		for _, alias := range attr.Aliases {
			if _, ok := attrs[alias]; ok {
				used[alias] = true
			}
		}
		if raw == nil {
			continue
		}

		term, native, err := Coerce(attr.Kind, raw)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		if attr.Key == "nom" && native.(string) == "" {
			res.Errors = append(res.Errors, "nom: must not be empty")
			continue
		}
		res.Values = append(res.Values, Value{Attribute: attr, Term: term, Native: native})
	}

	if requireName {
		if _, ok := res.Get("nom"); !ok && !hasError(res.Errors, "nom") {
			res.Errors = append(res.Errors, "nom: is required")
		}
	}

	for key := range attrs {
		if !used[key] {
			res.Ignored = append(res.Ignored, key)
		}
	}
	sort.Strings(res.Ignored)
	return res
}

func pick(attr ontology.Attribute, attrs map[string]interface{}) (string, interface{}, bool) {
	if v, ok := attrs[attr.Key]; ok {
		return attr.Key, v, true
	}
	for _, alias := range attr.Aliases {
		if v, ok := attrs[alias]; ok {
			return alias, v, true
		}
	}
	return "", nil, false
}

func hasError(errs []string, key string) bool {
	for _, e := range errs {
		if strings.HasPrefix(e, key+":") {
			return true
		}
	}
	return false
}

// Coerce converts a decoded JSON value to a typed literal of kind.
func Coerce(kind ontology.Kind, raw interface{}) (quad.Value, interface{}, error) {
	switch kind {
	case ontology.Int:
		n, err := toInt(raw)
		if err != nil {
			return nil, nil, err
		}
		return graph.Int(n), n, nil
	case ontology.Float:
		f, err := toFloat(raw)
		if err != nil {
			return nil, nil, err
		}
		return graph.Float(f), f, nil
	default:
		s, err := toText(raw)
		if err != nil {
			return nil, nil, err
		}
		return graph.Text(s), s, nil
	}
}

func toFloat(raw interface{}) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(v, ",", ".", 1)), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number, got %q", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be a finite number")
	}
	return f, nil
}

func toInt(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := toFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("must be an integer, got %v", f)
	}
	return int64(f), nil
}

func toText(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("must be a string")
}
