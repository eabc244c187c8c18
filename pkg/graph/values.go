package graph

import (
	"math"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
)

// XML Schema datatypes used for typed literals
const (
	XSDString  = quad.IRI("http://www.w3.org/2001/XMLSchema#string")
	XSDInteger = quad.IRI("http://www.w3.org/2001/XMLSchema#integer")
	XSDInt     = quad.IRI("http://www.w3.org/2001/XMLSchema#int")
	XSDLong    = quad.IRI("http://www.w3.org/2001/XMLSchema#long")
	XSDFloat   = quad.IRI("http://www.w3.org/2001/XMLSchema#float")
	XSDDouble  = quad.IRI("http://www.w3.org/2001/XMLSchema#double")
	XSDDecimal = quad.IRI("http://www.w3.org/2001/XMLSchema#decimal")
	XSDBoolean = quad.IRI("http://www.w3.org/2001/XMLSchema#boolean")
)

// Int returns an xsd:integer literal.
func Int(n int64) quad.Value {
	return quad.TypedString{Value: quad.String(strconv.FormatInt(n, 10)), Type: XSDInteger}
}

// Float returns an xsd:float literal.
func Float(f float64) quad.Value {
	return quad.TypedString{Value: quad.String(strconv.FormatFloat(f, 'g', -1, 64)), Type: XSDFloat}
}

// Text returns a plain string literal.
func Text(s string) quad.Value {
	return quad.String(s)
}

// Lexical returns the lexical form of a term: the IRI itself, or the literal
// text without datatype or language tag.
func Lexical(v quad.Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case quad.IRI:
		return string(t)
	case quad.String:
		return string(t)
	case quad.TypedString:
		return string(t.Value)
	case quad.LangString:
		return string(t.Value)
	case quad.BNode:
		return string(t)
	default:
		return v.String()
	}
}

// IsIRI reports whether v is an IRI.
func IsIRI(v quad.Value) bool {
	_, ok := v.(quad.IRI)
	return ok
}

// IsLiteral reports whether v is a literal term.
func IsLiteral(v quad.Value) bool {
	switch v.(type) {
	case quad.String, quad.TypedString, quad.LangString:
		return true
	}
	return false
}

// IsNumeric reports whether v is a literal typed with a numeric datatype.
func IsNumeric(v quad.Value) bool {
	t, ok := v.(quad.TypedString)
	if !ok {
		return false
	}
	switch t.Type {
	case XSDInteger, XSDInt, XSDLong, XSDFloat, XSDDouble, XSDDecimal:
		return true
	}
	return false
}

// AsFloat parses the lexical form of v as a number.
func AsFloat(v quad.Value) (float64, bool) {
	if v == nil || IsIRI(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(Lexical(v)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AsInt parses the lexical form of v as an integer. Integral decimals such
// as "28.0" are accepted.
func AsInt(v quad.Value) (int64, bool) {
	if v == nil || IsIRI(v) {
		return 0, false
	}
	lex := strings.TrimSpace(Lexical(v))
	if n, err := strconv.ParseInt(lex, 10, 64); err == nil {
		return n, true
	}
	f, ok := AsFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
