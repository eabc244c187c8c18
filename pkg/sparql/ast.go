package sparql

import "github.com/cayleygraph/quad"

// Query is a parsed SELECT query.
type Query struct {
	Prefixes map[string]string
	Distinct bool
	// Vars is nil for SELECT *
	Vars    []string
	Where   *Group
	OrderBy []OrderKey
	Limit   int
	Offset  int
}

// OrderKey is one ORDER BY condition.
type OrderKey struct {
	Expr       Expr
	Descending bool
}

// Group is a brace-delimited group graph pattern.
type Group struct {
	Elements []Element
}

// Element is one member of a group: a triple pattern, a nested group,
// OPTIONAL, UNION or FILTER.
type Element interface {
	element()
}

// Term is a variable or a constant RDF term.
type Term struct {
	Var   string
	Value quad.Value
}

// IsVar reports whether the term is a variable.
func (t Term) IsVar() bool { return t.Var != "" }

// TriplePattern matches subject, path and object.
type TriplePattern struct {
	Subject Term
	Path    Path
	Object  Term
}

// Optional is OPTIONAL { ... }
type Optional struct {
	Group *Group
}

// Union holds two or more alternative groups.
type Union struct {
	Alternatives []*Group
}

// Filter is FILTER(expr)
type Filter struct {
	Expr Expr
}

func (*TriplePattern) element() {}
func (*Group) element()         {}
func (*Optional) element()      {}
func (*Union) element()         {}
func (*Filter) element()        {}

// Path is a predicate or a property path expression.
type Path interface {
	path()
}

// PathLink is a single predicate IRI.
type PathLink struct {
	IRI quad.IRI
}

// PathVar is a variable in predicate position.
type PathVar struct {
	Name string
}

// PathSeq is p1/p2/...
type PathSeq struct {
	Steps []Path
}

// PathAlt is p1|p2|...
type PathAlt struct {
	Choices []Path
}

// PathInverse is ^p
type PathInverse struct {
	Path Path
}

// PathMod is p*, p+ or p?
type PathMod struct {
	Path Path
	Mod  byte
}

func (PathLink) path()    {}
func (PathVar) path()     {}
func (PathSeq) path()     {}
func (PathAlt) path()     {}
func (PathInverse) path() {}
func (PathMod) path()     {}

// Expr is a FILTER or ORDER BY expression.
type Expr interface {
	expr()
}

// VarExpr references a variable.
type VarExpr struct {
	Name string
}

// ConstExpr is a constant term.
type ConstExpr struct {
	Value quad.Value
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

// UnaryExpr applies "!" or "-".
type UnaryExpr struct {
	Op string
	X  Expr
}

// CallExpr is a built-in function call. Name is upper case.
type CallExpr struct {
	Name string
	Args []Expr
}

func (VarExpr) expr()    {}
func (ConstExpr) expr()  {}
func (BinaryExpr) expr() {}
func (UnaryExpr) expr()  {}
func (CallExpr) expr()   {}
