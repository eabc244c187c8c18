// Package sparql parses and evaluates the SELECT subset of SPARQL used by the
// service: basic graph patterns, property paths, OPTIONAL, UNION, FILTER and
// the ORDER BY / LIMIT / OFFSET modifiers.
package sparql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/voc/rdf"

	"github.com/ha1tch/ecotour/pkg/graph"
)

// ErrSyntax is returned for malformed or unsupported queries.
var ErrSyntax = errors.New("sparql syntax error")

var rdfType = quad.IRI(rdf.Type).Full()

// function name -> allowed argument counts
var builtins = map[string][2]int{
	"REGEX":     {2, 3},
	"CONTAINS":  {2, 2},
	"STRSTARTS": {2, 2},
	"STRENDS":   {2, 2},
	"LCASE":     {1, 1},
	"UCASE":     {1, 1},
	"STR":       {1, 1},
	"STRLEN":    {1, 1},
	"LANG":      {1, 1},
	"BOUND":     {1, 1},
	"ISIRI":     {1, 1},
	"ISURI":     {1, 1},
	"ISLITERAL": {1, 1},
}

type parser struct {
	toks     []token
	i        int
	prefixes map[string]string
	defaults map[string]string
}

// Parse parses a SELECT query.
func Parse(src string) (*Query, error) {
	return ParseWithPrefixes(src, nil)
}

// ParseWithPrefixes parses a SELECT query; prefixes in defaults are used
// when the query uses them without declaring them.
func ParseWithPrefixes(src string, defaults map[string]string) (*Query, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, prefixes: make(map[string]string), defaults: defaults}
	return p.parseQuery()
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.peek().pos, fmt.Sprintf(format, args...))
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, word)
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) acceptKeyword(word string) bool {
	if p.isKeyword(word) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if !p.acceptPunct(s) {
		return p.errorf("expected %q, found %s", s, p.peek())
	}
	return nil
}

func (p *parser) parseQuery() (*Query, error) {
	q := &Query{Limit: -1}

	for {
		if p.acceptKeyword("PREFIX") {
			name := p.advance()
			if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
				return nil, p.errorf("expected prefix name, found %s", name)
			}
			iri := p.advance()
			if iri.kind != tokIRI {
				return nil, p.errorf("expected IRI for prefix %s", name.text)
			}
			p.prefixes[strings.TrimSuffix(name.text, ":")] = iri.text
			continue
		}
		if p.isKeyword("BASE") {
			return nil, p.errorf("BASE is not supported")
		}
		break
	}
	q.Prefixes = p.prefixes

	if !p.acceptKeyword("SELECT") {
		return nil, p.errorf("only SELECT queries are supported, found %s", p.peek())
	}
	if p.acceptKeyword("DISTINCT") || p.acceptKeyword("REDUCED") {
		q.Distinct = true
	}
	if !p.acceptPunct("*") {
		for p.peek().kind == tokVar {
			q.Vars = append(q.Vars, p.advance().text)
		}
		if p.isPunct("(") {
			return nil, p.errorf("projection expressions are not supported")
		}
		if len(q.Vars) == 0 {
			return nil, p.errorf("expected variables or * after SELECT")
		}
	}

	p.acceptKeyword("WHERE")
	where, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	q.Where = where

	if err := p.parseModifiers(q); err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %s after query", p.peek())
	}
	return q, nil
}

func (p *parser) parseModifiers(q *Query) error {
	if p.acceptKeyword("ORDER") {
		if !p.acceptKeyword("BY") {
			return p.errorf("expected BY after ORDER")
		}
		for {
			key, ok, err := p.parseOrderKey()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			q.OrderBy = append(q.OrderBy, key)
		}
		if len(q.OrderBy) == 0 {
			return p.errorf("expected ORDER BY condition")
		}
	}
	for {
		switch {
		case p.acceptKeyword("LIMIT"):
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			q.Limit = n
		case p.acceptKeyword("OFFSET"):
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			q.Offset = n
		default:
			return nil
		}
	}
}

func (p *parser) parseCount() (int, error) {
	t := p.advance()
	if t.kind != tokNumber {
		return 0, p.errorf("expected integer, found %s", t)
	}
	n, err := strconv.Atoi(t.text)
	if err != nil || n < 0 {
		return 0, p.errorf("invalid count %s", t.text)
	}
	return n, nil
}

func (p *parser) parseOrderKey() (OrderKey, bool, error) {
	desc := false
	switch {
	case p.acceptKeyword("ASC"):
	case p.acceptKeyword("DESC"):
		desc = true
	default:
		t := p.peek()
		switch {
		case t.kind == tokVar:
			p.advance()
			return OrderKey{Expr: VarExpr{Name: t.text}}, true, nil
		case t.kind == tokPunct && t.text == "(":
			e, err := p.parseBracketted()
			return OrderKey{Expr: e}, err == nil, err
		case t.kind == tokIdent && isBuiltin(t.text):
			e, err := p.parsePrimary()
			return OrderKey{Expr: e}, err == nil, err
		}
		return OrderKey{}, false, nil
	}
	e, err := p.parseBracketted()
	if err != nil {
		return OrderKey{}, false, err
	}
	return OrderKey{Expr: e, Descending: desc}, true, nil
}

func (p *parser) parseGroup() (*Group, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	g := &Group{}
	for {
		switch {
		case p.acceptPunct("}"):
			return g, nil
		case p.acceptPunct("."):
		case p.acceptKeyword("OPTIONAL"):
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Optional{Group: inner})
		case p.acceptKeyword("FILTER"):
			e, err := p.parseFilter()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Filter{Expr: e})
		case p.isPunct("{"):
			inner, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			alts := []*Group{inner}
			for p.acceptKeyword("UNION") {
				next, err := p.parseGroup()
				if err != nil {
					return nil, err
				}
				alts = append(alts, next)
			}
			if len(alts) == 1 {
				g.Elements = append(g.Elements, inner)
			} else {
				g.Elements = append(g.Elements, &Union{Alternatives: alts})
			}
		case p.peek().kind == tokEOF:
			return nil, p.errorf("unterminated group")
		default:
			patterns, err := p.parseTriples()
			if err != nil {
				return nil, err
			}
			for _, tp := range patterns {
				g.Elements = append(g.Elements, tp)
			}
		}
	}
}

func (p *parser) parseFilter() (Expr, error) {
	if p.isPunct("(") {
		return p.parseBracketted()
	}
	t := p.peek()
	if t.kind == tokIdent && isBuiltin(t.text) {
		return p.parsePrimary()
	}
	return nil, p.errorf("expected ( after FILTER")
}

func (p *parser) parseTriples() ([]*TriplePattern, error) {
	subject, err := p.parseNode(false)
	if err != nil {
		return nil, err
	}

	var out []*TriplePattern
	for {
		var path Path
		if t := p.peek(); t.kind == tokVar {
			p.advance()
			path = PathVar{Name: t.text}
		} else {
			path, err = p.parsePathAlt()
			if err != nil {
				return nil, err
			}
		}

		for {
			object, err := p.parseNode(true)
			if err != nil {
				return nil, err
			}
			out = append(out, &TriplePattern{Subject: subject, Path: path, Object: object})
			if !p.acceptPunct(",") {
				break
			}
		}

		if !p.acceptPunct(";") {
			break
		}
		for p.acceptPunct(";") {
		}
		if p.isPunct(".") || p.isPunct("}") {
			break
		}
	}

	if !p.acceptPunct(".") && !p.isPunct("}") {
		return nil, p.errorf("expected . or } after triple, found %s", p.peek())
	}
	return out, nil
}

func (p *parser) parseNode(literalOK bool) (Term, error) {
	t := p.peek()
	switch t.kind {
	case tokVar:
		p.advance()
		return Term{Var: t.text}, nil
	case tokIRI, tokPName:
		iri, err := p.parseIRI()
		return Term{Value: iri}, err
	}
	if !literalOK {
		return Term{}, p.errorf("expected variable or IRI, found %s", t)
	}
	v, err := p.parseLiteral()
	return Term{Value: v}, err
}

func (p *parser) parseIRI() (quad.IRI, error) {
	t := p.advance()
	switch t.kind {
	case tokIRI:
		return quad.IRI(t.text), nil
	case tokPName:
		return p.expand(t.text)
	}
	return "", p.errorf("expected IRI, found %s", t)
}

func (p *parser) expand(pname string) (quad.IRI, error) {
	idx := strings.IndexByte(pname, ':')
	prefix, local := pname[:idx], pname[idx+1:]
	if ns, ok := p.prefixes[prefix]; ok {
		return quad.IRI(ns + local), nil
	}
	if ns, ok := p.defaults[prefix]; ok {
		return quad.IRI(ns + local), nil
	}
	return "", p.errorf("undeclared prefix %q", prefix)
}

func (p *parser) parseLiteral() (quad.Value, error) {
	t := p.peek()
	switch {
	case t.kind == tokString:
		p.advance()
		switch {
		case t.lang != "":
			return quad.LangString{Value: quad.String(t.text), Lang: t.lang}, nil
		case t.datatype != "":
			var dt quad.IRI
			if strings.HasPrefix(t.datatype, "<") {
				dt = quad.IRI(strings.Trim(t.datatype, "<>"))
			} else {
				var err error
				if dt, err = p.expand(t.datatype); err != nil {
					return nil, err
				}
			}
			if dt == graph.XSDString {
				return quad.String(t.text), nil
			}
			return quad.TypedString{Value: quad.String(t.text), Type: dt}, nil
		}
		return quad.String(t.text), nil

	case t.kind == tokNumber:
		p.advance()
		return numberLiteral(t.text, false), nil

	case t.kind == tokPunct && (t.text == "-" || t.text == "+"):
		p.advance()
		n := p.advance()
		if n.kind != tokNumber {
			return nil, p.errorf("expected number after %s", t.text)
		}
		return numberLiteral(n.text, t.text == "-"), nil

	case t.kind == tokIdent && (strings.EqualFold(t.text, "true") || strings.EqualFold(t.text, "false")):
		p.advance()
		return quad.TypedString{Value: quad.String(strings.ToLower(t.text)), Type: graph.XSDBoolean}, nil
	}
	return nil, p.errorf("expected term, found %s", t)
}

func numberLiteral(text string, negative bool) quad.Value {
	if negative {
		text = "-" + text
	}
	dt := graph.XSDInteger
	switch {
	case strings.ContainsAny(text, "eE"):
		dt = graph.XSDDouble
	case strings.Contains(text, "."):
		dt = graph.XSDDecimal
	}
	return quad.TypedString{Value: quad.String(text), Type: dt}
}

func (p *parser) parsePathAlt() (Path, error) {
	first, err := p.parsePathSeq()
	if err != nil {
		return nil, err
	}
	choices := []Path{first}
	for p.acceptPunct("|") {
		next, err := p.parsePathSeq()
		if err != nil {
			return nil, err
		}
		choices = append(choices, next)
	}
	if len(choices) == 1 {
		return first, nil
	}
	return PathAlt{Choices: choices}, nil
}

func (p *parser) parsePathSeq() (Path, error) {
	first, err := p.parsePathElt()
	if err != nil {
		return nil, err
	}
	steps := []Path{first}
	for p.acceptPunct("/") {
		next, err := p.parsePathElt()
		if err != nil {
			return nil, err
		}
		steps = append(steps, next)
	}
	if len(steps) == 1 {
		return first, nil
	}
	return PathSeq{Steps: steps}, nil
}

func (p *parser) parsePathElt() (Path, error) {
	inverse := p.acceptPunct("^")

	var prim Path
	t := p.peek()
	switch {
	case t.kind == tokIdent && t.text == "a":
		p.advance()
		prim = PathLink{IRI: rdfType}
	case t.kind == tokIRI || t.kind == tokPName:
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		prim = PathLink{IRI: iri}
	case t.kind == tokPunct && t.text == "(":
		p.advance()
		inner, err := p.parsePathAlt()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		prim = inner
	default:
		return nil, p.errorf("expected predicate, found %s", t)
	}

	if t := p.peek(); t.kind == tokPunct && (t.text == "*" || t.text == "+" || t.text == "?") {
		p.advance()
		prim = PathMod{Path: prim, Mod: t.text[0]}
	}
	if inverse {
		return PathInverse{Path: prim}, nil
	}
	return prim, nil
}

func isBuiltin(name string) bool {
	_, ok := builtins[strings.ToUpper(name)]
	return ok
}

func (p *parser) parseBracketted() (Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("&&") {
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"=", "!=", "<", ">", "<=", ">="} {
		if p.acceptPunct(op) {
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return BinaryExpr{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op.kind != tokPunct || (op.text != "+" && op.text != "-") {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op.text, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op.kind != tokPunct || (op.text != "*" && op.text != "/") {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op.text, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	for _, op := range []string{"!", "-", "+"} {
		if p.acceptPunct(op) {
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			if op == "+" {
				return x, nil
			}
			return UnaryExpr{Op: op, X: x}, nil
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokPunct:
		if t.text == "(" {
			return p.parseBracketted()
		}
	case tokVar:
		p.advance()
		return VarExpr{Name: t.text}, nil
	case tokIRI, tokPName:
		iri, err := p.parseIRI()
		return ConstExpr{Value: iri}, err
	case tokString, tokNumber:
		v, err := p.parseLiteral()
		return ConstExpr{Value: v}, err
	case tokIdent:
		name := strings.ToUpper(t.text)
		if name == "TRUE" || name == "FALSE" {
			v, err := p.parseLiteral()
			return ConstExpr{Value: v}, err
		}
		arity, ok := builtins[name]
		if !ok {
			return nil, p.errorf("unsupported function %s", t.text)
		}
		p.advance()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var args []Expr
		if !p.isPunct(")") {
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.acceptPunct(",") {
					break
				}
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if len(args) < arity[0] || len(args) > arity[1] {
			return nil, p.errorf("%s expects %d to %d arguments, got %d", name, arity[0], arity[1], len(args))
		}
		if name == "BOUND" {
			if _, ok := args[0].(VarExpr); !ok {
				return nil, p.errorf("BOUND expects a variable")
			}
		}
		return CallExpr{Name: name, Args: args}, nil
	}
	return nil, p.errorf("unexpected %s in expression", t)
}
