package sparql

import (
	"context"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/ha1tch/ecotour/pkg/graph"
)

// Binding maps variable names to terms.
type Binding map[string]quad.Value

func (b Binding) clone() Binding {
	c := make(Binding, len(b)+2)
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Result is the solution sequence of a query.
type Result struct {
	Vars     []string
	Bindings []Binding
}

// Execute parses and evaluates query against g.
func Execute(ctx context.Context, g *graph.IndexedGraph, query string, prefixes map[string]string) (*Result, error) {
	q, err := ParseWithPrefixes(query, prefixes)
	if err != nil {
		return nil, err
	}
	return q.Eval(ctx, g)
}

type evaluator struct {
	ctx context.Context
	g   *graph.IndexedGraph
}

// Eval evaluates the query against g.
func (q *Query) Eval(ctx context.Context, g *graph.IndexedGraph) (*Result, error) {
	ev := &evaluator{ctx: ctx, g: g}
	sols, err := ev.group(q.Where, []Binding{{}})
	if err != nil {
		return nil, err
	}

	vars := q.Vars
	if vars == nil {
		vars = collectVars(q.Where, nil, map[string]bool{})
	}

	if len(q.OrderBy) > 0 {
		sortSolutions(sols, q.OrderBy)
	}

	projected := make([]Binding, 0, len(sols))
	seen := make(map[string]bool)
	for _, s := range sols {
		row := make(Binding, len(vars))
		for _, v := range vars {
			if val, ok := s[v]; ok {
				row[v] = val
			}
		}
		if q.Distinct {
			key := rowKey(row, vars)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		projected = append(projected, row)
	}

	if q.Offset > 0 {
		if q.Offset >= len(projected) {
			projected = projected[:0]
		} else {
			projected = projected[q.Offset:]
		}
	}
	if q.Limit >= 0 && q.Limit < len(projected) {
		projected = projected[:q.Limit]
	}
	return &Result{Vars: vars, Bindings: projected}, nil
}

func rowKey(row Binding, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		if val, ok := row[v]; ok {
			sb.WriteString(val.String())
		}
		sb.WriteByte(0)
	}
	return sb.String()
}

func collectVars(g *Group, out []string, seen map[string]bool) []string {
	add := func(t Term) {
		if t.IsVar() && !seen[t.Var] {
			seen[t.Var] = true
			out = append(out, t.Var)
		}
	}
	for _, el := range g.Elements {
		switch e := el.(type) {
		case *TriplePattern:
			add(e.Subject)
			if pv, ok := e.Path.(PathVar); ok {
				add(Term{Var: pv.Name})
			}
			add(e.Object)
		case *Group:
			out = collectVars(e, out, seen)
		case *Optional:
			out = collectVars(e.Group, out, seen)
		case *Union:
			for _, alt := range e.Alternatives {
				out = collectVars(alt, out, seen)
			}
		}
	}
	return out
}

// group evaluates the pattern elements in order against each seed solution,
// then applies the group's filters.
func (ev *evaluator) group(g *Group, seeds []Binding) ([]Binding, error) {
	sols := seeds
	var filters []Expr
	for _, el := range g.Elements {
		if err := ev.ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch e := el.(type) {
		case *Filter:
			filters = append(filters, e.Expr)
			continue
		case *TriplePattern:
			sols = ev.triple(e, sols)
		case *Group:
			sols, err = ev.group(e, sols)
		case *Optional:
			sols, err = ev.optional(e, sols)
		case *Union:
			sols, err = ev.union(e, sols)
		}
		if err != nil {
			return nil, err
		}
		if len(sols) == 0 {
			return nil, nil
		}
	}

	if len(filters) == 0 {
		return sols, nil
	}
	out := sols[:0:0]
	for _, s := range sols {
		keep := true
		for _, f := range filters {
			if !effectiveBool(s, f) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, s)
		}
	}
	return out, nil
}

func (ev *evaluator) optional(o *Optional, sols []Binding) ([]Binding, error) {
	var out []Binding
	for _, s := range sols {
		ext, err := ev.group(o.Group, []Binding{s})
		if err != nil {
			return nil, err
		}
		if len(ext) == 0 {
			out = append(out, s)
		} else {
			out = append(out, ext...)
		}
	}
	return out, nil
}

func (ev *evaluator) union(u *Union, sols []Binding) ([]Binding, error) {
	var out []Binding
	for _, s := range sols {
		for _, alt := range u.Alternatives {
			ext, err := ev.group(alt, []Binding{s})
			if err != nil {
				return nil, err
			}
			out = append(out, ext...)
		}
	}
	return out, nil
}

func resolve(t Term, b Binding) quad.Value {
	if !t.IsVar() {
		return t.Value
	}
	return b[t.Var]
}

// bind extends b with t=v, reporting false on a conflicting binding.
func bind(b Binding, t Term, v quad.Value) bool {
	if !t.IsVar() {
		return t.Value == v
	}
	if cur, ok := b[t.Var]; ok {
		return cur == v
	}
	b[t.Var] = v
	return true
}

func (ev *evaluator) triple(tp *TriplePattern, sols []Binding) []Binding {
	var out []Binding
	for _, s := range sols {
		subj := resolve(tp.Subject, s)
		obj := resolve(tp.Object, s)

		switch p := tp.Path.(type) {
		case PathLink, PathVar:
			var pred quad.Value
			var predTerm Term
			if pl, ok := p.(PathLink); ok {
				pred = pl.IRI
				predTerm = Term{Value: pl.IRI}
			} else {
				predTerm = Term{Var: p.(PathVar).Name}
				pred = s[predTerm.Var]
			}
			for _, q := range ev.g.Match(subj, pred, obj) {
				n := s.clone()
				if bind(n, tp.Subject, q.Subject) && bind(n, predTerm, q.Predicate) && bind(n, tp.Object, q.Object) {
					out = append(out, n)
				}
			}
		default:
			for _, pair := range ev.pathPairs(tp.Path, subj, obj) {
				n := s.clone()
				if bind(n, tp.Subject, pair[0]) && bind(n, tp.Object, pair[1]) {
					out = append(out, n)
				}
			}
		}
	}
	return out
}

// pathPairs returns the (start, end) node pairs connected by path, with
// either end optionally fixed.
func (ev *evaluator) pathPairs(path Path, start, end quad.Value) [][2]quad.Value {
	var out [][2]quad.Value
	switch {
	case start != nil:
		for _, n := range ev.forward(path, start) {
			if end == nil || n == end {
				out = append(out, [2]quad.Value{start, n})
			}
		}
	case end != nil:
		for _, n := range ev.backward(path, end) {
			out = append(out, [2]quad.Value{n, end})
		}
	default:
		for _, s := range ev.nodes() {
			for _, n := range ev.forward(path, s) {
				out = append(out, [2]quad.Value{s, n})
			}
		}
	}
	return out
}

// nodes lists every subject and object in graph order.
func (ev *evaluator) nodes() []quad.Value {
	var out []quad.Value
	seen := make(map[quad.Value]bool)
	for _, q := range ev.g.Quads() {
		for _, v := range []quad.Value{q.Subject, q.Object} {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func (ev *evaluator) forward(path Path, from quad.Value) []quad.Value {
	switch p := path.(type) {
	case PathLink:
		return ev.g.Objects(from, p.IRI)
	case PathInverse:
		return ev.backward(p.Path, from)
	case PathSeq:
		cur := []quad.Value{from}
		for _, step := range p.Steps {
			var next []quad.Value
			for _, n := range cur {
				next = append(next, ev.forward(step, n)...)
			}
			cur = dedupe(next)
		}
		return cur
	case PathAlt:
		var out []quad.Value
		for _, c := range p.Choices {
			out = append(out, ev.forward(c, from)...)
		}
		return dedupe(out)
	case PathMod:
		return closure(p, from, func(n quad.Value) []quad.Value { return ev.forward(p.Path, n) })
	}
	return nil
}

func (ev *evaluator) backward(path Path, to quad.Value) []quad.Value {
	switch p := path.(type) {
	case PathLink:
		return ev.g.Subjects(p.IRI, to)
	case PathInverse:
		return ev.forward(p.Path, to)
	case PathSeq:
		cur := []quad.Value{to}
		for i := len(p.Steps) - 1; i >= 0; i-- {
			var next []quad.Value
			for _, n := range cur {
				next = append(next, ev.backward(p.Steps[i], n)...)
			}
			cur = dedupe(next)
		}
		return cur
	case PathAlt:
		var out []quad.Value
		for _, c := range p.Choices {
			out = append(out, ev.backward(c, to)...)
		}
		return dedupe(out)
	case PathMod:
		return closure(p, to, func(n quad.Value) []quad.Value { return ev.backward(p.Path, n) })
	}
	return nil
}

// closure walks step from origin according to the modifier: "?" allows zero
// or one step, "*" zero or more and "+" one or more.
func closure(p PathMod, origin quad.Value, step func(quad.Value) []quad.Value) []quad.Value {
	if p.Mod == '?' {
		return dedupe(append([]quad.Value{origin}, step(origin)...))
	}

	var out []quad.Value
	seen := make(map[quad.Value]bool)
	if p.Mod == '*' {
		seen[origin] = true
		out = append(out, origin)
	}
	queue := step(origin)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		queue = append(queue, step(n)...)
	}
	return out
}

func dedupe(vs []quad.Value) []quad.Value {
	seen := make(map[quad.Value]bool, len(vs))
	out := vs[:0:0]
	for _, v := range vs {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func sortSolutions(sols []Binding, keys []OrderKey) {
	sort.SliceStable(sols, func(i, j int) bool {
		for _, k := range keys {
			a, _ := evalExpr(sols[i], k.Expr)
			b, _ := evalExpr(sols[j], k.Expr)
			c := orderCompare(a, b)
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// orderCompare orders unbound < blank nodes < IRIs < literals; literals that
// both parse as numbers compare numerically.
func orderCompare(a, b quad.Value) int {
	ra, rb := orderRank(a), orderRank(b)
	if ra != rb {
		return ra - rb
	}
	if a == nil {
		return 0
	}
	if graph.IsLiteral(a) {
		fa, okA := graph.AsFloat(a)
		fb, okB := graph.AsFloat(b)
		if okA && okB {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(graph.Lexical(a), graph.Lexical(b))
}

func orderRank(v quad.Value) int {
	switch v.(type) {
	case nil:
		return 0
	case quad.BNode:
		return 1
	case quad.IRI:
		return 2
	}
	return 3
}
