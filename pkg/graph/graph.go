package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

// ErrParse is returned when a serialized graph cannot be decoded.
var ErrParse = errors.New("graph parse error")

type tripleKey struct {
	s, p, o quad.Value
}

// IndexedGraph is an in-memory set of triples indexed by subject, predicate
// and object. Matches come back in insertion order.
type IndexedGraph struct {
	triples     map[uint64]quad.Quad
	keys        map[tripleKey]uint64
	bySubject   map[quad.Value]map[uint64]struct{}
	byPredicate map[quad.Value]map[uint64]struct{}
	byObject    map[quad.Value]map[uint64]struct{}
	seq         uint64
	mu          sync.RWMutex
}

// NewIndexedGraph creates a new indexed graph
func NewIndexedGraph() *IndexedGraph {
	return &IndexedGraph{
		triples:     make(map[uint64]quad.Quad),
		keys:        make(map[tripleKey]uint64),
		bySubject:   make(map[quad.Value]map[uint64]struct{}),
		byPredicate: make(map[quad.Value]map[uint64]struct{}),
		byObject:    make(map[quad.Value]map[uint64]struct{}),
	}
}

// Add inserts a triple. It reports false if the triple was already present.
func (g *IndexedGraph) Add(q quad.Quad) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.add(q)
}

// AddAll inserts every triple of qs.
func (g *IndexedGraph) AddAll(qs []quad.Quad) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, q := range qs {
		g.add(q)
	}
}

func (g *IndexedGraph) add(q quad.Quad) bool {
	q.Label = nil
	key := tripleKey{q.Subject, q.Predicate, q.Object}
	if _, exists := g.keys[key]; exists {
		return false
	}
	g.seq++
	id := g.seq
	g.triples[id] = q
	g.keys[key] = id
	insert(g.bySubject, q.Subject, id)
	insert(g.byPredicate, q.Predicate, id)
	insert(g.byObject, q.Object, id)
	return true
}

// Remove deletes every triple matching the pattern. A nil term is a wildcard.
// It returns the number of removed triples.
func (g *IndexedGraph) Remove(s, p, o quad.Value) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := g.match(s, p, o)
	for _, id := range ids {
		q := g.triples[id]
		delete(g.triples, id)
		delete(g.keys, tripleKey{q.Subject, q.Predicate, q.Object})
		drop(g.bySubject, q.Subject, id)
		drop(g.byPredicate, q.Predicate, id)
		drop(g.byObject, q.Object, id)
	}
	return len(ids)
}

// Match returns the triples matching the pattern in insertion order. A nil
// term is a wildcard.
func (g *IndexedGraph) Match(s, p, o quad.Value) []quad.Quad {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.match(s, p, o)
	out := make([]quad.Quad, len(ids))
	for i, id := range ids {
		out[i] = g.triples[id]
	}
	return out
}

// Contains reports whether the exact triple is present.
func (g *IndexedGraph) Contains(s, p, o quad.Value) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.keys[tripleKey{s, p, o}]
	return ok
}

// HasSubject reports whether any triple has v as subject.
func (g *IndexedGraph) HasSubject(v quad.Value) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.bySubject[v]) > 0
}

// Objects returns the objects of (s, p, ?) in insertion order.
func (g *IndexedGraph) Objects(s, p quad.Value) []quad.Value {
	qs := g.Match(s, p, nil)
	out := make([]quad.Value, len(qs))
	for i, q := range qs {
		out[i] = q.Object
	}
	return out
}

// Subjects returns the subjects of (?, p, o) in insertion order.
func (g *IndexedGraph) Subjects(p, o quad.Value) []quad.Value {
	qs := g.Match(nil, p, o)
	out := make([]quad.Value, len(qs))
	for i, q := range qs {
		out[i] = q.Subject
	}
	return out
}

// Len returns the number of triples.
func (g *IndexedGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.triples)
}

// Quads returns all triples in insertion order.
func (g *IndexedGraph) Quads() []quad.Quad {
	return g.Match(nil, nil, nil)
}

// Clone returns an independent copy that preserves triple order.
func (g *IndexedGraph) Clone() *IndexedGraph {
	c := NewIndexedGraph()
	c.AddAll(g.Quads())
	return c
}

// Clear removes every triple
func (g *IndexedGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.triples = make(map[uint64]quad.Quad)
	g.keys = make(map[tripleKey]uint64)
	g.bySubject = make(map[quad.Value]map[uint64]struct{})
	g.byPredicate = make(map[quad.Value]map[uint64]struct{})
	g.byObject = make(map[quad.Value]map[uint64]struct{})
}

func (g *IndexedGraph) match(s, p, o quad.Value) []uint64 {
	var candidates map[uint64]struct{}
	all := true
	for _, idx := range []struct {
		term quad.Value
		m    map[quad.Value]map[uint64]struct{}
	}{{s, g.bySubject}, {p, g.byPredicate}, {o, g.byObject}} {
		if idx.term == nil {
			continue
		}
		set := idx.m[idx.term]
		if len(set) == 0 {
			return nil
		}
		if all || len(set) < len(candidates) {
			candidates = set
			all = false
		}
	}

	var ids []uint64
	if all {
		ids = make([]uint64, 0, len(g.triples))
		for id := range g.triples {
			ids = append(ids, id)
		}
	} else {
		for id := range candidates {
			q := g.triples[id]
			if (s == nil || q.Subject == s) && (p == nil || q.Predicate == p) && (o == nil || q.Object == o) {
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func insert(m map[quad.Value]map[uint64]struct{}, v quad.Value, id uint64) {
	set, ok := m[v]
	if !ok {
		set = make(map[uint64]struct{})
		m[v] = set
	}
	set[id] = struct{}{}
}

func drop(m map[quad.Value]map[uint64]struct{}, v quad.Value, id uint64) {
	set := m[v]
	delete(set, id)
	if len(set) == 0 {
		delete(m, v)
	}
}

// Encode writes the graph as N-Triples in insertion order.
func (g *IndexedGraph) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	nw := nquads.NewWriter(bw)
	for _, q := range g.Quads() {
		if err := nw.WriteQuad(q); err != nil {
			return fmt.Errorf("failed to write triple: %w", err)
		}
	}
	if err := nw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads N-Triples from r into the graph. Literal datatypes are kept
// as written.
func (g *IndexedGraph) Decode(r io.Reader) error {
	qr := nquads.NewReader(r, true)
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		q, err := qr.ReadQuad()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrParse, err)
		}
		g.add(q)
	}
}

// Save writes the graph to a file through a temporary file and rename, so a
// failed write never truncates the previous content.
func (g *IndexedGraph) Save(filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tempFile := filename + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}
	if err := g.Encode(f); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filename)
}

// Load parses a file into a fresh graph. A missing file yields an empty graph.
func Load(filename string) (*IndexedGraph, error) {
	g := NewIndexedGraph()
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := g.Decode(bufio.NewReader(f)); err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return g, nil
}
