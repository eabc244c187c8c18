package storage

import (
	"context"
	"errors"

	"github.com/cayleygraph/quad"

	"github.com/ha1tch/ecotour/pkg/graph"
)

var (
	// ErrUnknownExecutor is returned when no executor is registered under a name
	ErrUnknownExecutor = errors.New("unknown executor")
	// ErrRemote is returned when the remote endpoint rejects or fails a query
	ErrRemote = errors.New("remote sparql endpoint error")
)

// Executor runs read queries against a triple store
type Executor interface {
	Query(ctx context.Context, query string) (*Result, error)
	Name() string
}

// GraphSource hands out the active graph snapshot
type GraphSource interface {
	Snapshot() *graph.IndexedGraph
}

// Row is one solution of a query
type Row map[string]quad.Value

// Get returns the term bound to name.
func (r Row) Get(name string) (quad.Value, bool) {
	v, ok := r[name]
	return v, ok && v != nil
}

// String returns the lexical form bound to name, or "" when unbound.
func (r Row) String(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return graph.Lexical(v)
}

// Result holds the projected variables and rows of a query
type Result struct {
	Vars []string
	Rows []Row
}

// Records renders rows as JSON-ready maps of lexical strings; unbound
// variables are null.
func (r *Result) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]interface{}, len(r.Vars))
		for _, v := range r.Vars {
			if val, ok := row.Get(v); ok {
				rec[v] = graph.Lexical(val)
			} else {
				rec[v] = nil
			}
		}
		out = append(out, rec)
	}
	return out
}
