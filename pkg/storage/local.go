package storage

import (
	"context"

	"github.com/ha1tch/ecotour/pkg/sparql"
)

// LocalExecutor evaluates queries against the in-memory graph
type LocalExecutor struct {
	source   GraphSource
	prefixes map[string]string
}

// NewLocalExecutor creates an executor over source. Prefixes are applied to
// queries that use them without declaring them.
func NewLocalExecutor(source GraphSource, prefixes map[string]string) *LocalExecutor {
	return &LocalExecutor{source: source, prefixes: prefixes}
}

// Name returns the executor name
func (e *LocalExecutor) Name() string { return "local" }

// Query parses and evaluates query against the current snapshot
func (e *LocalExecutor) Query(ctx context.Context, query string) (*Result, error) {
	res, err := sparql.Execute(ctx, e.source.Snapshot(), query, e.prefixes)
	if err != nil {
		return nil, err
	}

	out := &Result{Vars: res.Vars, Rows: make([]Row, len(res.Bindings))}
	for i, b := range res.Bindings {
		out.Rows[i] = Row(b)
	}
	return out, nil
}
