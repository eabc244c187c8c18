// Package catalog serves the per-class structured listings. Each listing is a
// SELECT generated from the ontology schema table, run through the active
// executor and post-processed into flat records.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cayleygraph/quad"
	"github.com/rs/zerolog"

	"github.com/ha1tch/ecotour/pkg/cache"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/metrics"
	"github.com/ha1tch/ecotour/pkg/ontology"
	"github.com/ha1tch/ecotour/pkg/storage"
)

// KeyPrefix namespaces catalog entries in the cache
const KeyPrefix = "catalog:"

// Record is one catalog entry: uri, nom, type and the class fields. Fields
// with no value, or a numeric value that does not parse, are nil.
type Record map[string]interface{}

// Catalog lists entities per class
type Catalog struct {
	executor storage.Executor
	cache    cache.Cache
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	// generation is bumped by Invalidate; a listing computed under an older
	// generation is returned but never cached.
	mu         sync.Mutex
	generation uint64
}

// New creates a catalog. c and m may be nil.
func New(executor storage.Executor, c cache.Cache, m *metrics.Metrics, logger zerolog.Logger) *Catalog {
	return &Catalog{executor: executor, cache: c, metrics: m, logger: logger}
}

// Query returns the listing query for class.
func Query(class *ontology.Class) string {
	var b strings.Builder
	b.WriteString("PREFIX ns: <" + ontology.Namespace + ">\n")
	b.WriteString("PREFIX rdf: <" + ontology.Prefixes["rdf"] + ">\n")
	b.WriteString("PREFIX rdfs: <" + ontology.Prefixes["rdfs"] + ">\n")

	b.WriteString("SELECT ?entity")
	for _, f := range fields(class) {
		b.WriteString(" ?" + f)
	}
	b.WriteString(" WHERE {\n")
	fmt.Fprintf(&b, "  ?entity rdf:type/rdfs:subClassOf* ns:%s .\n", class.Name)
	for _, a := range class.Attributes {
		fmt.Fprintf(&b, "  OPTIONAL { ?entity ns:%s ?%s . }\n", a.Predicate, a.Key)
	}
	for _, j := range class.Joins {
		steps := make([]string, len(j.Path))
		for i, p := range j.Path {
			steps[i] = "ns:" + p
		}
		fmt.Fprintf(&b, "  OPTIONAL { ?entity %s ?%s . }\n", strings.Join(steps, "/"), j.Field)
	}
	b.WriteString("}")
	return b.String()
}

func fields(class *ontology.Class) []string {
	out := make([]string, 0, len(class.Attributes)+len(class.Joins))
	for _, a := range class.Attributes {
		out = append(out, a.Key)
	}
	for _, j := range class.Joins {
		out = append(out, j.Field)
	}
	return out
}

// List returns the records of class, from cache when possible
func (c *Catalog) List(ctx context.Context, class *ontology.Class) ([]Record, error) {
	key := KeyPrefix + class.Endpoint

	if c.cache != nil {
		data, err := c.cache.Get(ctx, key)
		if err == nil {
			var records []Record
			if err := json.Unmarshal(data, &records); err == nil {
				c.metrics.RecordCache(true)
				return records, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache read failed")
		}
		c.metrics.RecordCache(false)
	}

	gen := c.currentGeneration()
	res, err := c.executor.Query(ctx, Query(class))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", class.Name, err)
	}
	records := Build(class, res)

	if c.cache != nil {
		c.store(ctx, key, gen, records)
	}
	return records, nil
}

func (c *Catalog) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// store caches records unless an invalidation happened since gen was read
func (c *Catalog) store(ctx context.Context, key string, gen uint64, records []Record) {
	data, err := json.Marshal(records)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Debug().Str("key", key).Msg("Catalog listing outdated by a mutation, not cached")
		return
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache write failed")
	}
}

// Invalidate drops every cached listing
func (c *Catalog) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++

	if c.cache == nil {
		return
	}
	if err := c.cache.DeletePrefix(ctx, KeyPrefix); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to invalidate catalog cache")
	}
}

// Build folds query rows into records. Rows are deduplicated by entity in
// first-seen order and the first non-null value of each field wins.
func Build(class *ontology.Class, res *storage.Result) []Record {
	records := make([]Record, 0)
	index := make(map[string]int)
	kinds := make(map[string]ontology.Kind)
	for _, a := range class.Attributes {
		kinds[a.Key] = a.Kind
	}
	for _, j := range class.Joins {
		kinds[j.Field] = j.Kind
	}
	names := fields(class)

	for _, row := range res.Rows {
		uri := row.String("entity")
		if uri == "" {
			continue
		}
		i, seen := index[uri]
		if !seen {
			rec := Record{"uri": uri, "type": class.Label}
			for _, f := range names {
				rec[f] = nil
			}
			records = append(records, rec)
			i = len(records) - 1
			index[uri] = i
		}

		rec := records[i]
		for _, f := range names {
			if rec[f] != nil {
				continue
			}
			if v, ok := row.Get(f); ok {
				rec[f] = coerce(kinds[f], v)
			}
		}
	}
	return records
}

func coerce(kind ontology.Kind, v quad.Value) interface{} {
	switch kind {
	case ontology.Int:
		if n, ok := graph.AsInt(v); ok {
			return n
		}
		return nil
	case ontology.Float:
		if f, ok := graph.AsFloat(v); ok {
			return f
		}
		return nil
	default:
		return graph.Lexical(v)
	}
}
