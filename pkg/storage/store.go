package storage

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/graph"
)

// Store owns the active graph and its canonical file. The active graph is
// always a fresh parse of the file; mutations run on a clone that is only
// swapped in once it has been written and read back.
type Store struct {
	path    string
	current atomic.Pointer[graph.IndexedGraph]
	mu      sync.Mutex
	logger  zerolog.Logger
}

// Open loads the canonical file at path. A missing file starts an empty graph.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	g, err := graph.Load(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(g)
	return s, nil
}

// Path returns the canonical file path
func (s *Store) Path() string { return s.path }

// Snapshot returns the active graph. Callers must not modify it.
func (s *Store) Snapshot() *graph.IndexedGraph {
	return s.current.Load()
}

// Reload re-parses the canonical file and swaps it in.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := graph.Load(s.path)
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, err, "failed to reload ontology")
	}
	s.current.Store(g)
	s.logger.Debug().Int("triples", g.Len()).Msg("Ontology reloaded")
	return nil
}

// Update applies fn to a copy of the active graph, persists the copy and
// swaps in a fresh parse of the written file. Errors returned by fn are
// passed through unchanged and leave both the graph and the file untouched.
func (s *Store) Update(ctx context.Context, fn func(g *graph.IndexedGraph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	previous := s.current.Load()
	work := previous.Clone()
	if err := fn(work); err != nil {
		return err
	}

	if err := work.Save(s.path); err != nil {
		s.logger.Error().Err(err).Str("file", s.path).Msg("Failed to persist ontology")
		return apperr.Wrap(apperr.PersistenceFailure, err, "failed to save ontology")
	}

	fresh, err := graph.Load(s.path)
	if err != nil {
		s.logger.Error().Err(err).Str("file", s.path).Msg("Persisted ontology does not parse, restoring previous version")
		if rerr := previous.Save(s.path); rerr != nil {
			s.logger.Error().Err(rerr).Msg("Failed to restore previous ontology")
		}
		return apperr.Wrap(apperr.PersistenceFailure, err, "failed to reload saved ontology")
	}

	s.current.Store(fresh)
	return nil
}

// Swap replaces the active graph without touching the canonical file.
func (s *Store) Swap(g *graph.IndexedGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(g)
}

// Save writes the active graph to the canonical file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.current.Load()
	if err := g.Save(s.path); err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, err, "failed to save ontology")
	}
	s.logger.Info().Int("triples", g.Len()).Str("file", s.path).Msg("Ontology saved")
	return nil
}
