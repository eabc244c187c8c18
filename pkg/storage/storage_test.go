package storage_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/ontology"
	"github.com/ha1tch/ecotour/pkg/storage"
)

func setupTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ontology.nt")

	g := graph.NewIndexedGraph()
	g.AddAll(ontology.SchemaQuads())
	g.Add(quad.Quad{Subject: ontology.Term("Paris"), Predicate: ontology.RDFType, Object: ontology.Term("Destination")})
	g.Add(quad.Quad{Subject: ontology.Term("Paris"), Predicate: ontology.Term("nomDestination"), Object: quad.String("Paris")})
	require.NoError(t, g.Save(path))

	store, err := storage.Open(path, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func addPerson(name string) func(g *graph.IndexedGraph) error {
	return func(g *graph.IndexedGraph) error {
		uri, err := ontology.EntityIRI(name)
		if err != nil {
			return err
		}
		g.Add(quad.Quad{Subject: uri, Predicate: ontology.RDFType, Object: ontology.Term("Personne")})
		g.Add(quad.Quad{Subject: uri, Predicate: ontology.Term("nomVoyageur"), Object: quad.String(name)})
		return nil
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	store := setupTestStore(t)
	before := store.Snapshot()

	require.NoError(t, store.Update(context.Background(), addPerson("Paul")))

	after := store.Snapshot()
	assert.NotSame(t, before, after)
	assert.True(t, after.HasSubject(ontology.Term("Paul")))
	assert.False(t, before.HasSubject(ontology.Term("Paul")))

	onDisk, err := graph.Load(store.Path())
	require.NoError(t, err)
	assert.Equal(t, after.Quads(), onDisk.Quads())
}

func TestStoreUpdateErrorLeavesGraphUntouched(t *testing.T) {
	store := setupTestStore(t)
	before := store.Snapshot()
	boom := apperr.New(apperr.Conflict, "already exists")

	err := store.Update(context.Background(), func(g *graph.IndexedGraph) error {
		addPerson("Paul")(g)
		return boom
	})
	assert.Same(t, boom, err)
	assert.Same(t, before, store.Snapshot())

	onDisk, err := graph.Load(store.Path())
	require.NoError(t, err)
	assert.False(t, onDisk.HasSubject(ontology.Term("Paul")))
}

func TestStoreUpdateRollsBackOnWriteFailure(t *testing.T) {
	store := setupTestStore(t)
	before := store.Snapshot()

	// a directory in place of the file makes the final rename fail
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0755))

	err := store.Update(context.Background(), addPerson("Paul"))
	require.Error(t, err)
	assert.Equal(t, apperr.PersistenceFailure, apperr.KindOf(err))
	assert.Same(t, before, store.Snapshot())
	assert.False(t, store.Snapshot().HasSubject(ontology.Term("Paul")))
}

func TestStoreConcurrentUpdates(t *testing.T) {
	store := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Update(context.Background(), addPerson(fmt.Sprintf("Voyageur %d", i))))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Snapshot().Match(nil, ontology.RDFType, ontology.Term("Personne")), 10)
}

func TestStoreReload(t *testing.T) {
	store := setupTestStore(t)

	external := store.Snapshot().Clone()
	require.NoError(t, addPerson("Marie")(external))
	require.NoError(t, external.Save(store.Path()))

	assert.False(t, store.Snapshot().HasSubject(ontology.Term("Marie")))
	require.NoError(t, store.Reload())
	assert.True(t, store.Snapshot().HasSubject(ontology.Term("Marie")))
}

func TestLocalExecutor(t *testing.T) {
	store := setupTestStore(t)
	exec, err := storage.NewExecutor("local", store, nil)
	require.NoError(t, err)

	res, err := exec.Query(context.Background(), `SELECT ?nom WHERE { ?d a ns:Destination ; ns:nomDestination ?nom }`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Paris", res.Rows[0].String("nom"))
	assert.Equal(t, []map[string]interface{}{{"nom": "Paris"}}, res.Records())

	_, err = exec.Query(context.Background(), `SELECT ?x WHERE {`)
	assert.Error(t, err)
}

func TestUnknownExecutor(t *testing.T) {
	_, err := storage.NewExecutor("fuseki", nil, nil)
	assert.ErrorIs(t, err, storage.ErrUnknownExecutor)
	assert.Contains(t, err.Error(), "registered: local, remote")
	assert.Equal(t, []string{"local", "remote"}, storage.ListExecutors())
}

func TestRemoteExecutor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Contains(t, r.Form.Get("query"), "SELECT")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		fmt.Fprint(w, `{"head":{"vars":["s","age"]},"results":{"bindings":[
			{"s":{"type":"uri","value":"http://x/Paul"},
			 "age":{"type":"literal","value":"28","datatype":"http://www.w3.org/2001/XMLSchema#integer"}}]}}`)
	}))
	defer srv.Close()

	exec := storage.NewRemoteExecutor(srv.URL, srv.Client(), zerolog.Nop())
	res, err := exec.Query(context.Background(), "SELECT ?s ?age WHERE { ?s ?p ?age }")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, quad.IRI("http://x/Paul"), res.Rows[0]["s"])
	n, ok := graph.AsInt(res.Rows[0]["age"])
	assert.True(t, ok)
	assert.Equal(t, int64(28), n)
}

func TestRemoteExecutorFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := setupTestStore(t)
	exec, err := storage.NewExecutor("remote", store, map[string]interface{}{
		"endpoint": srv.URL,
		"timeout":  time.Second,
	})
	require.NoError(t, err)

	res, err := exec.Query(context.Background(), `SELECT ?nom WHERE { ?d ns:nomDestination ?nom }`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Paris", res.Rows[0].String("nom"))

	bare := storage.NewRemoteExecutor(srv.URL, nil, zerolog.Nop())
	_, err = bare.Query(context.Background(), "SELECT ?s WHERE { ?s ?p ?o }")
	assert.True(t, errors.Is(err, storage.ErrRemote))
}

func TestRemoteExecutorHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	store := setupTestStore(t)
	exec, err := storage.NewExecutor("remote", store, map[string]interface{}{
		"endpoint": srv.URL,
		"timeout":  time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := exec.Query(ctx, `SELECT ?nom WHERE { ?d ns:nomDestination ?nom }`)
	assert.ErrorIs(t, err, storage.ErrRemote)
	assert.Nil(t, res, "a cancelled request is not answered from the local graph")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPing(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.NoError(t, storage.Ping(context.Background(), ok.URL, 2*time.Second))
	assert.ErrorIs(t, storage.Ping(context.Background(), down.URL, 2*time.Second), storage.ErrRemote)
}

func TestStoreSwapAndSave(t *testing.T) {
	store := setupTestStore(t)

	g := store.Snapshot().Clone()
	require.NoError(t, addPerson("Jean")(g))
	store.Swap(g)
	assert.True(t, store.Snapshot().HasSubject(ontology.Term("Jean")))

	// swapped state is not on disk until saved
	require.NoError(t, store.Reload())
	assert.False(t, store.Snapshot().HasSubject(ontology.Term("Jean")))

	store.Swap(g)
	require.NoError(t, store.Save())
	require.NoError(t, store.Reload())
	assert.True(t, store.Snapshot().HasSubject(ontology.Term("Jean")))
}
