package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/ecotour/pkg/cache"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/metrics"
	"github.com/ha1tch/ecotour/pkg/mutation"
	"github.com/ha1tch/ecotour/pkg/ontology"
	"github.com/ha1tch/ecotour/pkg/storage"
)

type source struct{ g *graph.IndexedGraph }

func (s *source) Snapshot() *graph.IndexedGraph { return s.g }

func add(g *graph.IndexedGraph, s quad.IRI, p string, o quad.Value) {
	g.Add(quad.Quad{Subject: s, Predicate: ontology.Term(p), Object: o})
}

func typed(g *graph.IndexedGraph, s quad.IRI, class string) {
	g.Add(quad.Quad{Subject: s, Predicate: ontology.RDFType, Object: ontology.Term(class)})
}

func fixture() *graph.IndexedGraph {
	g := graph.NewIndexedGraph()
	g.AddAll(ontology.SchemaQuads())

	lodge := ontology.Term("Eco_Lodge")
	typed(g, lodge, "Hébergement")
	add(g, lodge, "nomHebergement", graph.Text("Eco Lodge"))
	add(g, lodge, "prix", graph.Float(80))
	add(g, lodge, "capacite", graph.Text("beaucoup"))
	add(g, lodge, "possèdeCertification", ontology.Term("Green_Key"))
	add(g, lodge, "possèdeCertification", ontology.Term("EU_Ecolabel"))

	typed(g, ontology.Term("Green_Key"), "CertificationÉco")
	add(g, ontology.Term("Green_Key"), "nomCertification", graph.Text("Green Key"))
	typed(g, ontology.Term("EU_Ecolabel"), "CertificationÉco")
	add(g, ontology.Term("EU_Ecolabel"), "nomCertification", graph.Text("EU Ecolabel"))

	camp := ontology.Term("Camping_du_Lac")
	typed(g, camp, "Camping")
	add(g, camp, "nomHebergement", graph.Text("Camping du Lac"))
	add(g, camp, "capacite", graph.Int(40))

	hike := ontology.Term("Randonnee_Atlas")
	typed(g, hike, "Randonnée")
	add(g, hike, "nomActivité", graph.Text("Randonnée Atlas"))
	add(g, hike, "duree", graph.Int(6))
	add(g, hike, "aEmpreinteCarbone", ontology.Term("E1"))
	typed(g, ontology.Term("E1"), ontology.FootprintClass)
	add(g, ontology.Term("E1"), "empreinte", graph.Float(1.5))
	return g
}

func TestQueryShape(t *testing.T) {
	c, _ := ontology.Lookup("Activité")
	q := Query(c)
	assert.Contains(t, q, "?entity rdf:type/rdfs:subClassOf* ns:ActivitéTouristique")
	assert.Contains(t, q, "OPTIONAL { ?entity ns:nomActivité ?nom . }")
	assert.Contains(t, q, "OPTIONAL { ?entity ns:aEmpreinteCarbone/ns:empreinte ?empreinte . }")
}

func TestListDeduplicatesAndCoerces(t *testing.T) {
	exec := storage.NewLocalExecutor(&source{g: fixture()}, ontology.Prefixes)
	cat := New(exec, nil, nil, zerolog.Nop())

	class, _ := ontology.Lookup("Hébergement")
	records, err := cat.List(context.Background(), class)
	require.NoError(t, err)
	require.Len(t, records, 2)

	lodge := records[0]
	assert.Equal(t, ontology.Namespace+"Eco_Lodge", lodge["uri"])
	assert.Equal(t, "Eco Lodge", lodge["nom"])
	assert.Equal(t, "Hébergement", lodge["type"])
	assert.Equal(t, float64(80), lodge["prix"])
	assert.Nil(t, lodge["capacite"])
	assert.Equal(t, "Green Key", lodge["certification"])
	assert.Nil(t, lodge["typeHebergement"])

	camp := records[1]
	assert.Equal(t, "Camping du Lac", camp["nom"])
	assert.Equal(t, int64(40), camp["capacite"])
	assert.Nil(t, camp["certification"])
}

func TestListJoinsFootprint(t *testing.T) {
	exec := storage.NewLocalExecutor(&source{g: fixture()}, ontology.Prefixes)
	cat := New(exec, nil, nil, zerolog.Nop())

	class, _ := ontology.Lookup("ActivitéTouristique")
	records, err := cat.List(context.Background(), class)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1.5, records[0]["empreinte"])
	assert.Equal(t, int64(6), records[0]["duree"])
	assert.Equal(t, "Activité Touristique", records[0]["type"])
}

func TestListEmptyClass(t *testing.T) {
	exec := storage.NewLocalExecutor(&source{g: fixture()}, ontology.Prefixes)
	cat := New(exec, nil, nil, zerolog.Nop())

	class, _ := ontology.Lookup("Equipement")
	records, err := cat.List(context.Background(), class)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestListCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	src := &source{g: fixture()}
	m := metrics.New()
	cat := New(storage.NewLocalExecutor(src, ontology.Prefixes), cache.NewMemoryCache(16, time.Minute), m, zerolog.Nop())

	class, _ := ontology.Lookup("Personne")
	records, err := cat.List(ctx, class)
	require.NoError(t, err)
	assert.Empty(t, records)

	paul := ontology.Term("Paul")
	typed(src.g, paul, "Personne")
	add(src.g, paul, "nomVoyageur", graph.Text("Paul"))

	records, err = cat.List(ctx, class)
	require.NoError(t, err)
	assert.Empty(t, records, "served from cache")

	cat.Invalidate(ctx)
	records, err = cat.List(ctx, class)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Paul", records[0]["nom"])
}

// interleaving runs hook once, after the wrapped query has read its
// snapshot and before the caller receives the result
type interleaving struct {
	storage.Executor
	hook func()
}

func (e *interleaving) Query(ctx context.Context, query string) (*storage.Result, error) {
	res, err := e.Executor.Query(ctx, query)
	if hook := e.hook; hook != nil {
		e.hook = nil
		hook()
	}
	return res, err
}

func TestListDoesNotCacheAcrossMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.nt")
	g := graph.NewIndexedGraph()
	g.AddAll(ontology.SchemaQuads())
	require.NoError(t, g.Save(path))

	store, err := storage.Open(path, zerolog.Nop())
	require.NoError(t, err)

	exec := &interleaving{Executor: storage.NewLocalExecutor(store, ontology.Prefixes)}
	cat := New(exec, cache.NewMemoryCache(16, time.Minute), nil, zerolog.Nop())
	applier := mutation.NewApplier(store, zerolog.Nop(), mutation.WithInvalidator(cat))
	person, _ := ontology.Lookup("Personne")

	exec.hook = func() {
		_, err := applier.Create(context.Background(), mutation.Origin{Source: "test"}, person,
			map[string]interface{}{"nom": "Paul", "age": 28})
		require.NoError(t, err)
	}

	// the in-flight listing predates the create
	records, err := cat.List(context.Background(), person)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = cat.List(context.Background(), person)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Paul", records[0]["nom"])
	assert.Equal(t, int64(28), records[0]["age"])
}
