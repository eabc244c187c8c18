package nlquery

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/extract"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/models"
	"github.com/ha1tch/ecotour/pkg/mutation"
	"github.com/ha1tch/ecotour/pkg/ontology"
	"github.com/ha1tch/ecotour/pkg/oracle"
	"github.com/ha1tch/ecotour/pkg/storage"
)

// scripted answers prompts in order
type scripted struct {
	mu      sync.Mutex
	answers []string
	prompts []string
}

func (s *scripted) generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return "", errors.New("no scripted answer left")
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func setupPipeline(t *testing.T, o oracle.Oracle) (*Pipeline, *storage.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ontology.nt")

	g := graph.NewIndexedGraph()
	g.AddAll(ontology.SchemaQuads())
	require.NoError(t, g.Save(path))

	store, err := storage.Open(path, zerolog.Nop())
	require.NoError(t, err)

	p := New(
		extract.New(o, zerolog.Nop()),
		mutation.NewApplier(store, zerolog.Nop()),
		storage.NewLocalExecutor(store, ontology.Prefixes),
		nil,
		zerolog.Nop(),
	)
	return p, store
}

func read(t *testing.T, p *Pipeline, question string, useAI bool) *models.ReadAnswer {
	t.Helper()
	out, err := p.Answer(context.Background(), question, useAI)
	require.NoError(t, err, question)
	answer, ok := out.(*models.ReadAnswer)
	require.True(t, ok, "expected a read answer, got %T", out)
	return answer
}

func write(t *testing.T, p *Pipeline, question string) *models.WriteAnswer {
	t.Helper()
	out, err := p.Answer(context.Background(), question, true)
	require.NoError(t, err, question)
	answer, ok := out.(*models.WriteAnswer)
	require.True(t, ok, "expected a write answer, got %T", out)
	return answer
}

func TestPaulScenario(t *testing.T) {
	o := &scripted{answers: []string{
		"```json\n{\"type\": \"Personne\", \"attributes\": {\"nom\": \"Paul\", \"age\": 28}}\n```",
		`{"type": "Destination", "attributes": {"nom": "Paris", "pays": "France"}}`,
		`{"type": "Personne", "nom": "paul", "attributes": {"age": 30}}`,
		`{"sujet_type": "Personne", "sujet_nom": "Paul", "relation": "choisitDestination", "objet_type": "Destination", "objet_nom": "Paris"}`,
		`{"type": "Personne", "nom": "Paul"}`,
	}}
	p, store := setupPipeline(t, oracle.Func(o.generate))

	created := write(t, p, "Ajoute une personne Paul qui a 28 ans")
	assert.Equal(t, "create", created.Action)
	entity := created.Entity.(*mutation.Entity)
	assert.Equal(t, ontology.Namespace+"Paul", entity.URI)

	write(t, p, "Ajoute la destination Paris en France")

	updated := write(t, p, "Modifie l'âge de Paul à 30 ans")
	assert.Equal(t, "update", updated.Action)

	people := read(t, p, "Liste les personnes", false)
	assert.Equal(t, MethodKeyword, people.Method)
	assert.True(t, people.AIAvailable)
	require.Equal(t, 1, people.Count)
	assert.Equal(t, "Paul", people.Results[0]["nom"])
	assert.Equal(t, "30", people.Results[0]["age"])

	related := write(t, p, "Paul va à Paris")
	assert.Equal(t, "add_relation", related.Action)
	rel := related.Relation.(*mutation.Relation)
	assert.Equal(t, ontology.Namespace+"Paris", rel.Object.URI)
	assert.True(t, store.Snapshot().Contains(ontology.Term("Paul"), ontology.Term("choisitDestination"), ontology.Term("Paris")))

	deleted := write(t, p, "Supprime la personne Paul")
	assert.Equal(t, "delete", deleted.Action)
	assert.Nil(t, deleted.Entity)

	people = read(t, p, "Liste les personnes", false)
	assert.Equal(t, 0, people.Count)
	assert.Empty(t, store.Snapshot().Match(nil, nil, ontology.Term("Paul")))

	require.Len(t, o.prompts, 5)
	assert.Contains(t, o.prompts[0], "Ajoute une personne Paul qui a 28 ans")
}

func TestWritesNeedOracle(t *testing.T) {
	p, store := setupPipeline(t, nil)
	before := store.Snapshot().Len()

	for _, q := range []string{
		"Ajoute une personne Paul",
		"Supprime la personne Paul",
		"Modifie l'âge de Paul à 30 ans",
		"Paul va à Paris",
	} {
		_, err := p.Answer(context.Background(), q, true)
		assert.Equal(t, apperr.OracleUnavailable, apperr.KindOf(err), q)
	}
	assert.Equal(t, before, store.Snapshot().Len())
}

func TestMalformedExtractionCarriesSuggestion(t *testing.T) {
	o := &scripted{answers: []string{"Je ne sais pas"}}
	p, _ := setupPipeline(t, oracle.Func(o.generate))

	_, err := p.Answer(context.Background(), "Ajoute une personne", true)
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	assert.NotEmpty(t, apperr.SuggestionOf(err))
}

func TestResolutionFailureIsNotFound(t *testing.T) {
	o := &scripted{answers: []string{`{"type": "Personne", "nom": "Pierre"}`}}
	p, _ := setupPipeline(t, oracle.Func(o.generate))

	_, err := p.Answer(context.Background(), "Supprime la personne Pierre", true)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "Entité 'Pierre' de type Personne non trouvée", err.Error())
}

func TestUnrecognizedQuestion(t *testing.T) {
	p, _ := setupPipeline(t, nil)

	_, err := p.Answer(context.Background(), "Quel temps fait-il ?", true)
	assert.Equal(t, apperr.Unrecognized, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Question non comprise")
	assert.False(t, p.AIAvailable())

	_, err = p.Answer(context.Background(), "   ", true)
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
}

func TestOracleRead(t *testing.T) {
	o := &scripted{answers: []string{
		"```sparql\nPREFIX ns: <" + ontology.Namespace + ">\nSELECT ?s WHERE { ?s a ns:Destination }\n```",
	}}
	p, store := setupPipeline(t, oracle.Func(o.generate))
	require.NoError(t, store.Update(context.Background(), func(g *graph.IndexedGraph) error {
		g.Add(quad.Quad{Subject: ontology.Term("Paris"), Predicate: ontology.RDFType, Object: ontology.Term("Destination")})
		return nil
	}))

	answer := read(t, p, "Quelles sont les villes ?", true)
	assert.Equal(t, MethodOracle, answer.Method)
	assert.True(t, strings.HasPrefix(answer.SPARQL, "PREFIX ns:"))
	require.Equal(t, 1, answer.Count)
	assert.Equal(t, ontology.Namespace+"Paris", answer.Results[0]["s"])
}

func TestOracleReadFallsBack(t *testing.T) {
	o := &scripted{answers: []string{"SELECT WHERE {"}}
	p, _ := setupPipeline(t, oracle.Func(o.generate))

	answer := read(t, p, "Liste toutes les destinations", true)
	assert.Equal(t, MethodKeyword, answer.Method)
	assert.Equal(t, 0, answer.Count)

	// the oracle has no answer left, generation fails
	answer = read(t, p, "Quels services ?", true)
	assert.Equal(t, MethodKeyword, answer.Method)
}

func TestEcoActivitiesSortedByFootprint(t *testing.T) {
	p, store := setupPipeline(t, nil)
	require.NoError(t, store.Update(context.Background(), func(g *graph.IndexedGraph) error {
		for _, a := range []struct {
			name string
			fp   float64
		}{{"Kayak", 12}, {"Randonnee", 3}, {"Ski", 45.5}} {
			iri := ontology.Term(a.name)
			ec := ontology.Term("EC_" + a.name)
			g.Add(quad.Quad{Subject: iri, Predicate: ontology.RDFType, Object: ontology.Term("Randonnée")})
			g.Add(quad.Quad{Subject: iri, Predicate: ontology.Term("nomActivité"), Object: graph.Text(a.name)})
			g.Add(quad.Quad{Subject: iri, Predicate: ontology.Term("aEmpreinteCarbone"), Object: ec})
			g.Add(quad.Quad{Subject: ec, Predicate: ontology.Term("empreinte"), Object: graph.Float(a.fp)})
		}
		return nil
	}))

	answer := read(t, p, "Quelles activités ont la plus faible empreinte ?", false)
	require.Equal(t, 3, answer.Count)
	var names []interface{}
	for _, r := range answer.Results {
		names = append(names, r["nom"])
	}
	assert.Equal(t, []interface{}{"Randonnee", "Kayak", "Ski"}, names)
}
