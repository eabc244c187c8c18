package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ns = "http://example.org/ns#"

func iri(local string) quad.IRI { return quad.IRI(ns + local) }

func sampleGraph() *IndexedGraph {
	g := NewIndexedGraph()
	g.Add(quad.Quad{Subject: iri("Paul"), Predicate: iri("type"), Object: iri("Personne")})
	g.Add(quad.Quad{Subject: iri("Paul"), Predicate: iri("nom"), Object: quad.String("Paul")})
	g.Add(quad.Quad{Subject: iri("Paul"), Predicate: iri("age"), Object: Int(28)})
	g.Add(quad.Quad{Subject: iri("Paul"), Predicate: iri("choisit"), Object: iri("Paris")})
	g.Add(quad.Quad{Subject: iri("Paris"), Predicate: iri("type"), Object: iri("Destination")})
	return g
}

func TestAddIsIdempotent(t *testing.T) {
	g := sampleGraph()
	assert.False(t, g.Add(quad.Quad{Subject: iri("Paul"), Predicate: iri("nom"), Object: quad.String("Paul")}))
	assert.Equal(t, 5, g.Len())
}

func TestMatchWildcardsInInsertionOrder(t *testing.T) {
	g := sampleGraph()

	paul := g.Match(iri("Paul"), nil, nil)
	require.Len(t, paul, 4)
	assert.Equal(t, iri("type"), paul[0].Predicate)
	assert.Equal(t, iri("choisit"), paul[3].Predicate)

	typed := g.Match(nil, iri("type"), nil)
	require.Len(t, typed, 2)
	assert.Equal(t, iri("Paul"), typed[0].Subject)
	assert.Equal(t, iri("Paris"), typed[1].Subject)

	assert.Empty(t, g.Match(iri("Nobody"), nil, nil))
	assert.Len(t, g.Match(nil, nil, nil), 5)
}

func TestRemovePattern(t *testing.T) {
	g := sampleGraph()

	assert.Equal(t, 1, g.Remove(nil, nil, iri("Paris")))
	assert.False(t, g.Contains(iri("Paul"), iri("choisit"), iri("Paris")))
	assert.Equal(t, 3, g.Remove(iri("Paul"), nil, nil))
	assert.False(t, g.HasSubject(iri("Paul")))
	assert.Equal(t, 1, g.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	g := sampleGraph()
	c := g.Clone()
	c.Remove(iri("Paul"), nil, nil)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, 1, c.Len())
}

func TestEncodeDecodeKeepsDatatypes(t *testing.T) {
	g := sampleGraph()
	g.Add(quad.Quad{Subject: iri("Eco_Lodge"), Predicate: iri("nom"), Object: quad.String(`Gîte "vert"`)})
	g.Add(quad.Quad{Subject: iri("Eco_Lodge"), Predicate: iri("prix"), Object: Float(45.5)})

	var buf bytes.Buffer
	require.NoError(t, g.Encode(&buf))

	back := NewIndexedGraph()
	require.NoError(t, back.Decode(&buf))
	assert.Equal(t, g.Quads(), back.Quads())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	g := NewIndexedGraph()
	err := g.Decode(bytes.NewBufferString("this is not n-triples\n"))
	assert.ErrorIs(t, err, ErrParse)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data", "graph.nt")

	g := sampleGraph()
	require.NoError(t, g.Save(file))
	_, err := os.Stat(file + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, g.Quads(), loaded.Quads())

	missing, err := Load(filepath.Join(dir, "missing.nt"))
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Len())
}

func TestNumericHelpers(t *testing.T) {
	n, ok := AsInt(Int(28))
	assert.True(t, ok)
	assert.Equal(t, int64(28), n)

	n, ok = AsInt(quad.TypedString{Value: "28.0", Type: XSDFloat})
	assert.True(t, ok)
	assert.Equal(t, int64(28), n)

	_, ok = AsInt(quad.String("vingt"))
	assert.False(t, ok)

	f, ok := AsFloat(Float(45.5))
	assert.True(t, ok)
	assert.Equal(t, 45.5, f)

	assert.True(t, IsNumeric(Float(1)))
	assert.False(t, IsNumeric(quad.String("1")))
	assert.Equal(t, "Paul", Lexical(quad.String("Paul")))
	assert.Equal(t, ns+"Paul", Lexical(iri("Paul")))
}
