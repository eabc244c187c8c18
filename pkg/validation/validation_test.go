package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/ontology"
)

func class(t *testing.T, name string) *ontology.Class {
	t.Helper()
	c, ok := ontology.Lookup(name)
	require.True(t, ok)
	return c
}

func TestValidateCoercesKinds(t *testing.T) {
	res := Validate(class(t, "Hébergement"), map[string]interface{}{
		"nom":      "Eco Lodge",
		"prix":     "45.5",
		"capacite": float64(12),
		"type":     "Gîte",
		"wifi":     true,
	}, true)

	require.True(t, res.Valid(), res.Error())
	assert.Equal(t, []string{"wifi"}, res.Ignored)

	prix, ok := res.Get("prix")
	require.True(t, ok)
	assert.Equal(t, 45.5, prix.Native)
	assert.Equal(t, graph.Float(45.5), prix.Term)

	capacite, ok := res.Get("capacite")
	require.True(t, ok)
	assert.Equal(t, int64(12), capacite.Native)

	typ, ok := res.Get("typeHebergement")
	require.True(t, ok)
	assert.Equal(t, "Gîte", typ.Native)
}

func TestValidateCanonicalKeyWinsOverAlias(t *testing.T) {
	res := Validate(class(t, "Transport"), map[string]interface{}{
		"nom":           "Bus",
		"type":          "alias",
		"typeTransport": "canonical",
	}, true)
	require.True(t, res.Valid())
	v, _ := res.Get("typeTransport")
	assert.Equal(t, "canonical", v.Native)
	assert.Empty(t, res.Ignored)
}

func TestValidateErrors(t *testing.T) {
	res := Validate(class(t, "Personne"), map[string]interface{}{"age": 28.5}, true)
	assert.False(t, res.Valid())
	assert.Contains(t, res.Error(), "age: must be an integer")
	assert.Contains(t, res.Error(), "nom: is required")

	res = Validate(class(t, "Personne"), map[string]interface{}{"nom": "  "}, true)
	assert.Equal(t, []string{"nom: must not be empty"}, res.Errors)

	res = Validate(class(t, "Personne"), map[string]interface{}{"nom": map[string]interface{}{}}, true)
	assert.False(t, res.Valid())
}

func TestValidateUpdateWithoutName(t *testing.T) {
	res := Validate(class(t, "Personne"), map[string]interface{}{"age": json.Number("30")}, false)
	require.True(t, res.Valid())
	age, _ := res.Get("age")
	assert.Equal(t, int64(30), age.Native)
}

func TestCoerceText(t *testing.T) {
	term, native, err := Coerce(ontology.Text, float64(2025))
	require.NoError(t, err)
	assert.Equal(t, "2025", native)
	assert.Equal(t, graph.Text("2025"), term)
}
