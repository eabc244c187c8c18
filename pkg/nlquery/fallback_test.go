package nlquery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackTable(t *testing.T) {
	tests := []struct {
		question string
		selects  string
	}{
		{"Liste toutes les destinations", "?destination ?nom"},
		{"Quels hébergements ont une certification ?", "?hebergement ?nom ?certification"},
		{"Activités écologiques", "?activite ?nom ?empreinte"},
		{"Quels transports écologiques ?", "?transport ?type ?empreinte"},
		{"Qui voyage ?", "?personne ?nom ?age"},
		{"Liste des voyageurs", "?personne ?nom ?age"},
		{"Quels services sont proposés ?", "?service ?nom ?prix"},
		{"Quelles certifications existent ?", "?certification ?nom ?date"},
		{"Où manger ?", "?nourriture ?nom"},
		{"Le matériel disponible", "?equipement ?nom"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			q, ok := FallbackQuery(tt.question)
			require.True(t, ok)
			assert.Contains(t, q, "SELECT DISTINCT "+tt.selects+"\n")
		})
	}
}

func TestFallbackOrder(t *testing.T) {
	// accommodations with certification win over certifications alone
	q, ok := FallbackQuery("hébergement avec certification")
	require.True(t, ok)
	assert.Contains(t, q, "?hebergement")

	// destinations need a listing word
	_, ok = FallbackQuery("destination préférée")
	assert.False(t, ok)

	q, ok = FallbackQuery("destination préférée des voyageurs")
	require.True(t, ok)
	assert.Contains(t, q, "?personne")
}

func TestFallbackDeterministic(t *testing.T) {
	first, ok := FallbackQuery("LISTE TOUTES LES DESTINATIONS")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, _ := FallbackQuery("liste toutes les destinations")
		assert.Equal(t, first, again)
	}
	assert.True(t, strings.HasPrefix(first, "PREFIX ns:"))
}
