package ontology

import (
	"errors"
	"strings"

	"github.com/cayleygraph/quad"
)

// ErrEmptyName is returned when a name normalizes to nothing.
var ErrEmptyName = errors.New("name is empty after normalization")

var accents = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"É", "E", "È", "E", "Ê", "E", "Ë", "E",
	"à", "a", "â", "a", "ä", "a",
	"À", "A", "Â", "A", "Ä", "A",
	"î", "i", "ï", "i", "Î", "I", "Ï", "I",
	"ô", "o", "ö", "o", "Ô", "O", "Ö", "O",
	"ù", "u", "û", "u", "ü", "u",
	"Ù", "U", "Û", "U", "Ü", "U",
	"ç", "c", "Ç", "C",
)

// characters N-Triples does not allow inside an IRI reference
const iriUnsafe = "'’\"<>{}|\\^`"

// Transliterate replaces the fixed set of accented characters with their
// unaccented forms.
func Transliterate(s string) string {
	return accents.Replace(s)
}

// Fold lower-cases and transliterates s, the comparison form used by lookups.
func Fold(s string) string {
	return strings.ToLower(Transliterate(strings.TrimSpace(s)))
}

// NormalizeName turns a raw entity name into the local part of its IRI:
// whitespace runs collapse to one underscore, apostrophes are dropped and
// accented characters are transliterated.
func NormalizeName(name string) string {
	local := strings.Join(strings.Fields(name), "_")
	local = strings.Map(func(r rune) rune {
		if strings.ContainsRune(iriUnsafe, r) {
			return -1
		}
		return r
	}, local)
	return Transliterate(local)
}

// EntityIRI derives the deterministic IRI of an individual from its name.
// Individuals share the ontology namespace, so equal normalized names
// collide regardless of class.
func EntityIRI(name string) (quad.IRI, error) {
	local := NormalizeName(name)
	if local == "" {
		return "", ErrEmptyName
	}
	return Term(local), nil
}
