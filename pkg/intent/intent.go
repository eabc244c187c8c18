// Package intent classifies a natural language question into the operation
// it asks for.
package intent

import "strings"

// Intent is the operation a question asks for
type Intent int

const (
	Read Intent = iota
	Create
	Update
	Delete
	Relation
)

// String returns the action name used in responses and metrics
func (i Intent) String() string {
	switch i {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Relation:
		return "relation"
	default:
		return "read"
	}
}

// IsWrite reports whether the intent mutates the graph
func (i Intent) IsWrite() bool { return i != Read }

// Keywords are matched as substrings of the lower-cased question padded with
// one space on each side. Entries with surrounding spaces only match whole
// words.
var (
	relationKeywords = []string{
		" va à ", " va a ", " visite ", " choisit ", " séjourne dans ", " sejourne dans ",
		" utilise ", "possede", "possède", " a la certification", " a une certification",
		" goes to ", " visits ", " chooses ", " stays at ", " stays in ", " uses ",
		" has the certification", " has certification",
	}
	createKeywords = []string{
		"ajouter", "ajoute", "créer", "crée", "nouveau", "nouvelle",
		" add ", " create ", " new ",
	}
	deleteKeywords = []string{
		"supprimer", "supprime", "effacer", "efface", "retirer", "retire",
		" delete ", " remove ", " erase ",
	}
	updateKeywords = []string{
		"modifier", "modifie", "changer", "change", "mettre à jour", "update",
		" modify ", " set ",
	}
)

// rules in priority order
var rules = []struct {
	intent   Intent
	keywords []string
}{
	{Relation, relationKeywords},
	{Create, createKeywords},
	{Delete, deleteKeywords},
	{Update, updateKeywords},
}

// Classify returns the intent of question. Relation beats Create, Create
// beats Delete, Delete beats Update; anything else is a Read.
func Classify(question string) Intent {
	q := " " + strings.ToLower(question) + " "
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.intent
			}
		}
	}
	return Read
}
