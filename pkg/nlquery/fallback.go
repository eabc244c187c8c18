package nlquery

import (
	"strings"

	"github.com/ha1tch/ecotour/pkg/ontology"
)

const header = "PREFIX ns: <" + ontology.Namespace + ">\n" +
	"PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>\n" +
	"PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>\n"

// fallback maps a keyword condition to a fixed read query
type fallback struct {
	name  string
	match func(q string) bool
	query string
}

func containsAll(words ...string) func(string) bool {
	return func(q string) bool {
		for _, w := range words {
			if !strings.Contains(q, w) {
				return false
			}
		}
		return true
	}
}

func containsAny(words ...string) func(string) bool {
	return func(q string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
}

func both(a, b func(string) bool) func(string) bool {
	return func(q string) bool { return a(q) && b(q) }
}

// instances matches direct instances of class and instances of its direct
// subclasses.
func instances(v, class string) string {
	return "  {\n    ?" + v + " rdf:type ns:" + class + " .\n" +
		"  } UNION {\n    ?" + v + " rdf:type ?subclass .\n    ?subclass rdfs:subClassOf ns:" + class + " .\n  }\n"
}

// fallbacks are checked in order, first match wins
var fallbacks = []fallback{
	{
		name:  "destinations",
		match: both(containsAll("destination"), containsAny("toutes", "liste")),
		query: header + `SELECT DISTINCT ?destination ?nom
WHERE {
  ?destination rdf:type/rdfs:subClassOf* ns:Destination .
  OPTIONAL { ?destination ns:nomDestination ?nom }
}`,
	},
	{
		name:  "certified-accommodations",
		match: containsAll("hébergement", "certification"),
		query: header + `SELECT DISTINCT ?hebergement ?nom ?certification
WHERE {
  ?hebergement rdf:type/rdfs:subClassOf* ns:Hébergement .
  ?hebergement ns:possèdeCertification ?cert .
  ?cert ns:nomCertification ?certification .
  OPTIONAL { ?hebergement ns:nomHebergement ?nom }
}`,
	},
	{
		name:  "eco-activities",
		match: both(containsAll("activité"), containsAny("écologique", "empreinte")),
		query: header + `SELECT DISTINCT ?activite ?nom ?empreinte
WHERE {
  ?activite rdf:type/rdfs:subClassOf* ns:ActivitéTouristique .
  ?activite ns:aEmpreinteCarbone ?ec .
  ?ec ns:empreinte ?empreinte .
  OPTIONAL { ?activite ns:nomActivité ?nom }
}
ORDER BY ?empreinte`,
	},
	{
		name:  "eco-transports",
		match: containsAll("transport", "écologique"),
		query: header + `SELECT DISTINCT ?transport ?type ?empreinte
WHERE {
  ?transport rdf:type ns:Vélo .
  OPTIONAL { ?transport ns:typeTransport ?type }
  OPTIONAL { ?transport ns:aEmpreinteCarbone ?ec .
             ?ec ns:empreinte ?empreinte }
}`,
	},
	{
		name:  "people",
		match: containsAny("personne", "voyageur", "qui"),
		query: header + "SELECT DISTINCT ?personne ?nom ?age\nWHERE {\n" + instances("personne", "Personne") +
			"  OPTIONAL { ?personne ns:nomVoyageur ?nom }\n  OPTIONAL { ?personne ns:age ?age }\n}",
	},
	{
		name:  "services",
		match: containsAny("service"),
		query: header + "SELECT DISTINCT ?service ?nom ?prix\nWHERE {\n" + instances("service", "Services") +
			"  OPTIONAL { ?service ns:nomService ?nom }\n  OPTIONAL { ?service ns:prix ?prix }\n}",
	},
	{
		name:  "certifications",
		match: containsAny("certification"),
		query: header + "SELECT DISTINCT ?certification ?nom ?date\nWHERE {\n" + instances("certification", "CertificationÉco") +
			"  OPTIONAL { ?certification ns:nomCertification ?nom }\n  OPTIONAL { ?certification ns:dateValidite ?date }\n}",
	},
	{
		name:  "food",
		match: containsAny("nourriture", "repas", "manger"),
		query: header + "SELECT DISTINCT ?nourriture ?nom\nWHERE {\n" + instances("nourriture", "Nourriture") +
			"  OPTIONAL { ?nourriture ns:nomNourriture ?nom }\n}",
	},
	{
		name:  "equipment",
		match: containsAny("équipement", "equipement", "matériel"),
		query: header + "SELECT DISTINCT ?equipement ?nom\nWHERE {\n" + instances("equipement", "Equipement") +
			"  OPTIONAL { ?equipement ns:nomEquipement ?nom }\n}",
	},
}

// FallbackQuery returns the fixed query for the first keyword rule question
// matches. Matching is case-insensitive substring presence.
func FallbackQuery(question string) (string, bool) {
	f, ok := matchFallback(question)
	return f.query, ok
}

func matchFallback(question string) (fallback, bool) {
	q := strings.ToLower(question)
	for _, f := range fallbacks {
		if f.match(q) {
			return f, true
		}
	}
	return fallback{}, false
}
