// Package ontology holds the static vocabulary of the eco-tourism ontology:
// entity classes, their canonical name predicate, the recognised scalar
// attributes and their value kinds. Creation, update, extraction prompts,
// catalog queries and validation all read this one table.
package ontology

import (
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/voc/rdf"
	"github.com/cayleygraph/quad/voc/rdfs"
)

// Namespace is the ontology namespace every class, property and individual lives in.
const Namespace = "http://www.semanticweb.org/lenovo/ontologies/2025/9/untitled-ontology-2#"

// Well-known vocabulary IRIs
var (
	RDFType        = quad.IRI(rdf.Type).Full()
	RDFSSubClassOf = quad.IRI(rdfs.SubClassOf).Full()
)

const (
	OWLClass            = quad.IRI("http://www.w3.org/2002/07/owl#Class")
	OWLObjectProperty   = quad.IRI("http://www.w3.org/2002/07/owl#ObjectProperty")
	OWLDatatypeProperty = quad.IRI("http://www.w3.org/2002/07/owl#DatatypeProperty")
)

// Prefixes are the query prefixes every generated query declares.
var Prefixes = map[string]string{
	"ns":   Namespace,
	"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"owl":  "http://www.w3.org/2002/07/owl#",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
}

// Term returns the IRI of a local name in the ontology namespace.
func Term(local string) quad.IRI {
	return quad.IRI(Namespace + local)
}

// Kind is the value type of a scalar attribute.
type Kind int

const (
	Text Kind = iota
	Int
	Float
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case Int:
		return "integer"
	case Float:
		return "float"
	default:
		return "text"
	}
}

// Attribute maps a user-facing key to a datatype predicate.
type Attribute struct {
	Key       string
	Predicate string
	Kind      Kind
	Aliases   []string
}

// IRI returns the predicate IRI.
func (a Attribute) IRI() quad.IRI { return Term(a.Predicate) }

// Join is a read-only field reached through an object property, e.g. the
// carbon footprint of an activity.
type Join struct {
	Field string
	Path  []string
	Kind  Kind
}

// Class describes one entity class.
type Class struct {
	Name          string
	Label         string
	Endpoint      string
	NamePredicate string
	Attributes    []Attribute
	Joins         []Join
	Subclasses    []string
	Aliases       []string
	Description   string
}

// IRI returns the class IRI.
func (c *Class) IRI() quad.IRI { return Term(c.Name) }

// NameIRI returns the canonical name predicate IRI.
func (c *Class) NameIRI() quad.IRI { return Term(c.NamePredicate) }

// Attribute looks up a recognised attribute by key or alias.
func (c *Class) Attribute(key string) (Attribute, bool) {
	for _, a := range c.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	for _, a := range c.Attributes {
		for _, alias := range a.Aliases {
			if alias == key {
				return a, true
			}
		}
	}
	return Attribute{}, false
}

func nameAttr(predicate string) Attribute {
	return Attribute{Key: "nom", Predicate: predicate, Kind: Text, Aliases: []string{"name"}}
}

var footprint = Join{Field: "empreinte", Path: []string{"aEmpreinteCarbone", "empreinte"}, Kind: Float}

var classes = []*Class{
	{
		Name: "Destination", Label: "Destination", Endpoint: "destinations",
		NamePredicate: "nomDestination",
		Attributes: []Attribute{
			nameAttr("nomDestination"),
			{Key: "pays", Predicate: "pays", Kind: Text, Aliases: []string{"country"}},
		},
		Subclasses:  []string{"DestinationUrbaine", "DestinationRurale", "DestinationCotière", "DestinationInsulaire", "DestinationMontagneuse"},
		Aliases:     []string{"destinations", "lieu", "ville", "pays"},
		Description: "pays, villes, lieux",
	},
	{
		Name: "Hébergement", Label: "Hébergement", Endpoint: "hebergements",
		NamePredicate: "nomHebergement",
		Attributes: []Attribute{
			nameAttr("nomHebergement"),
			{Key: "prix", Predicate: "prix", Kind: Float, Aliases: []string{"price"}},
			{Key: "capacite", Predicate: "capacite", Kind: Int, Aliases: []string{"capacité", "capacity"}},
			{Key: "typeHebergement", Predicate: "typeHebergement", Kind: Text, Aliases: []string{"type"}},
		},
		Joins:       []Join{{Field: "certification", Path: []string{"possèdeCertification", "nomCertification"}, Kind: Text}},
		Subclasses:  []string{"Hôtel", "Camping", "Maison_d_hôtes", "Village_vacances"},
		Aliases:     []string{"accommodation", "hotel", "hôtel"},
		Description: "hôtels, auberges, campings",
	},
	{
		Name: "ActivitéTouristique", Label: "Activité Touristique", Endpoint: "activites",
		NamePredicate: "nomActivité",
		Attributes: []Attribute{
			nameAttr("nomActivité"),
			{Key: "prix", Predicate: "prix", Kind: Float, Aliases: []string{"price"}},
			{Key: "duree", Predicate: "duree", Kind: Int, Aliases: []string{"durée", "duration"}},
		},
		Joins:       []Join{footprint},
		Subclasses:  []string{"Randonnée", "Camping_écologique", "Visite_de_musées", "Excursions_en_montagne", "Excursions_en_désert"},
		Aliases:     []string{"activite", "activité", "activity"},
		Description: "surf, randonnée, plongée, ski, kayak, escalade",
	},
	{
		Name: "Transport", Label: "Transport", Endpoint: "transports",
		NamePredicate: "nomTransport",
		Attributes: []Attribute{
			nameAttr("nomTransport"),
			{Key: "typeTransport", Predicate: "typeTransport", Kind: Text, Aliases: []string{"type"}},
		},
		Joins:       []Join{footprint},
		Subclasses:  []string{"Train", "Taxi", "Vélo"},
		Aliases:     []string{"transports"},
		Description: "bus, taxi, bateau, jet-ski, téléphérique, train",
	},
	{
		Name: "Personne", Label: "Personne", Endpoint: "personnes",
		NamePredicate: "nomVoyageur",
		Attributes: []Attribute{
			nameAttr("nomVoyageur"),
			{Key: "age", Predicate: "age", Kind: Int, Aliases: []string{"âge"}},
		},
		Subclasses:  []string{"Voyageur", "GuideTouristique", "Chauffeur", "Organisateur"},
		Aliases:     []string{"person", "people", "voyageur", "touriste"},
		Description: "voyageurs, touristes",
	},
	{
		Name: "Services", Label: "Services", Endpoint: "services",
		NamePredicate: "nomService",
		Attributes: []Attribute{
			nameAttr("nomService"),
			{Key: "prix", Predicate: "prix", Kind: Float, Aliases: []string{"price"}},
		},
		Subclasses:  []string{"AgenceVoyage", "ServiceGuide", "AssuranceVoyage", "ServiceAdditionnel"},
		Aliases:     []string{"service"},
		Description: "wifi, spa, restaurant",
	},
	{
		Name: "Nourriture", Label: "Nourriture", Endpoint: "nourritures",
		NamePredicate: "nomNourriture",
		Attributes:    []Attribute{nameAttr("nomNourriture")},
		Subclasses:    []string{"PetitDejeuner", "Diner", "Buffet", "Snack", "FastFood", "Cafeteria"},
		Aliases:       []string{"food", "repas"},
		Description:   "plats, boissons",
	},
	{
		Name: "Equipement", Label: "Equipement", Endpoint: "equipements",
		NamePredicate: "nomEquipement",
		Attributes:    []Attribute{nameAttr("nomEquipement")},
		Subclasses:    []string{"Valise", "Materiel_de_camping", "EquipementSecurite"},
		Aliases:       []string{"équipement", "equipment", "matériel"},
		Description:   "matériel, outils",
	},
	{
		Name: "CertificationÉco", Label: "Certification Éco", Endpoint: "certifications",
		NamePredicate: "nomCertification",
		Attributes: []Attribute{
			nameAttr("nomCertification"),
			{Key: "dateValidite", Predicate: "dateValidite", Kind: Text, Aliases: []string{"date"}},
		},
		Subclasses:  []string{"CertificationISO14001", "CertificationInternationale", "CertificationLocale", "CertificationNationale", "CertificationSectorielle"},
		Aliases:     []string{"certification", "label"},
		Description: "labels écologiques",
	},
}

// FootprintClass holds carbon footprint nodes; it has no CRUD surface.
const FootprintClass = "EmpreinteCarbone"

// Relations are the object properties of the ontology, in prompt order.
var Relations = []string{
	"choisitDestination", "séjourneDans", "participeÀ", "utilise", "fournit",
	"consomme", "possèdeEquipement", "propose", "contient", "estSituéÀ",
	"aPourLieu", "possèdeCertification", "aEmpreinteCarbone", "nécessite",
	"estAttribuéeÀ",
}

// Classes returns the entity classes in canonical order.
func Classes() []*Class {
	out := make([]*Class, len(classes))
	copy(out, classes)
	return out
}

// ClassNames returns the canonical class names, used as the entity-type enum.
func ClassNames() []string {
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = c.Name
	}
	return names
}

// Lookup finds a class by name, label or alias. Comparison ignores case,
// accents, spaces and underscores so "ActiviteTouristique", "activité
// touristique" and "Activity" all resolve.
func Lookup(name string) (*Class, bool) {
	key := foldKey(name)
	if key == "" {
		return nil, false
	}
	for _, c := range classes {
		if foldKey(c.Name) == key || foldKey(c.Label) == key {
			return c, true
		}
	}
	for _, c := range classes {
		for _, alias := range c.Aliases {
			if foldKey(alias) == key {
				return c, true
			}
		}
	}
	return nil, false
}

// ByEndpoint finds the class served under /api/{endpoint}.
func ByEndpoint(endpoint string) (*Class, bool) {
	for _, c := range classes {
		if c.Endpoint == endpoint {
			return c, true
		}
	}
	return nil, false
}

// ByIRI finds the class whose IRI is iri or lists iri as a subclass.
func ByIRI(iri quad.IRI) (*Class, bool) {
	local := strings.TrimPrefix(string(iri), Namespace)
	if local == string(iri) {
		return nil, false
	}
	for _, c := range classes {
		if c.Name == local {
			return c, true
		}
	}
	for _, c := range classes {
		for _, sub := range c.Subclasses {
			if sub == local {
				return c, true
			}
		}
	}
	return nil, false
}

func foldKey(s string) string {
	s = Fold(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
