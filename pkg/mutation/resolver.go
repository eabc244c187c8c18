package mutation

import (
	"fmt"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/ontology"
)

// NotFoundError carries the (type, name) pair that did not resolve
type NotFoundError struct {
	Class string
	Name  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Entité '%s' de type %s non trouvée", e.Name, e.Class)
}

// Resolve returns the first entity typed exactly class whose name matches
// name case-insensitively. Subclass instances are not considered.
func Resolve(g *graph.IndexedGraph, class *ontology.Class, name string) (quad.IRI, error) {
	if iri, ok := lookup(g, class, name, ""); ok {
		return iri, nil
	}
	nf := &NotFoundError{Class: class.Name, Name: name}
	return "", apperr.Wrap(apperr.NotFound, nf, "")
}

// lookup scans the instances of class in graph order, skipping except.
func lookup(g *graph.IndexedGraph, class *ontology.Class, name string, except quad.IRI) (quad.IRI, bool) {
	want := strings.TrimSpace(name)
	if want == "" {
		return "", false
	}
	for _, s := range g.Subjects(ontology.RDFType, class.IRI()) {
		iri, ok := s.(quad.IRI)
		if !ok || iri == except {
			continue
		}
		for _, o := range g.Objects(iri, class.NameIRI()) {
			if strings.EqualFold(graph.Lexical(o), want) {
				return iri, true
			}
		}
	}
	return "", false
}

// ClassOf returns the schema class of an existing entity from its rdf:type
// triples, accepting subclass types.
func ClassOf(g *graph.IndexedGraph, iri quad.IRI) (*ontology.Class, bool) {
	for _, t := range g.Objects(iri, ontology.RDFType) {
		if ti, ok := t.(quad.IRI); ok {
			if c, ok := ontology.ByIRI(ti); ok {
				return c, true
			}
		}
	}
	return nil, false
}

// nameOf returns the first name predicate value of iri
func nameOf(g *graph.IndexedGraph, class *ontology.Class, iri quad.IRI) string {
	for _, o := range g.Objects(iri, class.NameIRI()) {
		return graph.Lexical(o)
	}
	return ""
}
