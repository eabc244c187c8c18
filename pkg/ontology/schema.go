package ontology

import "github.com/cayleygraph/quad"

// SchemaQuads returns the class hierarchy and property declarations of the
// ontology. `ecotour init` writes them to a new canonical file.
func SchemaQuads() []quad.Quad {
	var out []quad.Quad
	add := func(s, p, o quad.IRI) {
		out = append(out, quad.Quad{Subject: s, Predicate: p, Object: o})
	}

	seenProp := make(map[string]bool)
	for _, c := range classes {
		add(c.IRI(), RDFType, OWLClass)
		for _, sub := range c.Subclasses {
			add(Term(sub), RDFType, OWLClass)
			add(Term(sub), RDFSSubClassOf, c.IRI())
		}
		for _, a := range c.Attributes {
			if seenProp[a.Predicate] {
				continue
			}
			seenProp[a.Predicate] = true
			add(a.IRI(), RDFType, OWLDatatypeProperty)
		}
	}
	add(Term(FootprintClass), RDFType, OWLClass)
	add(Term("empreinte"), RDFType, OWLDatatypeProperty)
	for _, rel := range Relations {
		add(Term(rel), RDFType, OWLObjectProperty)
	}
	return out
}
