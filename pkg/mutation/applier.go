// Package mutation resolves named entities and applies create, update,
// delete and relation operations to the persisted graph.
package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/cayleygraph/quad"
	"github.com/rs/zerolog"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/events"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/journal"
	"github.com/ha1tch/ecotour/pkg/metrics"
	"github.com/ha1tch/ecotour/pkg/ontology"
	"github.com/ha1tch/ecotour/pkg/storage"
	"github.com/ha1tch/ecotour/pkg/validation"
)

// Invalidator drops cached reads after a mutation
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Origin describes where a mutation came from, for the journal
type Origin struct {
	Source   string // "nl" or "api"
	Question string
}

// Target addresses an entity either by URI or by (class, name)
type Target struct {
	URI   quad.IRI
	Class *ontology.Class
	Name  string
}

// Entity is the outcome of an entity mutation
type Entity struct {
	Type       string                 `json:"type"`
	URI        string                 `json:"uri"`
	Name       string                 `json:"nom,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Ignored    []string               `json:"ignored,omitempty"`
	Removed    int                    `json:"removed,omitempty"`
}

// Endpoint is one end of an asserted relation
type Endpoint struct {
	Type string `json:"type"`
	Name string `json:"nom"`
	URI  string `json:"uri"`
}

// Relation is the outcome of a relation assertion
type Relation struct {
	Subject  Endpoint `json:"sujet"`
	Property string   `json:"propriete"`
	Object   Endpoint `json:"objet"`
}

// Applier turns structured requests into graph changes. Every change goes
// through Store.Update, so it is persisted and reloaded before it is
// visible, and nothing changes when any step fails.
type Applier struct {
	store       *storage.Store
	journal     journal.Journal
	invalidator Invalidator
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// Option configures an Applier
type Option func(*Applier)

// WithJournal records applied mutations in j
func WithJournal(j journal.Journal) Option {
	return func(a *Applier) { a.journal = j }
}

// WithInvalidator drops cached reads after each mutation
func WithInvalidator(i Invalidator) Option {
	return func(a *Applier) { a.invalidator = i }
}

// WithPublisher broadcasts applied mutations
func WithPublisher(p events.Publisher) Option {
	return func(a *Applier) { a.publisher = p }
}

// WithMetrics counts mutations
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Applier) { a.metrics = m }
}

// NewApplier creates an applier over store
func NewApplier(store *storage.Store, logger zerolog.Logger, opts ...Option) *Applier {
	a := &Applier{store: store, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Create adds a new entity of class. It fails with Conflict when the
// derived URI already has triples or another entity of the class already
// carries the same name ignoring case.
func (a *Applier) Create(ctx context.Context, origin Origin, class *ontology.Class, attrs map[string]interface{}) (*Entity, error) {
	res := validation.Validate(class, attrs, true)
	if !res.Valid() {
		return nil, a.fail("create", apperr.New(apperr.BadRequest, "Attributs invalides: %s", res.Error()))
	}
	nameVal, _ := res.Get("nom")
	name := nameVal.Native.(string)

	iri, err := ontology.EntityIRI(name)
	if err != nil {
		return nil, a.fail("create", apperr.Wrap(apperr.BadRequest, err, fmt.Sprintf("Nom invalide: '%s'", name)))
	}

	err = a.store.Update(ctx, func(g *graph.IndexedGraph) error {
		if g.HasSubject(iri) {
			return apperr.New(apperr.Conflict, "Une entité avec le nom '%s' existe déjà", name)
		}
		if existing, ok := lookup(g, class, name, ""); ok {
			return apperr.New(apperr.Conflict, "Une entité %s nommée '%s' existe déjà (%s)", class.Name, name, existing)
		}
		g.Add(quad.Quad{Subject: iri, Predicate: ontology.RDFType, Object: class.IRI()})
		for _, v := range res.Values {
			g.Add(quad.Quad{Subject: iri, Predicate: v.Attribute.IRI(), Object: v.Term})
		}
		return nil
	})
	if err != nil {
		return nil, a.fail("create", err)
	}

	entity := &Entity{
		Type:       class.Name,
		URI:        string(iri),
		Name:       name,
		Attributes: natives(res),
		Ignored:    res.Ignored,
	}
	a.applied(ctx, origin, "create", entity.URI, class.Name, map[string]interface{}{"attributes": entity.Attributes})
	return entity, nil
}

// Update overwrites each recognised attribute of the target: every existing
// value of the predicate is removed before the new one is added. Unknown
// keys are ignored.
func (a *Applier) Update(ctx context.Context, origin Origin, target Target, attrs map[string]interface{}) (*Entity, error) {
	var entity *Entity
	err := a.store.Update(ctx, func(g *graph.IndexedGraph) error {
		iri, class, err := a.locate(g, target)
		if err != nil {
			return err
		}

		res := validation.Validate(class, attrs, false)
		if !res.Valid() {
			return apperr.New(apperr.BadRequest, "Attributs invalides: %s", res.Error())
		}
		if v, ok := res.Get("nom"); ok {
			if other, dup := lookup(g, class, v.Native.(string), iri); dup {
				return apperr.New(apperr.Conflict, "Une entité %s nommée '%s' existe déjà (%s)", class.Name, v.Native, other)
			}
		}

		for _, v := range res.Values {
			g.Remove(iri, v.Attribute.IRI(), nil)
			g.Add(quad.Quad{Subject: iri, Predicate: v.Attribute.IRI(), Object: v.Term})
		}

		entity = &Entity{
			Type:       class.Name,
			URI:        string(iri),
			Name:       nameOf(g, class, iri),
			Attributes: natives(res),
			Ignored:    res.Ignored,
		}
		return nil
	})
	if err != nil {
		return nil, a.fail("update", err)
	}

	a.applied(ctx, origin, "update", entity.URI, entity.Type, map[string]interface{}{"attributes": entity.Attributes})
	return entity, nil
}

// Delete removes every triple with the target as subject, then every
// triple with it as object.
func (a *Applier) Delete(ctx context.Context, origin Origin, target Target) (*Entity, error) {
	var entity *Entity
	err := a.store.Update(ctx, func(g *graph.IndexedGraph) error {
		iri, class, err := a.locate(g, target)
		if err != nil && !(target.URI != "" && errors.Is(err, errUnclassified)) {
			return err
		}

		entity = &Entity{URI: string(iri)}
		if class != nil {
			entity.Type = class.Name
			entity.Name = nameOf(g, class, iri)
		}
		entity.Removed = g.Remove(iri, nil, nil)
		entity.Removed += g.Remove(nil, nil, iri)
		return nil
	})
	if err != nil {
		return nil, a.fail("delete", err)
	}

	a.applied(ctx, origin, "delete", entity.URI, entity.Type, map[string]interface{}{"removed": entity.Removed})
	return entity, nil
}

// Relate resolves both ends by name and asserts subject -relation-> object.
// The canonical file is reloaded first to pick up external edits. The
// relation is not checked against the ontology and duplicates are harmless.
func (a *Applier) Relate(ctx context.Context, origin Origin, subject Target, relation string, object Target) (*Relation, error) {
	if err := a.store.Reload(); err != nil {
		return nil, a.fail("relation", err)
	}
	if relation == "" || subject.Class == nil || object.Class == nil {
		return nil, a.fail("relation", apperr.New(apperr.BadRequest, "Relation, type du sujet et type de l'objet requis"))
	}

	var rel *Relation
	err := a.store.Update(ctx, func(g *graph.IndexedGraph) error {
		s, err := Resolve(g, subject.Class, subject.Name)
		if err != nil {
			return apperr.Wrap(apperr.NotFound, err, fmt.Sprintf("Entité sujet '%s' non trouvée", subject.Name))
		}
		o, err := Resolve(g, object.Class, object.Name)
		if err != nil {
			return apperr.Wrap(apperr.NotFound, err, fmt.Sprintf("Entité objet '%s' non trouvée", object.Name))
		}
		g.Add(quad.Quad{Subject: s, Predicate: ontology.Term(relation), Object: o})

		rel = &Relation{
			Subject:  Endpoint{Type: subject.Class.Name, Name: subject.Name, URI: string(s)},
			Property: relation,
			Object:   Endpoint{Type: object.Class.Name, Name: object.Name, URI: string(o)},
		}
		return nil
	})
	if err != nil {
		return nil, a.fail("relation", err)
	}

	a.applied(ctx, origin, "relation", rel.Subject.URI, rel.Subject.Type, map[string]interface{}{
		"relation": relation,
		"object":   rel.Object.URI,
	})
	return rel, nil
}

var errUnclassified = errors.New("entity has no known class")

// locate finds the target in g. URI targets must have at least one triple
// as subject; named targets are resolved within their class.
func (a *Applier) locate(g *graph.IndexedGraph, t Target) (quad.IRI, *ontology.Class, error) {
	if t.URI == "" {
		if t.Class == nil {
			return "", nil, apperr.New(apperr.BadRequest, "Type d'entité requis")
		}
		iri, err := Resolve(g, t.Class, t.Name)
		if err != nil {
			return "", nil, err
		}
		return iri, t.Class, nil
	}

	if !g.HasSubject(t.URI) {
		return "", nil, apperr.New(apperr.NotFound, "Entité non trouvée: %s", t.URI)
	}
	class, ok := ClassOf(g, t.URI)
	if !ok {
		return t.URI, nil, apperr.Wrap(apperr.BadRequest, errUnclassified, fmt.Sprintf("Type de l'entité %s non pris en charge", t.URI))
	}
	return t.URI, class, nil
}

func natives(res validation.Result) map[string]interface{} {
	out := make(map[string]interface{}, len(res.Values))
	for _, v := range res.Values {
		out[v.Attribute.Key] = v.Native
	}
	return out
}

func (a *Applier) fail(action string, err error) error {
	a.metrics.RecordMutation(action, err)
	a.logger.Debug().Err(err).Str("action", action).Str("kind", apperr.KindOf(err).String()).Msg("Mutation rejected")
	return err
}

// applied runs the post-commit side effects. Their failures are logged and
// never undo the committed change.
func (a *Applier) applied(ctx context.Context, origin Origin, action, subject, class string, details map[string]interface{}) {
	a.metrics.RecordMutation(action, nil)
	a.metrics.SetTriples(a.store.Snapshot().Len())

	if a.invalidator != nil {
		a.invalidator.Invalidate(ctx)
	}

	entry := journal.Entry{
		Action:   action,
		Source:   origin.Source,
		Subject:  subject,
		Class:    class,
		Question: origin.Question,
		Details:  details,
	}
	if a.journal != nil {
		recorded, err := a.journal.Append(ctx, entry)
		if err != nil {
			a.logger.Error().Err(err).Str("action", action).Msg("Failed to journal mutation")
		} else {
			entry = recorded
		}
	}
	if a.publisher != nil {
		a.publisher.Publish(entry)
	}

	a.logger.Info().
		Str("action", action).
		Str("source", origin.Source).
		Str("subject", subject).
		Str("class", class).
		Msg("Mutation applied")
}
