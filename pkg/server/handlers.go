package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/go-chi/chi/v5"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/config"
	"github.com/ha1tch/ecotour/pkg/graph"
	"github.com/ha1tch/ecotour/pkg/models"
	"github.com/ha1tch/ecotour/pkg/mutation"
	"github.com/ha1tch/ecotour/pkg/ontology"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.Health{
		Status:   "ok",
		Version:  config.Version,
		Executor: s.executor.Name(),
		Triples:  s.store.Snapshot().Len(),
		AI:       s.pipeline.AIAvailable(),
	})
}

// handleVersion returns server version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": config.Version,
	})
}

// handleStats counts classes, properties and typed individuals
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Stats(s.store.Snapshot()))
}

// Stats counts the declared classes and properties of g and the
// individuals typed with a declared class.
func Stats(g *graph.IndexedGraph) models.Stats {
	classes := make(map[quad.Value]bool)
	for _, c := range g.Subjects(ontology.RDFType, ontology.OWLClass) {
		classes[c] = true
	}

	properties := make(map[quad.Value]bool)
	for _, kind := range []quad.IRI{ontology.OWLObjectProperty, ontology.OWLDatatypeProperty} {
		for _, p := range g.Subjects(ontology.RDFType, kind) {
			properties[p] = true
		}
	}

	individuals := make(map[quad.Value]bool)
	for _, q := range g.Match(nil, ontology.RDFType, nil) {
		if classes[q.Object] {
			individuals[q.Subject] = true
		}
	}

	return models.Stats{
		Classes:     len(classes),
		Properties:  len(properties),
		Individuals: len(individuals),
		Triples:     g.Len(),
	}
}

// handleCatalog lists the entities of the class served under endpoint
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	endpoint := chi.URLParam(r, "endpoint")
	class, ok := ontology.ByEndpoint(endpoint)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Ressource inconnue: "+endpoint)
		return
	}

	records, err := s.catalog.List(r.Context(), class)
	if err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleQuery runs an ad hoc read query
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "JSON invalide")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "Requête SPARQL requise")
		return
	}

	res, err := s.executor.Query(r.Context(), req.Query)
	if err != nil {
		s.writeFailure(w, r, apperr.Wrap(apperr.BadRequest, err, ""), nil)
		return
	}

	results := res.Records()
	s.writeJSON(w, http.StatusOK, models.QueryResponse{
		Success: true,
		Results: results,
		Count:   len(results),
	})
}

// handleNLQuery answers a natural language question
func (s *Server) handleNLQuery(w http.ResponseWriter, r *http.Request) {
	available := s.pipeline.AIAvailable()

	var req models.NLQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeFailure(w, r, apperr.New(apperr.BadRequest, "JSON invalide"), &available)
		return
	}

	answer, err := s.pipeline.Answer(r.Context(), req.Question, req.WantsAI())
	if err != nil {
		s.writeFailure(w, r, err, &available)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

// handleEntityCreate creates an entity from {type, attributes}
func (s *Server) handleEntityCreate(w http.ResponseWriter, r *http.Request) {
	var req models.EntityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "JSON invalide")
		return
	}
	if req.Type == "" || req.Attributes["nom"] == nil {
		s.writeError(w, http.StatusBadRequest, "Type d'entité et nom requis")
		return
	}

	class, ok := ontology.Lookup(req.Type)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Type d'entité inconnu: "+req.Type)
		return
	}

	origin := mutation.Origin{Source: "api"}
	entity, err := s.applier.Create(r.Context(), origin, class, req.Attributes)
	if err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}

	s.writeJSON(w, http.StatusCreated, models.EntityResponse{
		Success: true,
		Message: class.Name + " '" + entity.Name + "' créé avec succès",
		URI:     entity.URI,
		Ignored: entity.Ignored,
	})
}

// handleEntityUpdate overwrites attributes of the entity at {uri}
func (s *Server) handleEntityUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.EntityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "JSON invalide")
		return
	}
	if req.URI == "" {
		s.writeError(w, http.StatusBadRequest, "URI de l'entité requise")
		return
	}

	origin := mutation.Origin{Source: "api"}
	entity, err := s.applier.Update(r.Context(), origin, mutation.Target{URI: quad.IRI(req.URI)}, req.Attributes)
	if err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}

	s.writeJSON(w, http.StatusOK, models.EntityResponse{
		Success: true,
		Message: "Entité mise à jour avec succès",
		URI:     entity.URI,
		Ignored: entity.Ignored,
	})
}

// handleEntityDelete removes the entity at {uri}
func (s *Server) handleEntityDelete(w http.ResponseWriter, r *http.Request) {
	var req models.EntityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "JSON invalide")
		return
	}
	if req.URI == "" {
		s.writeError(w, http.StatusBadRequest, "URI de l'entité requise")
		return
	}

	origin := mutation.Origin{Source: "api"}
	entity, err := s.applier.Delete(r.Context(), origin, mutation.Target{URI: quad.IRI(req.URI)})
	if err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}

	s.writeJSON(w, http.StatusOK, models.EntityResponse{
		Success: true,
		Message: "Entité supprimée avec succès",
		URI:     entity.URI,
	})
}

// handleReload re-parses the canonical file
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reload(); err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}
	s.catalog.Invalidate(r.Context())

	triples := s.store.Snapshot().Len()
	s.metrics.SetTriples(triples)
	s.logger.Info().Int("triples", triples).Msg("Ontology reloaded on request")

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"triples": triples,
	})
}

// handleJournal lists recent mutations, newest first
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, "Journal désactivé")
		return
	}

	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "Paramètre limit invalide")
			return
		}
		if n > maxJournalLimit {
			n = maxJournalLimit
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
