// Package nlquery answers natural language questions: it classifies the
// question, then either runs a read query (oracle generated, or from the
// keyword fallback table) or extracts a structured write and applies it.
package nlquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/extract"
	"github.com/ha1tch/ecotour/pkg/intent"
	"github.com/ha1tch/ecotour/pkg/metrics"
	"github.com/ha1tch/ecotour/pkg/models"
	"github.com/ha1tch/ecotour/pkg/mutation"
	"github.com/ha1tch/ecotour/pkg/storage"
)

// Read methods reported in answers
const (
	MethodOracle  = "oracle"
	MethodKeyword = "keyword-matching"
)

const unrecognized = "Question non comprise. Essayez des questions sur les destinations, hébergements, activités, transports, personnes, services, nourritures, équipements ou certifications."

// Pipeline dispatches one question per call
type Pipeline struct {
	extractor *extract.Extractor
	applier   *mutation.Applier
	executor  storage.Executor
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New creates a pipeline. m may be nil.
func New(extractor *extract.Extractor, applier *mutation.Applier, executor storage.Executor, m *metrics.Metrics, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		applier:   applier,
		executor:  executor,
		metrics:   m,
		logger:    logger,
	}
}

// AIAvailable reports whether an oracle is configured
func (p *Pipeline) AIAvailable() bool {
	return p.extractor.Available()
}

// Answer handles question. It returns a *models.ReadAnswer for reads and a
// *models.WriteAnswer for writes.
func (p *Pipeline) Answer(ctx context.Context, question string, useAI bool) (interface{}, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperr.New(apperr.BadRequest, "Question requise")
	}

	in := intent.Classify(question)
	p.metrics.RecordIntent(in.String())
	p.logger.Debug().Str("intent", in.String()).Str("question", question).Msg("Question classified")

	if !in.IsWrite() {
		return p.read(ctx, question, useAI)
	}

	rec, err := p.extractor.Extract(ctx, in, question)
	if err != nil {
		return nil, err
	}
	return p.write(ctx, question, rec)
}

func (p *Pipeline) read(ctx context.Context, question string, useAI bool) (*models.ReadAnswer, error) {
	available := p.AIAvailable()

	if useAI && available {
		query, err := p.extractor.GenerateQuery(ctx, question)
		if err == nil {
			answer, qerr := p.run(ctx, question, query, MethodOracle, available)
			if qerr == nil {
				return answer, nil
			}
			err = qerr
		}
		p.logger.Warn().Err(err).Str("question", question).Msg("Oracle read failed, using keyword fallback")
	}

	f, ok := matchFallback(question)
	if !ok {
		return nil, apperr.New(apperr.Unrecognized, unrecognized)
	}
	p.logger.Debug().Str("fallback", f.name).Msg("Keyword fallback matched")
	return p.run(ctx, question, f.query, MethodKeyword, available)
}

func (p *Pipeline) run(ctx context.Context, question, query, method string, available bool) (*models.ReadAnswer, error) {
	res, err := p.executor.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, err, "")
	}
	p.metrics.RecordRead(method)

	results := res.Records()
	return &models.ReadAnswer{
		Success:     true,
		Question:    question,
		SPARQL:      query,
		Method:      method,
		AIAvailable: available,
		Results:     results,
		Count:       len(results),
	}, nil
}

func (p *Pipeline) write(ctx context.Context, question string, rec extract.Record) (*models.WriteAnswer, error) {
	origin := mutation.Origin{Source: "nl", Question: question}

	switch r := rec.(type) {
	case *extract.CreateRecord:
		e, err := p.applier.Create(ctx, origin, r.Class, r.Attributes)
		if err != nil {
			return nil, err
		}
		return &models.WriteAnswer{
			Success: true,
			Action:  "create",
			Message: fmt.Sprintf("%s '%s' créé avec succès", r.Class.Name, e.Name),
			Entity:  e,
		}, nil

	case *extract.UpdateRecord:
		e, err := p.applier.Update(ctx, origin, mutation.Target{Class: r.Class, Name: r.Name}, r.Attributes)
		if err != nil {
			return nil, err
		}
		return &models.WriteAnswer{
			Success: true,
			Action:  "update",
			Message: fmt.Sprintf("%s '%s' modifié avec succès", r.Class.Name, r.Name),
			Entity:  e,
		}, nil

	case *extract.DeleteRecord:
		if _, err := p.applier.Delete(ctx, origin, mutation.Target{Class: r.Class, Name: r.Name}); err != nil {
			return nil, err
		}
		return &models.WriteAnswer{
			Success: true,
			Action:  "delete",
			Message: fmt.Sprintf("%s '%s' supprimé avec succès", r.Class.Name, r.Name),
		}, nil

	case *extract.RelationRecord:
		rel, err := p.applier.Relate(ctx, origin,
			mutation.Target{Class: r.SubjectClass, Name: r.SubjectName},
			r.Relation,
			mutation.Target{Class: r.ObjectClass, Name: r.ObjectName})
		if err != nil {
			return nil, err
		}
		return &models.WriteAnswer{
			Success:  true,
			Action:   "add_relation",
			Message:  fmt.Sprintf("Relation ajoutée: '%s' %s '%s'", r.SubjectName, r.Relation, r.ObjectName),
			Relation: rel,
		}, nil
	}
	return nil, apperr.New(apperr.Internal, "unsupported record %T", rec)
}
