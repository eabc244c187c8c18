// Package extract turns a classified question into a structured write record
// by asking the text generation oracle for a small JSON object.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ha1tch/ecotour/pkg/apperr"
	"github.com/ha1tch/ecotour/pkg/intent"
	"github.com/ha1tch/ecotour/pkg/ontology"
	"github.com/ha1tch/ecotour/pkg/oracle"
)

// ErrMalformed is wrapped by every parse or shape failure of an oracle answer
var ErrMalformed = errors.New("malformed extraction")

// Extractor calls the oracle once per request and validates its answer
type Extractor struct {
	oracle oracle.Oracle
	logger zerolog.Logger
}

// New creates an extractor
func New(o oracle.Oracle, logger zerolog.Logger) *Extractor {
	if o == nil {
		o = oracle.Disabled{}
	}
	return &Extractor{oracle: o, logger: logger}
}

// Available reports whether an oracle is configured
func (e *Extractor) Available() bool { return e.oracle.Available() }

// Extract asks the oracle to structure question for a write intent.
// Oracle failures are OracleUnavailable; anything wrong with the answer is
// BadRequest carrying a suggested phrasing.
func (e *Extractor) Extract(ctx context.Context, in intent.Intent, question string) (Record, error) {
	if !in.IsWrite() {
		return nil, fmt.Errorf("no extraction for %s intent", in)
	}
	if !e.oracle.Available() {
		return nil, apperr.Wrap(apperr.OracleUnavailable, oracle.ErrUnavailable,
			"Le service d'IA n'est pas configuré: les opérations d'écriture en langage naturel sont indisponibles")
	}

	answer, err := e.oracle.Generate(ctx, Prompt(in, question))
	if err != nil {
		return nil, apperr.Wrap(apperr.OracleUnavailable, err, fmt.Sprintf("Le service d'IA n'a pas répondu: %v", err))
	}
	e.logger.Debug().Str("intent", in.String()).Str("answer", answer).Msg("Oracle extraction")

	rec, err := Parse(in, answer)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, err, fmt.Sprintf("Impossible d'extraire les informations: %v", err)).
			WithSuggestion(Suggestion(in))
	}
	return rec, nil
}

// GenerateQuery asks the oracle for a SELECT answering question.
func (e *Extractor) GenerateQuery(ctx context.Context, question string) (string, error) {
	if !e.oracle.Available() {
		return "", oracle.ErrUnavailable
	}
	answer, err := e.oracle.Generate(ctx, QueryPrompt(question))
	if err != nil {
		return "", err
	}
	q := CleanQuery(answer)
	if q == "" {
		return "", fmt.Errorf("%w: empty query", ErrMalformed)
	}
	return q, nil
}

var (
	sparqlFence  = regexp.MustCompile("(?s)```sparql\\s*\\n(.*?)```")
	genericFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")
)

// CleanQuery extracts the query from a fenced oracle answer.
func CleanQuery(answer string) string {
	answer = strings.TrimSpace(answer)
	if m := sparqlFence.FindStringSubmatch(answer); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericFence.FindStringSubmatch(answer); m != nil {
		return strings.TrimSpace(m[1])
	}
	return answer
}

// StripFences removes markdown code fence markers around a JSON answer.
func StripFences(answer string) string {
	s := strings.TrimSpace(answer)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// decodeObject decodes exactly one JSON object from text. Numbers are kept
// as json.Number so attribute coercion sees the original lexical form.
func decodeObject(text string, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing content after JSON object", ErrMalformed)
	}
	return nil
}

type createShape struct {
	Type       *string                `json:"type"`
	Attributes map[string]interface{} `json:"attributes"`
}

type namedShape struct {
	Type       *string                `json:"type"`
	Nom        interface{}            `json:"nom"`
	Attributes map[string]interface{} `json:"attributes"`
}

type relationShape struct {
	SujetType *string     `json:"sujet_type"`
	SujetNom  interface{} `json:"sujet_nom"`
	Relation  *string     `json:"relation"`
	ObjetType *string     `json:"objet_type"`
	ObjetNom  interface{} `json:"objet_nom"`
}

// Parse validates an oracle answer into the record of intent in.
func Parse(in intent.Intent, answer string) (Record, error) {
	text := StripFences(answer)
	if !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}

	switch in {
	case intent.Create:
		var s createShape
		if err := decodeObject(text, &s); err != nil {
			return nil, err
		}
		class, err := classField("type", s.Type)
		if err != nil {
			return nil, err
		}
		if s.Attributes == nil {
			return nil, fmt.Errorf("%w: missing field attributes", ErrMalformed)
		}
		name, err := nameField("attributes.nom", s.Attributes["nom"])
		if err != nil {
			return nil, err
		}
		s.Attributes["nom"] = name
		return &CreateRecord{Class: class, Attributes: s.Attributes}, nil

	case intent.Update, intent.Delete:
		var s namedShape
		if err := decodeObject(text, &s); err != nil {
			return nil, err
		}
		class, err := classField("type", s.Type)
		if err != nil {
			return nil, err
		}
		name, err := nameField("nom", s.Nom)
		if err != nil {
			return nil, err
		}
		if in == intent.Delete {
			return &DeleteRecord{Class: class, Name: name}, nil
		}
		if len(s.Attributes) == 0 {
			return nil, fmt.Errorf("%w: missing field attributes", ErrMalformed)
		}
		return &UpdateRecord{Class: class, Name: name, Attributes: s.Attributes}, nil

	case intent.Relation:
		var s relationShape
		if err := decodeObject(text, &s); err != nil {
			return nil, err
		}
		subjectClass, err := classField("sujet_type", s.SujetType)
		if err != nil {
			return nil, err
		}
		subjectName, err := nameField("sujet_nom", s.SujetNom)
		if err != nil {
			return nil, err
		}
		objectClass, err := classField("objet_type", s.ObjetType)
		if err != nil {
			return nil, err
		}
		objectName, err := nameField("objet_nom", s.ObjetNom)
		if err != nil {
			return nil, err
		}
		relation, err := relationField(s.Relation)
		if err != nil {
			return nil, err
		}
		return &RelationRecord{
			SubjectClass: subjectClass,
			SubjectName:  subjectName,
			Relation:     relation,
			ObjectClass:  objectClass,
			ObjectName:   objectName,
		}, nil
	}
	return nil, fmt.Errorf("no extraction for %s intent", in)
}

func classField(field string, v *string) (*ontology.Class, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, fmt.Errorf("%w: missing field %s", ErrMalformed, field)
	}
	class, ok := ontology.Lookup(*v)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q in %s", ErrMalformed, *v, field)
	}
	return class, nil
}

func nameField(field string, v interface{}) (string, error) {
	switch n := v.(type) {
	case nil:
		return "", fmt.Errorf("%w: missing field %s", ErrMalformed, field)
	case string:
		if strings.TrimSpace(n) == "" {
			return "", fmt.Errorf("%w: empty field %s", ErrMalformed, field)
		}
		return strings.TrimSpace(n), nil
	case json.Number:
		return n.String(), nil
	default:
		return "", fmt.Errorf("%w: field %s must be a string", ErrMalformed, field)
	}
}

func relationField(v *string) (string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", fmt.Errorf("%w: missing field relation", ErrMalformed)
	}
	rel := strings.TrimSpace(strings.TrimPrefix(*v, "ns:"))
	if strings.ContainsAny(rel, " \t\n<>\"{}|^`\\#") {
		return "", fmt.Errorf("%w: invalid relation %q", ErrMalformed, *v)
	}
	return rel, nil
}
