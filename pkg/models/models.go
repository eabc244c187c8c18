// Package models holds the request and response bodies of the HTTP API.
package models

// QueryRequest is the body of POST /api/query
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse lists the rows of an ad hoc query. Values are lexical forms,
// unbound variables are null.
type QueryResponse struct {
	Success bool                     `json:"success"`
	Results []map[string]interface{} `json:"results"`
	Count   int                      `json:"count"`
}

// NLQueryRequest is the body of POST /api/nl-query. UseAI defaults to true.
type NLQueryRequest struct {
	Question string `json:"question"`
	UseAI    *bool  `json:"use_ai,omitempty"`
}

// WantsAI reports whether the oracle may be used to answer a read
func (r NLQueryRequest) WantsAI() bool {
	return r.UseAI == nil || *r.UseAI
}

// ReadAnswer answers a natural language read
type ReadAnswer struct {
	Success     bool                     `json:"success"`
	Question    string                   `json:"question"`
	SPARQL      string                   `json:"sparql"`
	Method      string                   `json:"method"`
	AIAvailable bool                     `json:"ai_available"`
	Results     []map[string]interface{} `json:"results"`
	Count       int                      `json:"count"`
}

// WriteAnswer reports an applied natural language write. Exactly one of
// Entity and Relation is set for create, update and relation actions.
type WriteAnswer struct {
	Success  bool        `json:"success"`
	Action   string      `json:"action"`
	Message  string      `json:"message"`
	Entity   interface{} `json:"entity,omitempty"`
	Relation interface{} `json:"relation,omitempty"`
}

// EntityRequest is the body of the direct entity endpoints
type EntityRequest struct {
	Type       string                 `json:"type,omitempty"`
	URI        string                 `json:"uri,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// EntityResponse reports a direct entity mutation
type EntityResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	URI     string   `json:"uri,omitempty"`
	Ignored []string `json:"ignored,omitempty"`
}

// Failure is the body of every error response
type Failure struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Suggestion  string `json:"suggestion,omitempty"`
	AIAvailable *bool  `json:"ai_available,omitempty"`
}

// Stats counts the ontology content
type Stats struct {
	Classes     int `json:"classes"`
	Properties  int `json:"properties"`
	Individuals int `json:"individuals"`
	Triples     int `json:"triples"`
}

// Health is the liveness body
type Health struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Executor string `json:"executor,omitempty"`
	Triples  int    `json:"triples"`
	AI       bool   `json:"ai_available"`
}
