package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/rs/zerolog"
)

// RemoteExecutor sends queries to a SPARQL protocol endpoint. When a query
// fails remotely it is retried once on Fallback, if set.
type RemoteExecutor struct {
	Endpoint string
	Client   *http.Client
	Fallback Executor
	logger   zerolog.Logger
}

// NewRemoteExecutor creates a remote executor
func NewRemoteExecutor(endpoint string, client *http.Client, logger zerolog.Logger) *RemoteExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteExecutor{Endpoint: endpoint, Client: client, logger: logger}
}

// Name returns the executor name
func (e *RemoteExecutor) Name() string { return "remote" }

// Query runs query remotely, falling back to the local graph on failure
func (e *RemoteExecutor) Query(ctx context.Context, query string) (*Result, error) {
	res, err := e.query(ctx, query)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil || e.Fallback == nil {
		return nil, err
	}

	e.logger.Warn().Err(err).Str("endpoint", e.Endpoint).Msg("Remote query failed, falling back to local graph")
	return e.Fallback.Query(ctx, query)
}

type sparqlJSON struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
}

type sparqlTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func (t sparqlTerm) value() quad.Value {
	switch t.Type {
	case "uri":
		return quad.IRI(t.Value)
	case "bnode":
		return quad.BNode(t.Value)
	}
	switch {
	case t.Lang != "":
		return quad.LangString{Value: quad.String(t.Value), Lang: t.Lang}
	case t.Datatype != "" && t.Datatype != "http://www.w3.org/2001/XMLSchema#string":
		return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}
	}
	return quad.String(t.Value)
}

func (e *RemoteExecutor) query(ctx context.Context, query string) (*Result, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded sparqlJSON
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode results: %v", ErrRemote, err)
	}

	res := &Result{Vars: decoded.Head.Vars, Rows: make([]Row, 0, len(decoded.Results.Bindings))}
	for _, b := range decoded.Results.Bindings {
		row := make(Row, len(b))
		for name, term := range b {
			row[name] = term.value()
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Ping probes a remote endpoint; only a 200 response counts as available.
func Ping(ctx context.Context, pingURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned status %d", ErrRemote, resp.StatusCode)
	}
	return nil
}
