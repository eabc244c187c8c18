package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "gemini-2.5-flash", 0, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDisabled(t *testing.T) {
	var o Oracle = Disabled{}
	assert.False(t, o.Available())
	_, err := o.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFunc(t *testing.T) {
	var o Oracle = Func(func(_ context.Context, prompt string) (string, error) {
		return "echo: " + prompt, nil
	})
	require.True(t, o.Available())
	out, err := o.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: " {\"type\": "}, {Text: "\"Personne\"} "}}},
		}},
	}
	assert.Equal(t, `{"type": "Personne"}`, responseText(resp))
}

func TestNewOpenAIRequiresKeyOrURL(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{Model: "gpt-4o-mini"}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = NewOpenAI(OpenAIConfig{APIKey: "sk-test"}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenAIGenerate(t *testing.T) {
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"local",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":" {\"type\": \"Personne\"} "},"finish_reason":"stop"}]}`)
	}))
	defer ts.Close()

	o, err := NewOpenAI(OpenAIConfig{BaseURL: ts.URL + "/v1", Model: "local"}, nil, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, o.Available())

	out, err := o.Generate(context.Background(), "Ajoute Paul")
	require.NoError(t, err)
	assert.Equal(t, `{"type": "Personne"}`, out)
	assert.Contains(t, body, "Ajoute Paul")
	assert.Contains(t, body, `"model":"local"`)
}

func TestOpenAIGenerateFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer ts.Close()

	o, err := NewOpenAI(OpenAIConfig{BaseURL: ts.URL, Model: "local"}, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = o.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
}
