package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeProvider returns a server that answers chat completions with the
// given content and records the last request body.
func newFakeProvider(t *testing.T, content string, lastReq *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "/chat/completions", r.URL.Path)

		require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAI_GenerateSQL(t *testing.T) {
	var got chatRequest
	srv := newFakeProvider(t, "SELECT * FROM Track LIMIT 5", &got)
	defer srv.Close()

	client := NewOpenAI("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	sql, err := client.GenerateSQL(context.Background(), Request{
		Question: "first five tracks",
		Schema:   "- Track(TrackId INTEGER, Name NVARCHAR(200))",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM Track LIMIT 5", sql)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Schema:")
	assert.Contains(t, got.Messages[1].Content, "Question: first five tracks")
	assert.NotContains(t, got.Messages[1].Content, "History")
}

func TestOpenAI_GenerateSQL_IncludesHistory(t *testing.T) {
	var got chatRequest
	srv := newFakeProvider(t, "SELECT 1", &got)
	defer srv.Close()

	client := NewOpenAI("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	_, err := client.GenerateSQL(context.Background(), Request{
		Question: "and the next five?",
		Schema:   "- Track(TrackId INTEGER)",
		History:  "Turn 1:\nQ: first five tracks\nSQL: SELECT * FROM Track LIMIT 5",
	})
	require.NoError(t, err)
	assert.Contains(t, got.Messages[1].Content, "History (use for context if relevant):")
	assert.Contains(t, got.Messages[1].Content, "first five tracks")
}

func TestOpenAI_GenerateSQL_StripsFences(t *testing.T) {
	var got chatRequest
	srv := newFakeProvider(t, "```sql\nSELECT * FROM Album\n```", &got)
	defer srv.Close()

	client := NewOpenAI("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	sql, err := client.GenerateSQL(context.Background(), Request{Question: "albums"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM Album", sql)
}

func TestOpenAI_Explain(t *testing.T) {
	var got chatRequest
	srv := newFakeProvider(t, "Norway generated the highest revenue.", &got)
	defer srv.Close()

	client := NewOpenAI("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	out, err := client.Explain(context.Background(), ExplainRequest{
		Question: "Top countries by revenue",
		SQL:      "SELECT BillingCountry FROM Invoice",
		Preview:  `[["Norway",13.86]]`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Norway generated the highest revenue.", out)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	assert.Contains(t, got.Messages[1].Content, "Preview rows:")
}

func TestOpenAI_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewOpenAI("sk-bad", "gpt-4o-mini", WithBaseURL(srv.URL))
	_, err := client.GenerateSQL(context.Background(), Request{Question: "anything"})
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Contains(t, perr.Message, "Incorrect API key")
}

func TestOpenAI_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewOpenAI("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := client.GenerateSQL(context.Background(), Request{Question: "slow"})
	require.Error(t, err)

	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAI("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	_, err := client.GenerateSQL(context.Background(), Request{Question: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAI_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	ok := NewOpenAI("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	require.NoError(t, ok.Ping(context.Background()))

	bad := NewOpenAI("sk-wrong", "gpt-4o-mini", WithBaseURL(srv.URL))
	err := bad.Ping(context.Background())
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"```sql\nSELECT 1", "SELECT 1"},
		{"  SELECT 1;  ", "SELECT 1;"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}
