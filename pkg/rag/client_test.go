package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fsdm-chat-go/internal/config"
	"fsdm-chat-go/pkg/answer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.RAGConfig{BaseURL: srv.URL, QueryPath: "/query", Timeout: 2 * time.Second}
	return NewClient(cfg), srv
}

// unreachableClient points at a server that has already been shut down.
func unreachableClient(t *testing.T) Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return NewClient(config.RAGConfig{BaseURL: url, QueryPath: "/query", Timeout: time.Second})
}

func TestQuery_RequestShape(t *testing.T) {
	var gotQuestion, gotContentType, gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuestion = body["question"]
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	})

	resp, err := client.Query(context.Background(), "Quels masters ?")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/query", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Quels masters ?", gotQuestion)
}

func TestGenerateBotResponse_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"X","sources":["A","B"],"confidence":0.87}`))
	})

	got := client.GenerateBotResponse(context.Background(), "question")
	assert.Equal(t, "X\n\n📚 Sources consultées :\n• A\n• B\n\n🎯 Confiance : 87%", got)

	parsed := answer.Parse(got)
	assert.Equal(t, "X", parsed.MainText)
	assert.Equal(t, []string{"A", "B"}, parsed.Sources)
	require.NotNil(t, parsed.ConfidencePercent)
	assert.Equal(t, 87, *parsed.ConfidencePercent)
}

func TestGenerateBotResponse_EmptyAnswer(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":""}`))
	})
	assert.Equal(t, answer.NoAnswerText, client.GenerateBotResponse(context.Background(), "q"))
}

func TestGenerateBotResponse_AnswerOnly(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"Réponse simple","sources":[]}`))
	})
	assert.Equal(t, "Réponse simple", client.GenerateBotResponse(context.Background(), "q"))
}

func TestGenerateBotResponse_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"answer":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			assert.Equal(t, Fallback("Bonjour"), client.GenerateBotResponse(context.Background(), "Bonjour"))
			assert.Equal(t, UnavailableReply, client.GenerateBotResponse(context.Background(), "Quels masters ?"))

			_, err := client.Query(context.Background(), "q")
			assert.Error(t, err)
		})
	}
}

func TestGenerateBotResponse_Unreachable(t *testing.T) {
	client := unreachableClient(t)
	assert.NotPanics(t, func() {
		got := client.GenerateBotResponse(context.Background(), "Merci beaucoup")
		assert.Equal(t, Fallback("merci"), got)
	})
}

func TestGenerateBotResponse_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"answer":"trop tard"}`))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(config.RAGConfig{BaseURL: srv.URL, QueryPath: "/query", Timeout: 20 * time.Millisecond})

	assert.Equal(t, UnavailableReply, client.GenerateBotResponse(context.Background(), "question"))
}

func TestTestConnection(t *testing.T) {
	var probe string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		probe = body["question"]
		_, _ = w.Write([]byte(`{"answer":"pong"}`))
	})
	assert.True(t, client.TestConnection(context.Background()))
	assert.Equal(t, "test", probe)

	failing, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.False(t, failing.TestConnection(context.Background()))

	assert.False(t, unreachableClient(t).TestConnection(context.Background()))
}
