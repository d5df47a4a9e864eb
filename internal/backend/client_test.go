package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ragchat-console/internal/dto"
	"ragchat-console/internal/pkg/logger"
	"ragchat-console/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthority(t *testing.T, token string) *session.Authority {
	t.Helper()
	store, err := session.NewStore(session.DriverFile,
		session.WithTokenFile(filepath.Join(t.TempDir(), "token")))
	require.NoError(t, err)
	a := session.NewAuthority(store)
	if token != "" {
		require.NoError(t, a.Set(context.Background(), token))
	}
	return a
}

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *session.Authority) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a := newTestAuthority(t, token)
	return NewClient(srv.URL, 5*time.Second, a, logger.Nop()), a
}

func TestQuerySendsTokenVerbatim(t *testing.T) {
	var gotAuth string
	var gotBody dto.QueryRequest

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/query", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(dto.QueryResponse{
			Answer:          "X is Y",
			KeywordMetadata: "doc1",
			KeywordContext:  "full passage",
		})
	})

	c, _ := newTestClient(t, handler, "raw-token")
	res, err := c.Query(context.Background(), "What is X?", "openai")
	require.NoError(t, err)

	assert.Equal(t, "raw-token", gotAuth, "token must be sent verbatim, no Bearer scheme")
	assert.Equal(t, dto.QueryRequest{Text: "What is X?", Model: "openai"}, gotBody)
	assert.Equal(t, "X is Y", res.Answer)
	assert.Equal(t, "doc1", res.KeywordMetadata)
	assert.Equal(t, "full passage", res.KeywordContext)
	assert.Empty(t, res.SemanticMetadata)
}

func TestAuthenticatedCallsRequireSession(t *testing.T) {
	var hits int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	})

	c, _ := newTestClient(t, handler, "")

	_, err := c.Query(context.Background(), "hi", "gemini")
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = c.UploadedDocuments(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	err = c.DeleteDocument(context.Background(), "a.pdf")
	assert.ErrorIs(t, err, session.ErrNoSession)

	assert.Equal(t, 0, hits, "no request may leave the client without a session")
}

func TestUnauthorizedEvictsSessionOnEveryEndpoint(t *testing.T) {
	calls := []func(c *Client) error{
		func(c *Client) error { _, err := c.Query(context.Background(), "hi", "gemini"); return err },
		func(c *Client) error { _, err := c.UploadedDocuments(context.Background()); return err },
		func(c *Client) error { return c.DeleteDocument(context.Background(), "a.pdf") },
	}

	for i, call := range calls {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Invalid token"})
		})
		c, a := newTestClient(t, handler, "stale-token")

		err := call(c)
		assert.ErrorIs(t, err, ErrSessionExpired, "call %d", i)

		_, ok := a.Current(context.Background())
		assert.False(t, ok, "call %d must evict the session", i)
	}
}

func TestStructuredFailureCarriesBodyDetail(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"message field", `{"message":"upload broke"}`, "upload broke"},
		{"detail field", `{"detail":"Only PDF files are allowed"}`, "Only PDF files are allowed"},
		{"no known field", `{"oops":true}`, "request failed"},
		{"not json", `<html>boom</html>`, "request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			})
			c, a := newTestClient(t, handler, "tok")

			_, err := c.Query(context.Background(), "hi", "gemini")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)

			// A server error is not an auth failure: the session survives.
			_, ok := a.Current(context.Background())
			assert.True(t, ok)
		})
	}
}

func TestDocumentEndpoints(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/get_uploaded_documents":
			json.NewEncoder(w).Encode(dto.DocumentsResponse{Documents: []string{"a.pdf", "b.pdf"}})
		case "/api/get_rag_documents":
			json.NewEncoder(w).Encode(dto.DocumentsResponse{Documents: []string{"b.pdf"}})
		default:
			http.NotFound(w, r)
		}
	})
	c, _ := newTestClient(t, handler, "tok")

	uploaded, err := c.UploadedDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, uploaded)

	processed, err := c.ProcessedDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf"}, processed)
}

func TestDeleteDocumentEscapesName(t *testing.T) {
	var gotEscaped string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		gotEscaped = r.URL.EscapedPath()
	})
	c, _ := newTestClient(t, handler, "tok")

	require.NoError(t, c.DeleteDocument(context.Background(), "annual report 2024.pdf"))
	assert.Equal(t, "/api/delete_document/annual%20report%202024.pdf", gotEscaped)
}

func TestLoginStoresToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/session", r.URL.Path)
		var req dto.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "admin@example.com", req.Email)
		json.NewEncoder(w).Encode(dto.LoginResponse{JwtToken: "fresh-token", IsAdmin: true})
	})
	c, a := newTestClient(t, handler, "")

	res, err := c.Login(context.Background(), "admin@example.com", "hunter2!A")
	require.NoError(t, err)
	assert.True(t, res.IsAdmin)

	tok, ok := a.Current(context.Background())
	require.True(t, ok)
	assert.Equal(t, "fresh-token", tok)
}

func TestLogoutEvictsEvenWhenServerFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "backend down"})
	})
	c, a := newTestClient(t, handler, "tok")

	err := c.Logout(context.Background())
	require.Error(t, err)

	_, ok := a.Current(context.Background())
	assert.False(t, ok, "local session must not outlive an explicit logout")
}

func TestUploadRejectsNonPDFLocally(t *testing.T) {
	var hits int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ })
	c, _ := newTestClient(t, handler, "tok")

	_, err := c.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrNotPDF)
	assert.Equal(t, 0, hits)
}

func TestUploadSendsMultipartFile(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "paper.pdf", header.Filename)
		json.NewEncoder(w).Encode(dto.UploadResponse{Message: "Successfully uploaded"})
	})
	c, _ := newTestClient(t, handler, "tok")

	res, err := c.Upload(context.Background(), "/tmp/downloads/paper.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Successfully uploaded", res.Message)
}
