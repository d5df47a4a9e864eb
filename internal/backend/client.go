package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"ragchat-console/internal/dto"
	"ragchat-console/internal/pkg/logger"
	"ragchat-console/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrSessionExpired is returned when any endpoint answers 401. The token
	// has already been evicted by the time the caller sees this.
	ErrSessionExpired = errors.New("backend: session expired")

	ErrNotPDF = errors.New("backend: only PDF files are allowed")
)

// APIError is a structured (non-401) failure from the backend. Message is the
// best-effort detail pulled from the response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the RAG backend. Every authenticated call reads the token
// through the session Authority first and suspends with ErrNoSession when it
// is absent; a 401 on any endpoint evicts the session before returning.
type Client struct {
	baseURL  string
	client   *http.Client
	sessions *session.Authority
	log      logger.ILogger
	tracer   trace.Tracer
}

func NewClient(baseURL string, timeout time.Duration, sessions *session.Authority, log logger.ILogger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		sessions: sessions,
		log:      log,
		tracer:   otel.Tracer("ragchat-console/backend"),
	}
}

// --- Conversation ---

func (c *Client) Query(ctx context.Context, text, model string) (*dto.QueryResponse, error) {
	var res dto.QueryResponse
	req := dto.QueryRequest{Text: text, Model: model}
	if err := c.do(ctx, http.MethodPost, "/api/query", req, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Documents ---

func (c *Client) UploadedDocuments(ctx context.Context) ([]string, error) {
	var res dto.DocumentsResponse
	if err := c.do(ctx, http.MethodGet, "/api/get_uploaded_documents", nil, &res, true); err != nil {
		return nil, err
	}
	return res.Documents, nil
}

func (c *Client) ProcessedDocuments(ctx context.Context) ([]string, error) {
	var res dto.DocumentsResponse
	if err := c.do(ctx, http.MethodGet, "/api/get_rag_documents", nil, &res, true); err != nil {
		return nil, err
	}
	return res.Documents, nil
}

func (c *Client) DeleteDocument(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/delete_document/"+url.PathEscape(name), nil, nil, true)
}

func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (*dto.UploadResponse, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, ErrNotPDF
	}

	token, ok := c.sessions.Current(ctx)
	if !ok {
		return nil, session.ErrNoSession
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "backend.upload")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", token)

	var res dto.UploadResponse
	if err := c.send(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Auth & users ---

// Login exchanges credentials for a token and hands it to the Authority.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var res dto.LoginResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/session", req, &res, false); err != nil {
		return nil, err
	}
	if err := c.sessions.Set(ctx, res.JwtToken); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &res, nil
}

// Logout tells the backend the session is over, then evicts the local token
// even when the server call fails. The local session must never outlive an
// explicit logout.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, "/api/session", nil, nil, true)
	c.sessions.Evict(ctx)
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, session.ErrNoSession) {
		return nil
	}
	return err
}

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/users", req, nil, false)
}

func (c *Client) CurrentUser(ctx context.Context) (*dto.UserResponse, error) {
	var res dto.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, req dto.UpdateUserRequest) error {
	return c.do(ctx, http.MethodPost, "/api/users/"+url.PathEscape(id), req, nil, true)
}

// --- History ---

func (c *Client) History(ctx context.Context) ([]dto.HistoryRecord, error) {
	var res []dto.HistoryRecord
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &res, true); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Plumbing ---

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var token string
	if authed {
		var ok bool
		token, ok = c.sessions.Current(ctx)
		if !ok {
			return session.ErrNoSession
		}
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(payload)
	}

	ctx, span := c.tracer.Start(ctx, "backend"+strings.ReplaceAll(path, "/", "."),
		trace.WithAttributes(attribute.String("http.method", method)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		// The backend expects the raw token, not a Bearer scheme.
		req.Header.Set("Authorization", token)
	}

	return c.send(ctx, req, out)
}

func (c *Client) send(ctx context.Context, req *http.Request, out interface{}) error {
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		c.log.Warn("backend", "session rejected by backend, evicting", map[string]interface{}{
			"path": req.URL.Path,
		})
		c.sessions.Evict(ctx)
		return ErrSessionExpired
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{
			StatusCode: res.StatusCode,
			Message:    errorMessage(resBody),
		}
	}

	if out == nil || len(resBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// errorMessage pulls a display string out of a structured failure body,
// trying "message" then "detail" before giving up.
func errorMessage(body []byte) string {
	var eb dto.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Detail != "" {
			return eb.Detail
		}
	}
	return "request failed"
}
