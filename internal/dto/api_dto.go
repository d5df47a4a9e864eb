package dto

// Wire types for the RAG backend API. Field names follow the backend's JSON
// contract exactly; optional fields are omitted when empty.

type QueryRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// QueryResponse carries the answer plus up to two optional evidence channels,
// each split into a short metadata summary and the full supporting context.
type QueryResponse struct {
	Answer           string `json:"answer"`
	KeywordMetadata  string `json:"keyword_metadata,omitempty"`
	KeywordContext   string `json:"keyword_context,omitempty"`
	SemanticMetadata string `json:"semantic_metadata,omitempty"`
	SemanticContext  string `json:"semantic_context,omitempty"`
}

type DocumentsResponse struct {
	Documents []string `json:"documents"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	JwtToken string `json:"jwt_token"`
	IsAdmin  bool   `json:"is_admin"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type UserResponse struct {
	Id string `json:"id"`
}

// UpdateUserRequest mirrors the backend user model; empty fields are left
// unchanged server-side.
type UpdateUserRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
}

type UploadResponse struct {
	Message string `json:"message"`
}

type HistoryRecord struct {
	Query            string `json:"query"`
	Answer           string `json:"answer"`
	KeywordMetadata  string `json:"keyword_metadata,omitempty"`
	KeywordContext   string `json:"keyword_context,omitempty"`
	SemanticMetadata string `json:"semantic_metadata,omitempty"`
	SemanticContext  string `json:"semantic_context,omitempty"`
	UserId           string `json:"user_id,omitempty"`
}

// ErrorBody is the best-effort shape of a structured failure. Backends in the
// wild return either "message" or "detail"; both are tried before falling
// back to a generic label.
type ErrorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}
