package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/hearthhq/hearth/internal/errors"
)

// HTTPAuthenticator talks to a GoTrue-style auth endpoint:
// POST /auth/v1/signup and POST /auth/v1/token?grant_type=password.
type HTTPAuthenticator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Authenticator = (*HTTPAuthenticator)(nil)

// NewHTTPAuthenticator creates an authenticator against the provider at url.
func NewHTTPAuthenticator(url, apiKey string, httpClient *http.Client) (*HTTPAuthenticator, error) {
	if url == "" {
		return nil, apperrors.Configuration("auth provider URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPAuthenticator{
		baseURL:    strings.TrimSuffix(url, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}, nil
}

// SignUp creates a new account.
func (a *HTTPAuthenticator) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	return a.post(ctx, "/auth/v1/signup", email, password)
}

// SignIn authenticates with email/password.
func (a *HTTPAuthenticator) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	return a.post(ctx, "/auth/v1/token?grant_type=password", email, password)
}

func (a *HTTPAuthenticator) post(ctx context.Context, path, email, password string) (*Credentials, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, apperrors.Validation("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Transport(err, "build auth request")
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Transport(err, "auth provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseAuthError(resp)
	}

	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return nil, apperrors.Transport(err, "decode auth response")
	}
	return &creds, nil
}

func parseAuthError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var payload struct {
		Message     string `json:"msg"`
		Description string `json:"error_description"`
	}
	_ = json.Unmarshal(data, &payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Description
	}
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Unauthorized("auth provider rejected credentials: %s", msg)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return apperrors.Validation("auth provider rejected request: %s", msg)
	default:
		return apperrors.Transport(nil, "auth provider responded %d: %s", resp.StatusCode, msg)
	}
}
