// Package ddfinv is the HTTP client for the investment backend. The
// gateway consumes it opaquely: authentication, the session profile, and
// the role-scoped CRUD endpoints behind the dashboards.
package ddfinv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/pkg/config"
)

type Client struct {
	client *http.Client
	url    string
}

func NewClient(cfg config.Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Backend.RetryAttempts
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = cfg.Backend.Timeout

	retryClient.Logger = nil

	// Retry transport failures only. An HTTP status is an answer, and
	// replaying auth POSTs on a 5xx is worse than surfacing it.
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}

		return false, nil
	}

	return &Client{
		client: retryClient.StandardClient(),
		url:    cfg.Backend.URL,
	}
}

// APIError carries the backend's own error text for a non-2xx answer.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend answered %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
}

func apiError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return entity.ErrUnauthorized
	case http.StatusForbidden:
		return entity.ErrForbidden
	case http.StatusNotFound:
		return entity.ErrNotFound
	}

	var eb errorBody

	_ = json.Unmarshal(body, &eb)

	return &APIError{Status: status, Message: eb.Message}
}

type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthenticateResponse struct {
	Token       string   `json:"token"`
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Authenticate exchanges credentials for a bearer token and the user record.
// Invalid credentials map to entity.ErrBadCredentials.
func (c *Client) Authenticate(ctx context.Context, email, password string) (AuthenticateResponse, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/auth/authenticate", "", AuthenticateRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return AuthenticateResponse{}, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return AuthenticateResponse{}, entity.ErrBadCredentials
	}

	if status != http.StatusOK {
		return AuthenticateResponse{}, apiError(status, body)
	}

	var data AuthenticateResponse

	err = json.Unmarshal(body, &data)
	if err != nil {
		return AuthenticateResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if data.Token == "" {
		return AuthenticateResponse{}, fmt.Errorf("authentication response without token")
	}

	return data, nil
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	body, status, err := c.do(ctx, http.MethodPost, "/auth/register", "", req)
	if err != nil {
		return err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return apiError(status, body)
	}

	return nil
}

type SessionProfileResponse struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// SessionProfile fetches the current user for a bearer token. Used when a
// persisted session has a token but no readable user record.
func (c *Client) SessionProfile(ctx context.Context, token string) (entity.UserAccount, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/session", token, nil)
	if err != nil {
		return entity.UserAccount{}, err
	}

	if status != http.StatusOK {
		return entity.UserAccount{}, apiError(status, body)
	}

	var data SessionProfileResponse

	err = json.Unmarshal(body, &data)
	if err != nil {
		return entity.UserAccount{}, fmt.Errorf("decode response: %w", err)
	}

	role, err := entity.ParseRole(data.Role)
	if err != nil {
		return entity.UserAccount{}, err
	}

	return entity.UserAccount{
		ID:          data.ID,
		Email:       data.Email,
		FirstName:   data.FirstName,
		LastName:    data.LastName,
		Role:        role,
		Permissions: entity.ParsePermissions(data.Permissions),
	}, nil
}

// Logout tells the backend to drop the token. Best effort: the gateway
// clears its session either way.
func (c *Client) Logout(ctx context.Context, token string) error {
	body, status, err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil)
	if err != nil {
		return err
	}

	if status != http.StatusOK && status != http.StatusNoContent {
		return apiError(status, body)
	}

	return nil
}

// Fetch performs an authenticated GET against a backend resource and
// returns the raw JSON. The dashboards consume these payloads opaquely.
func (c *Client) Fetch(ctx context.Context, token, path string) (json.RawMessage, error) {
	body, status, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	return json.RawMessage(body), nil
}

// Send performs an authenticated mutating call and returns the raw JSON
// answer, if any.
func (c *Client) Send(ctx context.Context, token, method, path string, payload any) (json.RawMessage, error) {
	body, status, err := c.do(ctx, method, path, token, payload)
	if err != nil {
		return nil, err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, apiError(status, body)
	}

	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload any) ([]byte, int, error) {
	var reqBody io.Reader

	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request in JSON: %w", err)
		}

		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", entity.ErrBackendUnavailable, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}

	return body, resp.StatusCode, nil
}
