// Package backend is the HTTP client for the chat platform's REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chatpilot-hq/console/internal/rbac"
)

const maxResponseBytes = 1 << 20

type tokenContextKey struct{}

// ContextWithToken attaches a bearer token for calls made with ctx. It takes
// precedence over the client's static token.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the token set by ContextWithToken, if any.
func TokenFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(tokenContextKey{}).(string); ok {
		return t
	}
	return ""
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets a static bearer token, used by the CLI after login.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// Client talks JSON to the backend under <baseURL>/api.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return nil, fmt.Errorf("signing up: %w", err)
	}
	return &out, nil
}

// Me returns the account the bearer token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	return &out, nil
}

func (c *Client) ListTenantUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/users/tenant", nil, &out); err != nil {
		return nil, fmt.Errorf("listing tenant users: %w", err)
	}
	return out, nil
}

// InviteUser creates an account in the caller's tenant. The returned
// temporary password is only ever available in this response.
func (c *Client) InviteUser(ctx context.Context, req InviteRequest) (*Invitation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Permissions == nil {
		req.Permissions = []rbac.Grant{}
	}
	var out Invitation
	if err := c.do(ctx, http.MethodPost, "/users/invite", req, &out); err != nil {
		return nil, fmt.Errorf("inviting user: %w", err)
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if err := c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil); err != nil {
		return fmt.Errorf("deleting user %s: %w", userID, err)
	}
	return nil
}

// UserPermissions returns the user's explicit grants as stored by the backend.
func (c *Client) UserPermissions(ctx context.Context, userID string) ([]rbac.Grant, error) {
	var out permissionsEnvelope
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/permissions", nil, &out); err != nil {
		return nil, fmt.Errorf("fetching permissions for %s: %w", userID, err)
	}
	return out.Permissions, nil
}

// SetUserPermissions replaces the user's grants with the given list.
func (c *Client) SetUserPermissions(ctx context.Context, userID string, grants []rbac.Grant) error {
	if grants == nil {
		grants = []rbac.Grant{}
	}
	if err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/permissions", grants, nil); err != nil {
		return fmt.Errorf("saving permissions for %s: %w", userID, err)
	}
	return nil
}

// Ping checks that the backend answers on its API root.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/", nil, nil); err != nil {
		return fmt.Errorf("pinging backend: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := TokenFromContext(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeAPIError reads FastAPI error bodies. "detail" is a string for
// HTTPException and a list of objects for validation failures.
func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{Status: status}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) != nil || len(body.Detail) == 0 {
		return apiErr
	}
	var detail string
	if json.Unmarshal(body.Detail, &detail) == nil {
		apiErr.Detail = detail
		return apiErr
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(body.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		apiErr.Detail = strings.Join(msgs, "; ")
	}
	return apiErr
}
