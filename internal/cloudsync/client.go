// Package cloudsync pushes and pulls whole log snapshots against a cloud
// account row store, one row per account, last writer wins.
package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrNotConfigured = errors.New("cloud sync not configured")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
)

// Session is an authenticated cloud account session.
type Session struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

// Client talks to a Supabase-compatible auth and row-storage service.
type Client struct {
	baseURL string
	anonKey string
	hc      *http.Client
	log     *zap.Logger
}

// NewClient creates a cloud client. Empty baseURL or anonKey leaves the
// client disabled; every call then fails with ErrNotConfigured.
func NewClient(baseURL, anonKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		hc:      &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Enabled reports whether the client is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != "" && c.anonKey != ""
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignUp registers a new account with email and password.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.authRequest(ctx, "/auth/v1/signup", email, password)
}

// SignIn authenticates an existing account.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.authRequest(ctx, "/auth/v1/token?grant_type=password", email, password)
}

func (c *Client) authRequest(ctx context.Context, path, email, password string) (*Session, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	raw, err := c.do(ctx, http.MethodPost, path, "", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var auth authResponse
	if err := json.Unmarshal(raw, &auth); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if auth.AccessToken == "" || auth.User.ID == "" {
		return nil, fmt.Errorf("auth response missing token or user id")
	}
	return &Session{AccessToken: auth.AccessToken, UserID: auth.User.ID, Email: auth.User.Email}, nil
}

// SignOut revokes the session's token.
func (c *Client) SignOut(ctx context.Context, sess *Session) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", sess.AccessToken, nil)
	return err
}

// GetSession validates a stored token against the auth service and rebuilds
// the session, or returns ErrUnauthorized when the token is no longer good.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*Session, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	raw, err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil)
	if err != nil {
		return nil, err
	}
	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	return &Session{AccessToken: accessToken, UserID: user.ID, Email: user.Email}, nil
}

type row struct {
	UserID    string          `json:"user_id"`
	Username  string          `json:"username"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt string          `json:"updated_at"`
}

// UpsertRow writes the full log snapshot into the account's single row.
func (c *Client) UpsertRow(ctx context.Context, sess *Session, username string, data json.RawMessage) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(row{
		UserID:    sess.UserID,
		Username:  username,
		Data:      data,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/rest/v1/food_logs?on_conflict=user_id", sess.AccessToken, bytes.NewReader(body))
	return err
}

// FetchRow returns the account's stored snapshot, or ErrNotFound when the
// account has no row yet.
func (c *Client) FetchRow(ctx context.Context, sess *Session) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	path := "/rest/v1/food_logs?user_id=eq." + sess.UserID + "&select=data"
	raw, err := c.do(ctx, http.MethodGet, path, sess.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if len(rows) == 0 || len(rows[0].Data) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].Data, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	if method == http.MethodPost && path[:5] == "/rest" {
		req.Header.Set("Prefer", "resolution=merge-duplicates")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloud request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("cloud request failed: %s: %s", resp.Status, truncate(raw, 200))
	}
	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
