package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Evermishka/notes-app/internal/client/models"
	"github.com/Evermishka/notes-app/internal/common"
)

// HTTPClient implements Client over the note service's JSON API. It holds
// the current session and transparently refreshes an expired access token,
// retrying the failed request once with the new pair.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	session *Session
}

// NewNotesClient constructs an HTTPClient for the given base URL, e.g.
// "http://127.0.0.1:8080".
func NewNotesClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// SessionState returns a copy of the current session, or nil when logged out.
func (c *HTTPClient) SessionState() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *HTTPClient) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

type apiError struct {
	Message string `json:"error"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/register", registerRequest{Email: email, Password: password}, nil)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/login", registerRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	s := &Session{
		UserID: resp.UserID,
		Tokens: TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
	}
	c.SetSession(s)
	return s, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/ping", nil, nil)
}

func (c *HTTPClient) CreateNote(ctx context.Context, n *models.RemoteNote) (*models.RemoteNote, error) {
	var out models.RemoteNote
	if err := c.doJSON(ctx, http.MethodPost, "/api/notes", n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateNote(ctx context.Context, n *models.RemoteNote) (*models.RemoteNote, error) {
	var out models.RemoteNote
	if err := c.doJSON(ctx, http.MethodPut, "/api/notes/"+n.ID, n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteNote(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/notes/"+id, nil, nil)
}

func (c *HTTPClient) ListNotes(ctx context.Context) ([]models.RemoteNote, error) {
	var out []models.RemoteNote
	if err := c.doJSON(ctx, http.MethodGet, "/api/notes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SyncRecord replays one outbox record. Create and update both map onto the
// server's upsert keyed by the client-assigned note id, so a record that
// already reached the server once is safe to replay.
func (c *HTTPClient) SyncRecord(ctx context.Context, rec *models.SyncQueueRecord) error {
	switch rec.Action {
	case models.ActionDelete:
		err := c.DeleteNote(ctx, rec.NoteID)
		if errors.Is(err, ErrNotFound) {
			// already gone remotely; the desired end state holds
			return nil
		}
		return err
	case models.ActionCreate, models.ActionUpdate:
		n := &models.RemoteNote{
			ID:        rec.NoteID,
			Title:     rec.Payload.Title,
			Content:   rec.Payload.Content,
			CreatedAt: rec.Payload.CreatedAt,
			UpdatedAt: rec.Payload.UpdatedAt,
		}
		var err error
		if rec.Action == models.ActionCreate {
			_, err = c.CreateNote(ctx, n)
		} else {
			_, err = c.UpdateNote(ctx, n)
		}
		return err
	default:
		return fmt.Errorf("unknown sync action %q", rec.Action)
	}
}

// doJSON performs one API call: marshals in (when non-nil), attaches the
// access token, and decodes the response into out (when non-nil). On a 401
// caused by an expired access token it refreshes the token pair and retries
// the request once.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	refreshed := false
	for {
		status, body, err := c.roundTrip(ctx, method, path, in)
		if err != nil {
			return err
		}

		if status >= 200 && status < 300 {
			if out == nil || len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}

		msg := errorMessage(body)

		if status == http.StatusUnauthorized && !refreshed &&
			msg == common.ErrTokenExpired.Error() && c.refreshToken() != "" {
			if err := c.refresh(ctx); err != nil {
				return ErrUnauthorized
			}
			refreshed = true
			continue
		}

		return mapStatus(status, msg)
	}
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// refresh exchanges the refresh token for a new pair. The server rotates
// refresh tokens, so the old one is invalid afterwards.
func (c *HTTPClient) refresh(ctx context.Context) error {
	data, err := json.Marshal(refreshRequest{RefreshToken: c.refreshToken()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/refresh", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return mapStatus(resp.StatusCode, errorMessage(body))
	}

	var rr refreshResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Tokens = TokenPair{AccessToken: rr.AccessToken, RefreshToken: rr.RefreshToken}
	}
	return nil
}

func (c *HTTPClient) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Tokens.AccessToken
}

func (c *HTTPClient) refreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Tokens.RefreshToken
}

func errorMessage(body []byte) string {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Message != "" {
		return ae.Message
	}
	return strings.TrimSpace(string(body))
}

func mapStatus(status int, msg string) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return common.ErrorAlreadyExists
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return fmt.Errorf("server returned %d: %s", status, msg)
	}
}
