package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zktaccess/zktadmin/internal/client/models"
)

var _ Client = (*HTTPClient)(nil)

func userPath(prefix, username string) string {
	return prefix + url.PathEscape(username)
}

// Login authenticates against POST / and stores the token and identity in
// the session store.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.Do(ctx, http.MethodPost, "/", req, &resp); err != nil {
		return models.LoginResponse{}, err
	}
	if resp.Token == "" {
		return models.LoginResponse{}, fmt.Errorf("%w: login response carries no token", ErrRequestFailed)
	}
	if resp.Username == "" {
		resp.Username = username
	}
	if resp.Role == "" {
		resp.Role = models.RoleUser
	}
	if err := c.store.Login(ctx, resp.Token, resp.Identity()); err != nil {
		return models.LoginResponse{}, fmt.Errorf("store session: %w", err)
	}
	return resp, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.Do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) CreateUser(ctx context.Context, u models.NewUser) error {
	return c.Do(ctx, http.MethodPost, "/add_user", u, nil)
}

func (c *HTTPClient) ToggleActive(ctx context.Context, username string) error {
	return c.Do(ctx, http.MethodPost, userPath("/users/", username)+"/activate", nil, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, username, password string) error {
	body := struct {
		Password string `json:"password"`
	}{password}
	return c.Do(ctx, http.MethodPost, userPath("/users/", username)+"/reset-password", body, nil)
}

func (c *HTTPClient) DeleteUser(ctx context.Context, username string) error {
	return c.Do(ctx, http.MethodDelete, userPath("/users/", username), nil, nil)
}

func (c *HTTPClient) ListLogs(ctx context.Context) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	if err := c.Do(ctx, http.MethodGet, "/logs", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) AddLog(ctx context.Context, logType, message, user string) error {
	entry := models.NewLogEntry{Type: logType, Message: message, User: user}
	return c.Do(ctx, http.MethodPost, "/logs", entry, nil)
}

func (c *HTTPClient) ClearLogs(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/clear-logs", nil, nil)
}

// TodayCount returns how many PINs username generated today.
func (c *HTTPClient) TodayCount(ctx context.Context, username string) (int, error) {
	var resp models.CountResponse
	if err := c.Do(ctx, http.MethodGet, userPath("/user-qr-count/", username), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *HTTPClient) ResetToday(ctx context.Context, username string) error {
	return c.Do(ctx, http.MethodGet, userPath("/user-qr-reset/", username), nil, nil)
}

// CanGenerateToday reports whether username is below max generations
// today. A failed count read counts as zero so the UI stays usable; only
// ErrSessionExpired is returned.
func (c *HTTPClient) CanGenerateToday(ctx context.Context, username string, max int) (bool, error) {
	return canGenerate(ctx, c, username, max, c.logger.Warn)
}

type counter interface {
	TodayCount(ctx context.Context, username string) (int, error)
}

func canGenerate(ctx context.Context, c counter, username string, max int, warn func(context.Context, string, ...any)) (bool, error) {
	count, err := c.TodayCount(ctx, username)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return false, err
		}
		warn(ctx, "today count unavailable, assuming zero", "user", username, "err", err)
		count = 0
	}
	return count < max, nil
}

// GenerateQR asks the backend for a fresh PIN for username.
func (c *HTTPClient) GenerateQR(ctx context.Context, username string) (models.GenerateResponse, error) {
	var resp models.GenerateResponse
	if err := c.Do(ctx, http.MethodPost, "/generate-qr", models.GenerateRequest{Username: username}, &resp); err != nil {
		return models.GenerateResponse{}, err
	}
	return resp, nil
}
