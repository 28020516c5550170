package services

import (
	"context"
	"strings"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/guard"
	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/logging"
)

// AuthService signs operators in and out.
//
// Contract:
//   - Login: authenticate, persist the session, write the login audit entry
//     and report where the operator lands (admins on admin, others on
//     dashboard).
//   - Logout: forget the session. Idempotent.
//   - Current: the signed-in identity, if any.
type AuthService interface {
	Login(ctx context.Context, username, password string) (LoginResult, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (models.Identity, bool)
}

// LoginResult is a successful sign-in.
type LoginResult struct {
	Result
	Identity models.Identity
	Landing  guard.Route
}

type authService struct {
	auditor
}

// NewAuthService constructs an AuthService. The client is expected to store
// the session on login.
func NewAuthService(c client.Client, sessions Sessions, logger logging.Logger) AuthService {
	return &authService{auditor{client: c, sessions: sessions, logger: logger.With("component", "auth")}}
}

func (a *authService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		a.logger.Info(ctx, "login failed", "user", username, "err", err)
		return LoginResult{}, err
	}
	id := resp.Identity()
	a.logger.Info(ctx, "logged in", "user", id.Username, "role", id.Role)

	res, err := a.audit(ctx, models.LogTypeLogin, "User logged in successfully")
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Result: res, Identity: id, Landing: guard.Landing(id)}, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.sessions.Clear(ctx)
}

func (a *authService) Current(ctx context.Context) (models.Identity, bool) {
	return a.sessions.CurrentUser(ctx)
}
