package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/client/session"
	"github.com/zktaccess/zktadmin/internal/logging"
)

// AdminService manages user accounts. Every successful change is followed
// by an audit entry whose type is the affected account's role.
type AdminService interface {
	Users(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, username, password, role string) (Result, error)
	ToggleActive(ctx context.Context, u models.User) (Result, error)
	ResetPassword(ctx context.Context, u models.User, password string) (Result, error)
	ResetDailyLimit(ctx context.Context, u models.User, confirm ConfirmFunc) (Result, error)
	Delete(ctx context.Context, users []models.User, target string, confirm ConfirmFunc) (Result, error)
}

type adminService struct {
	auditor
}

func NewAdminService(c client.Client, sessions Sessions, logger logging.Logger) AdminService {
	return &adminService{auditor{client: c, sessions: sessions, logger: logger.With("component", "admin")}}
}

func (s *adminService) Users(ctx context.Context) ([]models.User, error) {
	return s.client.ListUsers(ctx)
}

func (s *adminService) Create(ctx context.Context, username, password, role string) (Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return Result{}, ErrMissingCredentials
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return Result{}, err
	}

	if err := s.client.CreateUser(ctx, models.NewUser{Username: username, Password: password, Role: r}); err != nil {
		return Result{}, err
	}
	return s.audit(ctx, string(r), fmt.Sprintf("Created user %s (role %s)", username, r))
}

func (s *adminService) ToggleActive(ctx context.Context, u models.User) (Result, error) {
	if err := s.client.ToggleActive(ctx, u.Username); err != nil {
		return Result{}, err
	}
	verb := "Enabled"
	if u.Active {
		verb = "Disabled"
	}
	return s.audit(ctx, string(u.Role), fmt.Sprintf("%s user %s", verb, u.Username))
}

func (s *adminService) ResetPassword(ctx context.Context, u models.User, password string) (Result, error) {
	if password == "" {
		return Result{}, ErrMissingPassword
	}
	if err := s.client.ResetPassword(ctx, u.Username, password); err != nil {
		return Result{}, err
	}
	return s.audit(ctx, string(u.Role), "Reset password for "+u.Username)
}

func (s *adminService) ResetDailyLimit(ctx context.Context, u models.User, confirm ConfirmFunc) (Result, error) {
	if !confirm(fmt.Sprintf("Reset today's QR generation limit for %s?", u.Username)) {
		return Result{}, ErrNotConfirmed
	}
	if err := s.client.ResetToday(ctx, u.Username); err != nil {
		return Result{}, err
	}
	return s.audit(ctx, string(u.Role), "Reset daily limit for "+u.Username)
}

// Delete removes target after checking, against users as currently shown,
// that it is neither the signed-in account nor the last admin. Those checks
// and the confirmation happen before any request.
func (s *adminService) Delete(ctx context.Context, users []models.User, target string, confirm ConfirmFunc) (Result, error) {
	u, ok := FindUser(users, target)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownUser, target)
	}
	me, ok := s.sessions.CurrentUser(ctx)
	if !ok {
		return Result{}, session.ErrNoSession
	}
	if me.Username == u.Username {
		return Result{}, ErrSelfDelete
	}
	if u.Role == models.RoleAdmin && models.CountAdmins(users, u.Username) == 0 {
		return Result{}, ErrLastAdmin
	}
	if !confirm(fmt.Sprintf("Delete user %q permanently?", u.Username)) {
		return Result{}, ErrNotConfirmed
	}

	if err := s.client.DeleteUser(ctx, u.Username); err != nil {
		return Result{}, err
	}
	return s.audit(ctx, string(u.Role), "Deleted user "+u.Username)
}

// FindUser looks up username in users.
func FindUser(users []models.User, username string) (models.User, bool) {
	for _, u := range users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}
