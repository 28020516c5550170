// Package services contains the application services of the zktadmin
// console: authentication, user administration and the audit log.
//
// Services sit between the views and the API client. They validate input,
// enforce the client-side safety rules (no self-deletion, never delete the
// last admin, confirm destructive actions) before any request is sent, and
// write the audit entry that follows each successful action.
//
// Audit writes are best effort: when the primary action succeeded but the
// audit entry could not be written, the call succeeds and Result.Warning
// carries the audit failure. client.ErrSessionExpired is always returned as
// an error, even from the audit write, so the view can send the user back
// to the login screen.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/logging"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrSelfDelete         = errors.New("you can't delete yourself while logged in")
	ErrLastAdmin          = errors.New("you can't delete the last remaining admin")
	ErrNotConfirmed       = errors.New("action not confirmed")
	ErrUnknownUser        = errors.New("no such user")
	ErrMissingPassword    = errors.New("password is required")
)

// Result describes a completed action. Warning is set when the audit entry
// for it could not be written.
type Result struct {
	Warning error
}

// ConfirmFunc asks the operator to approve a destructive action.
type ConfirmFunc func(prompt string) bool

// Sessions is the part of the session store services rely on.
type Sessions interface {
	CurrentUser(ctx context.Context) (models.Identity, bool)
	Clear(ctx context.Context) error
}

type auditor struct {
	client   client.Client
	sessions Sessions
	logger   logging.Logger
}

// audit writes an audit entry attributed to the signed-in user.
func (a auditor) audit(ctx context.Context, logType, message string) (Result, error) {
	actor, _ := a.sessions.CurrentUser(ctx)
	err := a.client.AddLog(ctx, logType, message, actor.Username)
	if err == nil {
		return Result{}, nil
	}
	if errors.Is(err, client.ErrSessionExpired) {
		return Result{}, err
	}
	a.logger.Warn(ctx, "audit log write failed", "type", logType, "message", message, "err", err)
	return Result{Warning: fmt.Errorf("audit log: %w", err)}, nil
}
