package client

import (
	"context"

	"github.com/zktaccess/zktadmin/internal/client/models"
)

// Client is the backend surface used by the console services.
type Client interface {
	Login(ctx context.Context, username, password string) (models.LoginResponse, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u models.NewUser) error
	ToggleActive(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, username string) error

	ListLogs(ctx context.Context) ([]models.LogEntry, error)
	AddLog(ctx context.Context, logType, message, user string) error
	ClearLogs(ctx context.Context) error

	TodayCount(ctx context.Context, username string) (int, error)
	ResetToday(ctx context.Context, username string) error
	CanGenerateToday(ctx context.Context, username string, max int) (bool, error)
	GenerateQR(ctx context.Context, username string) (models.GenerateResponse, error)
}

// TokenStore is the part of the session store the client needs.
type TokenStore interface {
	Token(ctx context.Context) (string, bool)
	Login(ctx context.Context, token string, id models.Identity) error
	Clear(ctx context.Context) error
}
