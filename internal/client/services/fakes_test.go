package services

import (
	"context"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/models"
)

// ---- fake client ----

type addLogCall struct{ Type, Message, User string }

// fakeClient implements client.Client and records every call.
type fakeClient struct {
	LoginResp models.LoginResponse
	LoginErr  error

	UsersRet []models.User
	UsersErr error

	CreateErr error
	ToggleErr error
	ResetErr  error
	DeleteErr error
	LimitErr  error

	LogsRet   []models.LogEntry
	LogsErr   error
	ClearErr  error
	AddLogErr error

	Calls   []string
	Created []models.NewUser
	AddLogs []addLogCall
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) Login(_ context.Context, username, _ string) (models.LoginResponse, error) {
	f.Calls = append(f.Calls, "login "+username)
	return f.LoginResp, f.LoginErr
}

func (f *fakeClient) ListUsers(context.Context) ([]models.User, error) {
	f.Calls = append(f.Calls, "users")
	return f.UsersRet, f.UsersErr
}

func (f *fakeClient) CreateUser(_ context.Context, u models.NewUser) error {
	f.Calls = append(f.Calls, "create "+u.Username)
	f.Created = append(f.Created, u)
	return f.CreateErr
}

func (f *fakeClient) ToggleActive(_ context.Context, username string) error {
	f.Calls = append(f.Calls, "toggle "+username)
	return f.ToggleErr
}

func (f *fakeClient) ResetPassword(_ context.Context, username, _ string) error {
	f.Calls = append(f.Calls, "resetpw "+username)
	return f.ResetErr
}

func (f *fakeClient) DeleteUser(_ context.Context, username string) error {
	f.Calls = append(f.Calls, "delete "+username)
	return f.DeleteErr
}

func (f *fakeClient) ListLogs(context.Context) ([]models.LogEntry, error) {
	f.Calls = append(f.Calls, "logs")
	return f.LogsRet, f.LogsErr
}

func (f *fakeClient) AddLog(_ context.Context, logType, message, user string) error {
	f.AddLogs = append(f.AddLogs, addLogCall{logType, message, user})
	return f.AddLogErr
}

func (f *fakeClient) ClearLogs(context.Context) error {
	f.Calls = append(f.Calls, "clearlogs")
	return f.ClearErr
}

func (f *fakeClient) TodayCount(context.Context, string) (int, error) { return 0, nil }

func (f *fakeClient) ResetToday(_ context.Context, username string) error {
	f.Calls = append(f.Calls, "resetlimit "+username)
	return f.LimitErr
}

func (f *fakeClient) CanGenerateToday(context.Context, string, int) (bool, error) { return true, nil }

func (f *fakeClient) GenerateQR(context.Context, string) (models.GenerateResponse, error) {
	return models.GenerateResponse{}, nil
}

// ---- fake sessions ----

type fakeSessions struct {
	ID      models.Identity
	OK      bool
	Cleared int
}

func (s *fakeSessions) CurrentUser(context.Context) (models.Identity, bool) { return s.ID, s.OK }

func (s *fakeSessions) Clear(context.Context) error {
	s.Cleared++
	s.ID, s.OK = models.Identity{}, false
	return nil
}

func signedIn(name string, role models.Role) *fakeSessions {
	return &fakeSessions{ID: models.Identity{Username: name, Role: role}, OK: true}
}

func yes(string) bool { return true }
func no(string) bool  { return false }
