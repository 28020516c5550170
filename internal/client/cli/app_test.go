package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/config"
	"github.com/zktaccess/zktadmin/internal/client/guard"
	"github.com/zktaccess/zktadmin/internal/client/models"
	"github.com/zktaccess/zktadmin/internal/client/session"
	"github.com/zktaccess/zktadmin/internal/logging"
)

// ------------ fakes ------------

// fakeAPI implements client.Client on top of in-memory state and, like the
// real client, stores the session on login.
type fakeAPI struct {
	store *session.Store

	loginRole models.Role
	loginErr  error

	users    []models.User
	usersErr error

	deleteErr error
	toggleErr error

	logs    []models.LogEntry
	logsErr error

	count  int
	genPIN string

	calls   []string
	addLogs []string
}

var _ client.Client = (*fakeAPI)(nil)

func (f *fakeAPI) Login(ctx context.Context, username, _ string) (models.LoginResponse, error) {
	f.calls = append(f.calls, "login")
	if f.loginErr != nil {
		return models.LoginResponse{}, f.loginErr
	}
	resp := models.LoginResponse{Token: "tok", Username: username, Role: f.loginRole}
	if err := f.store.Login(ctx, resp.Token, resp.Identity()); err != nil {
		return models.LoginResponse{}, err
	}
	return resp, nil
}

func (f *fakeAPI) ListUsers(context.Context) ([]models.User, error) {
	f.calls = append(f.calls, "users")
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeAPI) CreateUser(_ context.Context, u models.NewUser) error {
	f.calls = append(f.calls, "create "+u.Username+" "+string(u.Role))
	f.users = append(f.users, models.User{Username: u.Username, Role: u.Role, Active: true})
	return nil
}

func (f *fakeAPI) ToggleActive(_ context.Context, username string) error {
	f.calls = append(f.calls, "toggle "+username)
	return f.toggleErr
}

func (f *fakeAPI) ResetPassword(_ context.Context, username, password string) error {
	f.calls = append(f.calls, "resetpw "+username+" "+password)
	return nil
}

func (f *fakeAPI) DeleteUser(_ context.Context, username string) error {
	f.calls = append(f.calls, "delete "+username)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.users[:0:0]
	for _, u := range f.users {
		if u.Username != username {
			kept = append(kept, u)
		}
	}
	f.users = kept
	return nil
}

func (f *fakeAPI) ListLogs(context.Context) ([]models.LogEntry, error) {
	f.calls = append(f.calls, "logs")
	return f.logs, f.logsErr
}

func (f *fakeAPI) AddLog(_ context.Context, logType, message, user string) error {
	f.addLogs = append(f.addLogs, fmt.Sprintf("%s|%s|%s", logType, message, user))
	return nil
}

func (f *fakeAPI) ClearLogs(context.Context) error {
	f.calls = append(f.calls, "clearlogs")
	f.logs = nil
	return nil
}

func (f *fakeAPI) TodayCount(context.Context, string) (int, error) { return f.count, nil }

func (f *fakeAPI) ResetToday(_ context.Context, username string) error {
	f.calls = append(f.calls, "resetlimit "+username)
	f.count = 0
	return nil
}

func (f *fakeAPI) CanGenerateToday(_ context.Context, _ string, max int) (bool, error) {
	return f.count < max, nil
}

func (f *fakeAPI) GenerateQR(context.Context, string) (models.GenerateResponse, error) {
	f.calls = append(f.calls, "generate")
	f.count++
	exp := time.Now().UTC().Add(15 * time.Minute).Format("2006-01-02T15:04:05")
	return models.GenerateResponse{PIN: f.genPIN, ExpiresAt: exp}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(content string) (string, error) { return "[QR " + content + "]", nil }

// ------------ helpers ------------

type testEnv struct {
	app   *App
	api   *fakeAPI
	store *session.Store
	out   *bytes.Buffer
}

func newEnv(t *testing.T, input string) *testEnv {
	t.Helper()
	store := session.NewMemoryStore(logging.Discard())
	api := &fakeAPI{
		store:     store,
		loginRole: models.RoleAdmin,
		genPIN:    "123456",
		users: []models.User{
			{Username: "root", Role: models.RoleAdmin, Active: true},
			{Username: "bob", Role: models.RoleUser, Active: true},
		},
	}
	cfg := &config.Config{}
	cfg.LoadDefaults()

	out := &bytes.Buffer{}
	app := NewApp(Deps{
		Config:   cfg,
		Sessions: store,
		Client:   api,
		Renderer: fakeRenderer{},
		In:       strings.NewReader(input),
		Out:      out,
		Location: time.UTC,
	})
	t.Cleanup(func() { _ = app.Close() })

	orig := printlnFn
	printlnFn = func(a ...any) (int, error) { return fmt.Fprintln(out, a...) }
	t.Cleanup(func() { printlnFn = orig })

	origPW := getPassword
	getPassword = func(io.Writer, string) ([]byte, error) { return []byte("pw"), nil }
	t.Cleanup(func() { getPassword = origPW })

	return &testEnv{app: app, api: api, store: store, out: out}
}

func signIn(t *testing.T, e *testEnv, name string, role models.Role) {
	t.Helper()
	require.NoError(t, e.store.Login(context.Background(), "tok", models.Identity{Username: name, Role: role}))
}

func countCalls(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}

func lines(l ...string) string {
	return strings.Join(l, "\n") + "\n"
}

// ------------ tests ------------

func TestApp_LoginAdminLandsOnAdmin(t *testing.T) {
	e := newEnv(t, lines("login", "root", "whoami", "exit"))

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "Please log in.")
	assert.Contains(t, out, "Welcome, root (admin)")
	assert.Contains(t, out, "Signed in as root (admin)")
	assert.Contains(t, out, "bob")
	assert.Equal(t, guard.Admin, e.app.view)
	assert.Equal(t, []string{"login|User logged in successfully|root"}, e.api.addLogs)
}

func TestApp_LoginUserLandsOnDashboard(t *testing.T) {
	e := newEnv(t, lines("login", "bob", "users", "exit"))
	e.api.loginRole = models.RoleUser
	e.api.count = 1

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "PIN generations left today: 2 / 3")
	assert.Contains(t, out, "The admin view is for administrators only.")
	assert.NotContains(t, e.api.calls, "users")
	assert.Equal(t, guard.Dashboard, e.app.view)
}

func TestApp_LoginFailure(t *testing.T) {
	e := newEnv(t, lines("login", "root", "exit"))
	e.api.loginErr = &client.RequestError{Status: 401, Body: `{"error":"Invalid credentials"}`}

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Error: Invalid credentials")
	assert.Equal(t, guard.Login, e.app.view)
}

func TestApp_CommandsRequireLogin(t *testing.T) {
	e := newEnv(t, lines("generate", "logs", "exit"))

	require.NoError(t, e.app.Run(context.Background()))
	assert.Equal(t, 2, strings.Count(e.out.String(), "Please log in first."))
	assert.Empty(t, e.api.calls)
}

func TestApp_ResumesStoredSession(t *testing.T) {
	e := newEnv(t, lines("exit"))
	signIn(t, e, "bob", models.RoleUser)

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Resuming session of bob (user)")
	assert.Equal(t, guard.Dashboard, e.app.view)
}

func TestApp_GenerateShowsPINAndQuota(t *testing.T) {
	e := newEnv(t, lines("generate", "pin", "exit"))
	signIn(t, e, "bob", models.RoleUser)

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "[QR 123456]")
	assert.Contains(t, out, "PIN: 123456")
	assert.Contains(t, out, "Valid for 15 minutes")
	assert.Contains(t, out, "PIN generations left today: 2 / 3")
	assert.Contains(t, e.api.addLogs, "qr|Generated QR code with PIN 123456|bob")
}

func TestApp_GenerateAtLimit(t *testing.T) {
	e := newEnv(t, lines("generate", "exit"))
	signIn(t, e, "bob", models.RoleUser)
	e.api.count = 3

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Daily limit reached (3 per day)")
	assert.NotContains(t, e.api.calls, "generate")
}

func TestApp_SavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pin.png")
	e := newEnv(t, lines("savepng "+path, "generate", "savepng "+path, "exit"))
	signIn(t, e, "bob", models.RoleUser)

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "No active PIN to save.")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestApp_DeleteLastAdminRefused(t *testing.T) {
	e := newEnv(t, lines("users", "deluser root", "exit"))
	signIn(t, e, "ops", models.RoleAdmin)

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Error: you can't delete the last remaining admin")
	assert.NotContains(t, e.api.calls, "delete root")
}

func TestApp_DeleteNeedsConfirmation(t *testing.T) {
	e := newEnv(t, lines("deluser bob", "n", "deluser bob", "y", "exit"))
	signIn(t, e, "root", models.RoleAdmin)

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "Cancelled.")
	assert.Contains(t, out, "Deleted user bob")
	assert.Equal(t, 1, countCalls(e.api.calls, "delete bob"))
	assert.Contains(t, e.api.addLogs, "user|Deleted user bob|root")
	require.Len(t, e.app.users, 1)
}

func TestApp_SessionExpiredDuringDelete(t *testing.T) {
	e := newEnv(t, lines("users", "deluser bob", "y", "users", "exit"))
	signIn(t, e, "root", models.RoleAdmin)
	e.api.deleteErr = client.ErrSessionExpired

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "Session expired, please log in again.")
	assert.Contains(t, out, "Please log in first.")
	assert.Equal(t, guard.Login, e.app.view)

	_, ok := e.store.CurrentUser(context.Background())
	assert.False(t, ok)

	require.Len(t, e.app.users, 2)
	assert.Equal(t, "bob", e.app.users[1].Username)
	assert.Empty(t, e.api.addLogs)
	assert.Equal(t, 1, countCalls(e.api.calls, "delete bob"))
	assert.Equal(t, "delete bob", e.api.calls[len(e.api.calls)-1], "nothing may follow the expired delete")
}

func TestApp_UsersListKeptOnFailedRefresh(t *testing.T) {
	e := newEnv(t, lines("users", "exit"))
	signIn(t, e, "root", models.RoleAdmin)
	e.app.users = []models.User{{Username: "cached"}}
	e.api.usersErr = client.ErrUnavailable

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Server unavailable")
	assert.Equal(t, []models.User{{Username: "cached"}}, e.app.users)
}

func TestApp_AddToggleResetUser(t *testing.T) {
	e := newEnv(t, lines(
		"adduser", "carol", "admin",
		"toggle bob",
		"resetpw bob",
		"resetlimit bob", "y",
		"exit",
	))
	signIn(t, e, "root", models.RoleAdmin)

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "User created.")
	assert.Contains(t, out, "Disabled user bob")
	assert.Contains(t, out, "Password reset for bob")
	assert.Contains(t, out, "Daily limit reset for bob")
	assert.Subset(t, e.api.calls, []string{"create carol admin", "toggle bob", "resetpw bob pw", "resetlimit bob"})
	assert.Equal(t, []string{
		"admin|Created user carol (role admin)|root",
		"user|Disabled user bob|root",
		"user|Reset password for bob|root",
		"user|Reset daily limit for bob|root",
	}, e.api.addLogs)
}

func TestApp_ToggleUnknownUser(t *testing.T) {
	e := newEnv(t, lines("toggle ghost", "exit"))
	signIn(t, e, "root", models.RoleAdmin)

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Error: no such user: ghost")
}

func TestApp_LogsFilterAndClear(t *testing.T) {
	e := newEnv(t, lines(
		"logs",
		"logs -u ad",
		"logs -from 2024-01-01 -to 2024-01-01",
		"logs -reset",
		"logusers",
		"clearlogs", "y",
		"exit",
	))
	signIn(t, e, "root", models.RoleAdmin)
	e.api.logs = []models.LogEntry{
		{ID: 1, Username: "Admin1", Type: "login", Message: "m1", Time: models.At(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
		{ID: 2, Username: "bob", Type: "qr", Message: "m2", Time: models.At(time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC))},
	}

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "2 / 2 shown")
	assert.Contains(t, out, `Filter: user contains "ad"`)
	assert.Contains(t, out, "1 / 2 shown")
	assert.Contains(t, out, "2024-01-01 00:00:00")
	assert.Contains(t, out, "Admin1\nbob\n")
	assert.Contains(t, out, "Logs cleared.")
	assert.Equal(t, 1, countCalls(e.api.calls, "logs"), "filter changes must not refetch")
	assert.Contains(t, e.api.calls, "clearlogs")
}

func TestApp_LogsShowRowsWithBadTime(t *testing.T) {
	e := newEnv(t, lines("logs -from 2024-01-01", "exit"))
	signIn(t, e, "root", models.RoleAdmin)
	e.api.logs = []models.LogEntry{
		{ID: 1, Username: "bob", Type: "qr", Message: "m1", Time: models.Time{Raw: "yesterday"}},
		{ID: 2, Username: "bob", Type: "qr", Message: "m2", Time: models.At(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))},
	}

	require.NoError(t, e.app.Run(context.Background()))

	out := e.out.String()
	assert.Contains(t, out, "yesterday")
	assert.Contains(t, out, "1 / 2 shown")
}

func TestApp_LogsBadDate(t *testing.T) {
	e := newEnv(t, lines("logs -from yesterday", "exit"))
	signIn(t, e, "root", models.RoleAdmin)

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "date must be YYYY-MM-DD")
}

func TestApp_LogoutClearsSession(t *testing.T) {
	e := newEnv(t, lines("logout", "whoami", "exit"))
	signIn(t, e, "root", models.RoleAdmin)

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Logged out.")
	assert.Contains(t, e.out.String(), "Not logged in.")
	assert.Equal(t, guard.Login, e.app.view)
}

func TestApp_WhoAmIShowsTokenExpiry(t *testing.T) {
	e := newEnv(t, lines("whoami", "exit"))
	exp := time.Date(2099, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "root", "exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, e.store.Login(context.Background(), token, models.Identity{Username: "root", Role: models.RoleAdmin}))

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), "Token valid until 2099-01-02 03:04:05")
}

func TestApp_GoUnknownView(t *testing.T) {
	e := newEnv(t, lines("go settings", "go login", "exit"))
	signIn(t, e, "root", models.RoleAdmin)

	require.NoError(t, e.app.Run(context.Background()))
	assert.Contains(t, e.out.String(), `Unknown view "settings"`)
	assert.Contains(t, e.out.String(), "Already logged in.")
}
