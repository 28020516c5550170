package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/guard"
	"github.com/zktaccess/zktadmin/internal/client/logfilter"
	"github.com/zktaccess/zktadmin/internal/client/services"
	"github.com/zktaccess/zktadmin/internal/client/session"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials, signs in and opens the landing view of the
// account (admin for admins, dashboard otherwise).
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer wipe(password)

	res, err := a.auth.Login(ctx, username, string(password))
	if err != nil {
		return err
	}

	a.resetViews()
	a.printf("Welcome, %s (%s)\n", res.Identity.Username, res.Identity.Role)
	a.warn(res.Warning)
	return a.Go(ctx, string(res.Landing))
}

// Logout forgets the session and returns to the login view.
func (a *App) Logout(ctx context.Context) error {
	a.resetViews()
	a.view = guard.Login
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out.")
	return nil
}

// WhoAmI prints the signed-in account and, when the token carries one, its
// expiry.
func (a *App) WhoAmI(ctx context.Context) error {
	id, ok := a.sessions.CurrentUser(ctx)
	if !ok {
		a.println("Not logged in.")
		return nil
	}
	a.printf("Signed in as %s (%s)\n", id.Username, id.Role)

	token, ok := a.sessions.Token(ctx)
	if !ok {
		return nil
	}
	claims, err := session.InspectToken(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return nil
	}
	if claims.Expired(time.Now()) {
		a.printf("Token expired at %s\n", claims.ExpiresAt.In(a.loc).Format(time.DateTime))
		return nil
	}
	a.printf("Token valid until %s\n", claims.ExpiresAt.In(a.loc).Format(time.DateTime))
	return nil
}

// Go switches to the named view and loads its data.
func (a *App) Go(ctx context.Context, target string) error {
	route, ok := guard.ParseRoute(target)
	if !ok {
		a.printf("Unknown view %q (choose dashboard, admin or logs)\n", target)
		return nil
	}
	if !a.enter(ctx, route) {
		return nil
	}

	switch route {
	case guard.Dashboard:
		return a.Quota(ctx)
	case guard.Admin:
		return a.Users(ctx)
	case guard.Logs:
		return a.Logs(ctx, []string{"-refresh"})
	default:
		if _, ok := a.sessions.CurrentUser(ctx); ok {
			a.println("Already logged in. Use 'logout' to switch accounts.")
		} else {
			a.println("Use 'login' to sign in.")
		}
	}
	return nil
}

// enter asks the guard for route. On a redirect the console moves to the
// view the guard picked and false is returned.
func (a *App) enter(ctx context.Context, route guard.Route) bool {
	got := a.guard.Resolve(ctx, route)
	a.view = got
	if got == route {
		return true
	}
	switch got {
	case guard.Login:
		a.println("Please log in first.")
	case guard.Dashboard:
		a.printf("The %s view is for administrators only.\n", route)
	}
	return false
}

// fail reports a command error. An expired session drops all session-bound
// state and returns to the login view.
func (a *App) fail(ctx context.Context, err error) {
	switch {
	case errors.Is(err, client.ErrSessionExpired):
		a.pins.Reset()
		if cerr := a.sessions.Clear(ctx); cerr != nil {
			a.logger.Warn(ctx, "clear session failed", "err", cerr)
		}
		a.view = guard.Login
		a.println("Session expired, please log in again.")
	case errors.Is(err, services.ErrNotConfirmed):
		a.println("Cancelled.")
	case errors.Is(err, client.ErrUnavailable):
		a.println("Server unavailable, please try again later.")
		a.logger.Debug(ctx, "command failed", "err", err)
	default:
		a.printf("Error: %s\n", client.Describe(err))
		a.logger.Debug(ctx, "command failed", "err", err)
	}
}

// resetViews forgets everything loaded for the previous account.
func (a *App) resetViews() {
	a.pins.Reset()
	a.users = nil
	a.entries = nil
	a.query = logfilter.Query{}
}

func (a *App) help(ctx context.Context) {
	id, ok := a.sessions.CurrentUser(ctx)
	lines := []string{"Available commands: help, whoami, exit"}
	switch {
	case !ok:
		lines[0] = "Available commands: login, help, exit"
	case id.IsAdmin():
		lines = append(lines,
			"  views:     go dashboard|admin|logs, logout",
			"  dashboard: generate, pin, quota, savepng <file>",
			"  admin:     users, adduser, toggle <user>, resetpw <user>, resetlimit <user>, deluser <user>",
			"  logs:      logs [-u user] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-reset] [-refresh], logusers, clearlogs",
		)
	default:
		lines = append(lines,
			"  views:     go dashboard, logout",
			"  dashboard: generate, pin, quota, savepng <file>",
		)
	}
	printlnFn(strings.Join(lines, "\n"))
}
