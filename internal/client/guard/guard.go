// Package guard decides which view a navigation request ends on, given the
// current session.
package guard

import (
	"context"
	"strings"

	"github.com/zktaccess/zktadmin/internal/client/models"
)

// Route names a console view.
type Route string

const (
	Login     Route = "login"
	Dashboard Route = "dashboard"
	Admin     Route = "admin"
	Logs      Route = "logs"
)

// Requirement is what a route demands of the session.
type Requirement int

const (
	Public Requirement = iota
	RequireAuth
	RequireAdmin
)

// Decision is the outcome of a guard check.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectDashboard
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectDashboard:
		return "redirect-dashboard"
	}
	return "unknown"
}

var table = map[Route]Requirement{
	Login:     Public,
	Dashboard: RequireAuth,
	Admin:     RequireAdmin,
	Logs:      RequireAdmin,
}

// Routes lists the known routes in menu order.
func Routes() []Route {
	return []Route{Login, Dashboard, Admin, Logs}
}

// ParseRoute maps user input onto a route. Unknown names report false.
func ParseRoute(s string) (Route, bool) {
	r := Route(strings.ToLower(strings.TrimSpace(s)))
	_, ok := table[r]
	return r, ok
}

// Check applies required to an identity (ok is false when there is no
// session).
func Check(id models.Identity, ok bool, required Requirement) Decision {
	switch required {
	case Public:
		return Allow
	case RequireAuth:
		if !ok {
			return RedirectLogin
		}
		return Allow
	case RequireAdmin:
		if !ok {
			return RedirectLogin
		}
		if !id.IsAdmin() {
			return RedirectDashboard
		}
		return Allow
	}
	return RedirectLogin
}

// SessionReader exposes the current identity.
type SessionReader interface {
	CurrentUser(ctx context.Context) (models.Identity, bool)
}

// Guard resolves routes against a session store. The store is read on every
// call; nothing is cached.
type Guard struct {
	sessions SessionReader
}

func New(sessions SessionReader) *Guard {
	return &Guard{sessions: sessions}
}

// Resolve returns the route the console actually shows when route is
// requested. Unknown routes fall back to Login.
func (g *Guard) Resolve(ctx context.Context, route Route) Route {
	required, known := table[route]
	if !known {
		return Login
	}
	id, ok := g.sessions.CurrentUser(ctx)
	switch Check(id, ok, required) {
	case Allow:
		return route
	case RedirectDashboard:
		return Dashboard
	default:
		return Login
	}
}

// Landing is the route shown right after a login.
func Landing(id models.Identity) Route {
	if id.IsAdmin() {
		return Admin
	}
	return Dashboard
}
