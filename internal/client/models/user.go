// Package models defines the records exchanged with the access-control
// backend and the identity cached by the console.
package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRole = errors.New("role must be user or admin")

// Role is the account role enforced by the backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts "user" or "admin" in any case. An empty string means
// RoleUser, matching the backend default.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Identity is the cached {username, role} pair stored next to the token.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// User is an account as listed by the backend.
type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Active   bool   `json:"active"`
}

// LoginRequest is the body of POST /.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful POST /.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Message  string `json:"message,omitempty"`
}

// Identity returns the identity part of the login response.
func (r LoginResponse) Identity() Identity {
	return Identity{Username: r.Username, Role: r.Role}
}

// NewUser is the body of POST /add_user.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// Status is the {message} / {error} envelope most mutating endpoints return.
type Status struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CountAdmins returns the number of admin accounts in users, skipping the
// named user.
func CountAdmins(users []User, except string) int {
	n := 0
	for _, u := range users {
		if u.Username != except && u.Role == RoleAdmin {
			n++
		}
	}
	return n
}
