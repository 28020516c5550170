package session

import "errors"

var ErrNoSession = errors.New("no active session")
