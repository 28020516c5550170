package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionExpired = errors.New("session expired")
	ErrRequestFailed  = errors.New("request failed")
	ErrUnavailable    = errors.New("server unavailable")
)

// RequestError is a non-2xx response other than an expired token.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Message returns the backend's "error" (or "message") field when the body
// is a JSON object, otherwise the raw text.
func (e *RequestError) Message() string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil {
		switch {
		case body.Error != "" && body.Message != "":
			return body.Error + ": " + body.Message
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		}
	}
	if s := strings.TrimSpace(e.Body); s != "" {
		return s
	}
	return fmt.Sprintf("status %d", e.Status)
}

// Describe renders err for an inline notice.
func Describe(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Message()
	}
	return err.Error()
}
