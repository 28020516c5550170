package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Audit log types written by the console.
const (
	LogTypeLogin = "login"
	LogTypeQR    = "qr"
)

// LogEntry is one line of the server-side audit log.
type LogEntry struct {
	ID       int64  `json:"id"`
	Time     Time   `json:"time"`
	Username string `json:"username"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

// NewLogEntry is the body of POST /logs.
type NewLogEntry struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	User    string `json:"user"`
}

// Time is a timestamp that decodes every format the backend emits for log
// rows: RFC 3339, RFC 1123 ("Mon, 01 Jan 2024 00:00:00 GMT") and zone-less
// ISO 8601, which is read as UTC. A string in any other form decodes to an
// invalid Time keeping the text in Raw, so one bad row does not fail a page.
type Time struct {
	Time  time.Time
	Valid bool
	Raw   string
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimestamp, string(b))
	}
	if s == nil || *s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := ParseTimestamp(*s)
	if err != nil {
		*t = Time{Raw: *s}
		return nil
	}
	*t = Time{Time: parsed, Valid: true}
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// At builds a valid Time.
func At(t time.Time) Time { return Time{Time: t, Valid: true} }
